package quickpay

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"keystone/internal/ports/mocks"
	"keystone/internal/quickpay/velocity"
)

func TestVelocityScoreBuckets(t *testing.T) {
	cases := []struct {
		count int
		want  float64
	}{
		{0, 10}, {2, 10},
		{3, 40}, {5, 40},
		{6, 70}, {9, 70},
		{10, 90}, {50, 90},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, VelocityScore(tc.count), "count %d", tc.count)
	}
}

func TestVelocityScoreMonotone(t *testing.T) {
	prev := VelocityScore(0)
	for count := 1; count <= 30; count++ {
		score := VelocityScore(count)
		assert.GreaterOrEqual(t, score, prev, "count %d", count)
		prev = score
	}
}

func TestAmountTierScoreBuckets(t *testing.T) {
	cases := []struct {
		amount string
		want   float64
	}{
		{"0.01", 10}, {"9999.99", 10},
		{"10000", 30}, {"49999.99", 30},
		{"50000", 50}, {"99999.99", 50},
		{"100000", 70}, {"499999.99", 70},
		{"500000", 90}, {"2000000", 90},
	}
	for _, tc := range cases {
		got := AmountTierScore(decimal.RequireFromString(tc.amount))
		assert.Equal(t, tc.want, got, "amount %s", tc.amount)
	}
}

func TestAmountTierScoreMonotone(t *testing.T) {
	prev := 0.0
	for _, amount := range []string{"1", "9999", "10000", "25000", "50000",
		"75000", "100000", "250000", "500000", "1000000"} {
		score := AmountTierScore(decimal.RequireFromString(amount))
		assert.GreaterOrEqual(t, score, prev, "amount %s", amount)
		prev = score
	}
}

func TestDefaultRiskWeightsSumToOne(t *testing.T) {
	w := DefaultRiskWeights()
	sum := w.History + w.Age + w.AmountTier + w.Velocity + w.NetworkTrust + w.Jurisdiction
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestRiskScorerComposite(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiler := mocks.NewMockRiskProfiler(ctrl)
	window := velocity.NewMemoryWindow(VelocityWindow)
	scorer := NewRiskScorer(profiler, window, DefaultRiskWeights())

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	req := &PaymentRequest{
		ID:                uuid.New(),
		BusinessID:        "biz-1",
		Amount:            decimal.NewFromInt(25_000), // tier 30
		PayerJurisdiction: "ON",
		PayeeJurisdiction: "BC",
	}

	ctx := context.Background()
	// Four submissions in the window: velocity bucket 40.
	for i := 0; i < 4; i++ {
		require.NoError(t, window.Record(ctx, "biz-1", uuid.NewString(), now.Add(-time.Hour)))
	}

	profiler.EXPECT().PaymentHistoryRisk(ctx, "biz-1").Return(20.0, nil)
	profiler.EXPECT().BusinessAgeRisk(ctx, "biz-1").Return(50.0, nil)
	profiler.EXPECT().NetworkTrustRisk(ctx, "biz-1").Return(30.0, nil)
	profiler.EXPECT().JurisdictionPairRisk(ctx, "ON", "BC").Return(40.0, nil)

	result, err := scorer.Score(ctx, req, now)
	require.NoError(t, err)

	// 20*.30 + 50*.10 + 30*.20 + 40*.20 + 30*.15 + 40*.05 = 31.5
	assert.InDelta(t, 31.5, result.Score, 1e-9)
	assert.Equal(t, 20.0, result.Factors["payment_history"])
	assert.Equal(t, 30.0, result.Factors["amount_tier"])
	assert.Equal(t, 40.0, result.Factors["request_velocity"])
	assert.False(t, result.Disputed())
	assert.False(t, result.AutoApproved())
}

func TestRiskResultBuckets(t *testing.T) {
	assert.True(t, RiskResult{Score: 80.01}.Disputed())
	assert.False(t, RiskResult{Score: 80}.Disputed())
	assert.True(t, RiskResult{Score: 29.99}.AutoApproved())
	assert.False(t, RiskResult{Score: 30}.AutoApproved())
}

func TestRiskScorerIgnoresEntriesOutsideWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	profiler := mocks.NewMockRiskProfiler(ctrl)
	window := velocity.NewMemoryWindow(VelocityWindow)
	scorer := NewRiskScorer(profiler, window, DefaultRiskWeights())

	now := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	// Twelve submissions, all older than seven days.
	for i := 0; i < 12; i++ {
		require.NoError(t, window.Record(ctx, "biz-1", uuid.NewString(),
			now.Add(-VelocityWindow-time.Hour)))
	}

	profiler.EXPECT().PaymentHistoryRisk(ctx, "biz-1").Return(0.0, nil)
	profiler.EXPECT().BusinessAgeRisk(ctx, "biz-1").Return(0.0, nil)
	profiler.EXPECT().NetworkTrustRisk(ctx, "biz-1").Return(0.0, nil)
	profiler.EXPECT().JurisdictionPairRisk(ctx, "", "").Return(0.0, nil)

	req := &PaymentRequest{ID: uuid.New(), BusinessID: "biz-1", Amount: decimal.NewFromInt(100)}
	result, err := scorer.Score(ctx, req, now)
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.Factors["request_velocity"])
}
