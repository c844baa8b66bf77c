package quickpay

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"keystone/internal/ports"
	"keystone/internal/quickpay/velocity"
	domainerrors "keystone/pkg/domain-errors"
)

// Risk bucketing thresholds. Scores above the dispute line are held for
// manual fraud review; below the auto line they disburse without a human.
const (
	RiskDisputeThreshold     = 80.0
	RiskAutoApproveThreshold = 30.0
)

// VelocityWindow is the trailing interval the velocity factor counts over.
const VelocityWindow = 7 * 24 * time.Hour

// RiskWeights are the composite weights; they must sum to 1.
type RiskWeights struct {
	History      float64
	Age          float64
	AmountTier   float64
	Velocity     float64
	NetworkTrust float64
	Jurisdiction float64
}

// DefaultRiskWeights is the launch calibration.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		History:      0.30,
		Age:          0.10,
		AmountTier:   0.20,
		Velocity:     0.20,
		NetworkTrust: 0.15,
		Jurisdiction: 0.05,
	}
}

// RiskResult is the stage-3 outcome: the 0-100 composite (higher is
// riskier) plus the individual factors for the audit trail.
type RiskResult struct {
	Score   float64
	Factors map[string]float64
}

// Disputed reports whether the score lands in the fraud-review bucket.
func (r RiskResult) Disputed() bool { return r.Score > RiskDisputeThreshold }

// AutoApproved reports whether the score clears automatic approval.
func (r RiskResult) AutoApproved() bool { return r.Score < RiskAutoApproveThreshold }

// RiskScorer computes the stage-3 composite from external risk facts and
// the request-velocity window.
type RiskScorer struct {
	profiler ports.RiskProfiler
	window   velocity.Window
	weights  RiskWeights
}

// NewRiskScorer builds the scorer.
func NewRiskScorer(profiler ports.RiskProfiler, window velocity.Window, weights RiskWeights) *RiskScorer {
	return &RiskScorer{profiler: profiler, window: window, weights: weights}
}

// Score computes the weighted composite for the request at the given
// instant. The submission must already be recorded on the velocity window.
func (s *RiskScorer) Score(ctx context.Context, req *PaymentRequest, now time.Time) (RiskResult, error) {
	history, err := s.profiler.PaymentHistoryRisk(ctx, req.BusinessID)
	if err != nil {
		return RiskResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "payment history risk")
	}
	age, err := s.profiler.BusinessAgeRisk(ctx, req.BusinessID)
	if err != nil {
		return RiskResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "business age risk")
	}
	network, err := s.profiler.NetworkTrustRisk(ctx, req.BusinessID)
	if err != nil {
		return RiskResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "network trust risk")
	}
	jurisdiction, err := s.profiler.JurisdictionPairRisk(ctx, req.PayerJurisdiction, req.PayeeJurisdiction)
	if err != nil {
		return RiskResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "jurisdiction pair risk")
	}
	count, err := s.window.Count(ctx, req.BusinessID, now.Add(-VelocityWindow))
	if err != nil {
		return RiskResult{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "request velocity")
	}

	factors := map[string]float64{
		"payment_history":   history,
		"business_age":      age,
		"amount_tier":       AmountTierScore(req.Amount),
		"request_velocity":  VelocityScore(count),
		"network_trust":     network,
		"jurisdiction_pair": jurisdiction,
	}
	score := factors["payment_history"]*s.weights.History +
		factors["business_age"]*s.weights.Age +
		factors["amount_tier"]*s.weights.AmountTier +
		factors["request_velocity"]*s.weights.Velocity +
		factors["network_trust"]*s.weights.NetworkTrust +
		factors["jurisdiction_pair"]*s.weights.Jurisdiction
	return RiskResult{Score: score, Factors: factors}, nil
}

// VelocityScore buckets the trailing-window request count. The function is
// deliberately stepped, not continuous, and must stay monotone in count.
func VelocityScore(count int) float64 {
	switch {
	case count < 3:
		return 10
	case count <= 5:
		return 40
	case count <= 9:
		return 70
	default:
		return 90
	}
}

// amount tier boundaries, dollars.
var (
	tier10k  = decimal.NewFromInt(10_000)
	tier50k  = decimal.NewFromInt(50_000)
	tier100k = decimal.NewFromInt(100_000)
	tier500k = decimal.NewFromInt(500_000)
)

// AmountTierScore buckets the requested amount: larger requests carry more
// exposure. Monotone in amount.
func AmountTierScore(amount decimal.Decimal) float64 {
	switch {
	case amount.LessThan(tier10k):
		return 10
	case amount.LessThan(tier50k):
		return 30
	case amount.LessThan(tier100k):
		return 50
	case amount.LessThan(tier500k):
		return 70
	default:
		return 90
	}
}
