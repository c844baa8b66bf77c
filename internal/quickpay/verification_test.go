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

	"keystone/internal/ports"
	"keystone/internal/ports/mocks"
)

func verificationFixture(t *testing.T) (*mocks.MockIdentityVerifier, *MemoryStore, *Verifier, *PaymentRequest, ports.Contract) {
	t.Helper()
	ctrl := gomock.NewController(t)
	identity := mocks.NewMockIdentityVerifier(ctrl)
	store := NewMemoryStore()
	verifier := NewVerifier(identity, store, 70)

	req := &PaymentRequest{
		ID:            uuid.New(),
		BusinessID:    "biz-1",
		ContractRef:   "GC-2024-001",
		InvoiceNumber: "INV-100",
		Amount:        decimal.NewFromInt(40_000),
		Status:        StatusPending,
	}
	contract := ports.Contract{
		Ref:              "GC-2024-001",
		GovernmentIssued: true,
		Active:           true,
		Value:            decimal.NewFromInt(1_000_000),
	}
	return identity, store, verifier, req, contract
}

func TestVerifierAllChecksPass(t *testing.T) {
	identity, _, verifier, req, contract := verificationFixture(t)
	identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
	identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(92.0, nil)

	result, err := verifier.Score(context.Background(), req, contract)
	require.NoError(t, err)
	assert.Equal(t, 100.0, result.Score)
	assert.Empty(t, result.Failed)
	assert.True(t, result.Passed())
}

func TestVerifierOneFailedCheckStillPasses(t *testing.T) {
	identity, _, verifier, req, contract := verificationFixture(t)
	identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
	identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(50.0, nil)

	result, err := verifier.Score(context.Background(), req, contract)
	require.NoError(t, err)
	assert.InDelta(t, 83.33, result.Score, 0.01)
	assert.Equal(t, []string{CheckPerformance}, result.Failed)
	assert.True(t, result.Passed())
}

func TestVerifierTwoFailedChecksFail(t *testing.T) {
	identity, _, verifier, req, contract := verificationFixture(t)
	contract.OpenDispute = true
	identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
	identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(50.0, nil)

	result, err := verifier.Score(context.Background(), req, contract)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, result.Score, 0.01)
	assert.ElementsMatch(t, []string{CheckNoOpenDisputes, CheckPerformance}, result.Failed)
	assert.False(t, result.Passed())
}

func TestVerifierAmountExceedingContractValue(t *testing.T) {
	identity, _, verifier, req, contract := verificationFixture(t)
	req.Amount = contract.Value.Add(decimal.NewFromInt(1))
	identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
	identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(92.0, nil)

	result, err := verifier.Score(context.Background(), req, contract)
	require.NoError(t, err)
	assert.Contains(t, result.Failed, CheckAmountInContract)
}

func TestVerifierDuplicateInvoice(t *testing.T) {
	identity, store, verifier, req, contract := verificationFixture(t)
	ctx := context.Background()

	other := &PaymentRequest{
		ID:            uuid.New(),
		BusinessID:    "biz-2",
		ContractRef:   "GC-2024-002",
		InvoiceNumber: "INV-100",
		Amount:        decimal.NewFromInt(10),
		Status:        StatusProcessing,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, store.Create(ctx, other))

	identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
	identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(92.0, nil)

	result, err := verifier.Score(ctx, req, contract)
	require.NoError(t, err)
	assert.Contains(t, result.Failed, CheckInvoiceUnique)
}

// Failed and cancelled requests release their invoice number; everything
// else holds it, including disputed.
func TestInvoiceHeldByStatus(t *testing.T) {
	identity, store, verifier, req, contract := verificationFixture(t)
	ctx := context.Background()

	other := &PaymentRequest{
		ID:            uuid.New(),
		BusinessID:    "biz-2",
		ContractRef:   "GC-2024-002",
		InvoiceNumber: "INV-100",
		Amount:        decimal.NewFromInt(10),
		Status:        StatusFailed,
		SubmittedAt:   time.Now(),
	}
	require.NoError(t, store.Create(ctx, other))

	for status, wantUnique := range map[Status]bool{
		StatusFailed:    true,
		StatusCancelled: true,
		StatusDisputed:  false,
		StatusCompleted: false,
		StatusPending:   false,
	} {
		other.Status = status
		require.NoError(t, store.Update(ctx, other))

		identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
		identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(92.0, nil)
		result, err := verifier.Score(ctx, req, contract)
		require.NoError(t, err)
		if wantUnique {
			assert.NotContains(t, result.Failed, CheckInvoiceUnique, "status %s", status)
		} else {
			assert.Contains(t, result.Failed, CheckInvoiceUnique, "status %s", status)
		}
	}
}

func TestVerifierExcludesOwnRequest(t *testing.T) {
	identity, store, verifier, req, contract := verificationFixture(t)
	ctx := context.Background()
	req.SubmittedAt = time.Now()
	require.NoError(t, store.Create(ctx, req))

	identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil)
	identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(92.0, nil)

	result, err := verifier.Score(ctx, req, contract)
	require.NoError(t, err)
	assert.NotContains(t, result.Failed, CheckInvoiceUnique)
}
