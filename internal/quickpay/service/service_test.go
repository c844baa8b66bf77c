package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"keystone/internal/audit"
	"keystone/internal/platform/metrics"
	"keystone/internal/ports"
	"keystone/internal/ports/mocks"
	"keystone/internal/quickpay"
	"keystone/internal/quickpay/velocity"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/platform/sentinel"
	"keystone/pkg/requestcontext"
)

type SchedulerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *quickpay.MemoryStore
	identity  *mocks.MockIdentityVerifier
	contracts *mocks.MockContractDirectory
	transfers *mocks.MockTransferService
	profiler  *mocks.MockRiskProfiler
	window    *velocity.MemoryWindow
	claims    *quickpay.MemoryClaims
	scheduler *Scheduler
	ctx       context.Context
	now       time.Time
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = quickpay.NewMemoryStore()
	s.identity = mocks.NewMockIdentityVerifier(s.ctrl)
	s.contracts = mocks.NewMockContractDirectory(s.ctrl)
	s.transfers = mocks.NewMockTransferService(s.ctrl)
	s.profiler = mocks.NewMockRiskProfiler(s.ctrl)
	s.window = velocity.NewMemoryWindow(quickpay.VelocityWindow)
	s.claims = quickpay.NewMemoryClaims()

	logger := slog.New(slog.DiscardHandler)
	s.scheduler = New(Deps{
		Store:     s.store,
		Identity:  s.identity,
		Verifier:  quickpay.NewVerifier(s.identity, s.store, 70),
		Risk:      quickpay.NewRiskScorer(s.profiler, s.window, quickpay.DefaultRiskWeights()),
		Window:    s.window,
		Contracts: s.contracts,
		Transfers: s.transfers,
		Claims:    s.claims,
		Audit:     audit.NewPublisher(256, logger, nil),
		Metrics:   metrics.NewForTest(),
	}, Config{
		FeeRate:          decimal.RequireFromString("0.025"),
		ReviewSLA:        72 * time.Hour,
		SettlementTarget: 24 * time.Hour,
	}, WithLogger(logger))

	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *SchedulerSuite) input(amount string) quickpay.SubmitInput {
	return quickpay.SubmitInput{
		BusinessID:        "biz-1",
		ContractRef:       "GC-2024-001",
		InvoiceNumber:     "INV-" + uuid.NewString()[:8],
		Amount:            decimal.RequireFromString(amount),
		PayerJurisdiction: "ON",
		PayeeJurisdiction: "ON",
	}
}

func (s *SchedulerSuite) contract() ports.Contract {
	return ports.Contract{
		Ref:              "GC-2024-001",
		GovernmentIssued: true,
		Active:           true,
		Value:            decimal.NewFromInt(1_000_000),
		RecipientAccount: "acct-biz-1",
	}
}

func (s *SchedulerSuite) expectEligible() {
	s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(s.contract(), nil)
	s.identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil).AnyTimes()
	s.identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(95.0, nil).AnyTimes()
}

func (s *SchedulerSuite) expectRisk(level float64) {
	s.profiler.EXPECT().PaymentHistoryRisk(gomock.Any(), "biz-1").Return(level, nil)
	s.profiler.EXPECT().BusinessAgeRisk(gomock.Any(), "biz-1").Return(level, nil)
	s.profiler.EXPECT().NetworkTrustRisk(gomock.Any(), "biz-1").Return(level, nil)
	s.profiler.EXPECT().JurisdictionPairRisk(gomock.Any(), "ON", "ON").Return(level, nil)
}

// submitHeld runs a submission that lands in the review queue.
func (s *SchedulerSuite) submitHeld() *quickpay.PaymentRequest {
	s.expectEligible()
	s.expectRisk(50) // composite 34 with a small amount, inside the review band
	req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
	s.Require().NoError(err)
	s.Require().Equal(quickpay.StatusProcessing, req.Status)
	s.Require().True(req.RequiresReview)
	return req
}

func (s *SchedulerSuite) TestSubmitAutoApproveCompletes() {
	s.expectEligible()
	s.expectRisk(10) // composite 10, below the auto-approve line

	s.transfers.EXPECT().
		Disburse(gomock.Any(), gomock.Any(), gomock.Any(), "acct-biz-1").
		DoAndReturn(func(_ context.Context, key string, net decimal.Decimal, _ string) (string, error) {
			s.True(net.Equal(decimal.RequireFromString("4875")), "net = %s", net)
			return "tx-1", nil
		})

	req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
	s.Require().NoError(err)

	s.Equal(quickpay.StatusCompleted, req.Status)
	s.Equal(100.0, req.VerificationScore)
	s.InDelta(10.0, req.RiskScore, 1e-9)
	s.True(req.Fee.Equal(decimal.RequireFromString("125")))
	s.True(req.Net.Equal(decimal.RequireFromString("4875")))
	s.Equal("tx-1", req.TransferID)
	s.Empty(req.DecidedBy)
	s.Require().NotNil(req.EstimatedArrival)
	s.Equal(s.now.Add(24*time.Hour), *req.EstimatedArrival)
	s.Require().NotNil(req.ActualArrival)
}

func (s *SchedulerSuite) TestSubmitHighRiskDisputedNeverDisburses() {
	// Ten prior submissions this week push the velocity bucket to 90.
	for i := 0; i < 10; i++ {
		s.Require().NoError(s.window.Record(s.ctx, "biz-1", uuid.NewString(), s.now.Add(-time.Hour)))
	}
	s.expectEligible()
	s.expectRisk(100)
	// No transfer expectation: any Disburse call fails the test.

	req, err := s.scheduler.Submit(s.ctx, s.input("600000"))
	s.Require().NoError(err)

	s.Equal(quickpay.StatusDisputed, req.Status)
	s.Greater(req.RiskScore, quickpay.RiskDisputeThreshold)
	s.Equal(100.0, req.VerificationScore)
	s.Require().NotNil(req.DisputedAt)
}

func (s *SchedulerSuite) TestSubmitEligibilityFailures() {
	s.Run("contract not found", func() {
		s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").
			Return(ports.Contract{}, sentinel.ErrNotFound)
		req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
		s.Require().NoError(err)
		s.Equal(quickpay.StatusFailed, req.Status)
		s.Contains(req.FailureReason, "not found")
	})

	s.Run("inactive contract", func() {
		contract := s.contract()
		contract.Active = false
		s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(contract, nil)
		req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
		s.Require().NoError(err)
		s.Equal(quickpay.StatusFailed, req.Status)
		s.Contains(req.FailureReason, "not active")
	})

	s.Run("non-government contract", func() {
		contract := s.contract()
		contract.GovernmentIssued = false
		s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(contract, nil)
		req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
		s.Require().NoError(err)
		s.Equal(quickpay.StatusFailed, req.Status)
		s.Contains(req.FailureReason, "not government-issued")
	})

	s.Run("unverified business", func() {
		s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(s.contract(), nil)
		s.identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(false, nil)
		req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
		s.Require().NoError(err)
		s.Equal(quickpay.StatusFailed, req.Status)
		s.Contains(req.FailureReason, "not verified")
	})
}

func (s *SchedulerSuite) TestSubmitDuplicateInvoiceFails() {
	held := s.submitHeld()

	s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(s.contract(), nil)
	// submitHeld already registered an identical AnyTimes expectation, which
	// gomock matches first; AnyTimes here keeps this one from being reported
	// as a missing call.
	s.identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil).AnyTimes()

	in := s.input("5000")
	in.InvoiceNumber = held.InvoiceNumber
	req, err := s.scheduler.Submit(s.ctx, in)
	s.Require().NoError(err)
	s.Equal(quickpay.StatusFailed, req.Status)
	s.Contains(req.FailureReason, "already has a live request")
}

func (s *SchedulerSuite) TestSubmitVerificationFailure() {
	contract := s.contract()
	contract.OpenDispute = true
	s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(contract, nil)
	s.identity.EXPECT().IsBusinessVerified(gomock.Any(), "biz-1").Return(true, nil).AnyTimes()
	s.identity.EXPECT().PerformanceScore(gomock.Any(), "biz-1").Return(20.0, nil)

	req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
	s.Require().NoError(err)
	s.Equal(quickpay.StatusFailed, req.Status)
	s.InDelta(66.67, req.VerificationScore, 0.01)
	s.Contains(req.FailureReason, "verification score")
	s.Contains(req.FailureReason, quickpay.CheckNoOpenDisputes)
}

func (s *SchedulerSuite) TestSubmitTransferFailureIsVerbatimAndTerminal() {
	s.expectEligible()
	s.expectRisk(10)
	s.transfers.EXPECT().
		Disburse(gomock.Any(), gomock.Any(), gomock.Any(), "acct-biz-1").
		Return("", errors.New("beneficiary account frozen"))

	req, err := s.scheduler.Submit(s.ctx, s.input("5000"))
	s.Require().Error(err)
	s.Equal(domainerrors.CodeTransferFailed, domainerrors.CodeOf(err))
	s.Contains(err.Error(), "beneficiary account frozen")

	s.Require().NotNil(req)
	s.Equal(quickpay.StatusFailed, req.Status)
	s.Equal("beneficiary account frozen", req.FailureReason)

	// The failed request stays queryable.
	reloaded, getErr := s.scheduler.Get(s.ctx, req.ID)
	s.Require().NoError(getErr)
	s.Equal(quickpay.StatusFailed, reloaded.Status)

	// The claim was freed; the terminal status is the guard now.
	claimed, claimErr := s.claims.Claim(s.ctx, req.ID.String())
	s.Require().NoError(claimErr)
	s.True(claimed)
}

func (s *SchedulerSuite) TestReviewHoldThenApprove() {
	held := s.submitHeld()

	s.contracts.EXPECT().Get(gomock.Any(), "GC-2024-001").Return(s.contract(), nil)
	s.transfers.EXPECT().
		Disburse(gomock.Any(), held.ID.String(), gomock.Any(), "acct-biz-1").
		Return("tx-2", nil)

	ctx := requestcontext.WithActorID(s.ctx, "reviewer-7")
	req, err := s.scheduler.Approve(ctx, held.ID)
	s.Require().NoError(err)
	s.Equal(quickpay.StatusCompleted, req.Status)
	s.Equal("reviewer-7", req.DecidedBy)
	s.Equal("tx-2", req.TransferID)
	s.Require().NotNil(req.EstimatedArrival)
	s.Equal(s.now.Add(24*time.Hour), *req.EstimatedArrival)
}

func (s *SchedulerSuite) TestApproveGuards() {
	s.Run("unknown request", func() {
		_, err := s.scheduler.Approve(s.ctx, uuid.New())
		s.Equal(domainerrors.CodeNotFound, domainerrors.CodeOf(err))
	})

	s.Run("request not awaiting review", func() {
		s.expectEligible()
		s.expectRisk(10)
		s.transfers.EXPECT().
			Disburse(gomock.Any(), gomock.Any(), gomock.Any(), "acct-biz-1").
			Return("tx-3", nil)
		completed, err := s.scheduler.Submit(s.ctx, s.input("5000"))
		s.Require().NoError(err)

		_, err = s.scheduler.Approve(s.ctx, completed.ID)
		s.Equal(domainerrors.CodeStateConflict, domainerrors.CodeOf(err))
	})
}

func (s *SchedulerSuite) TestReject() {
	s.Run("requires a reason", func() {
		held := s.submitHeld()
		_, err := s.scheduler.Reject(s.ctx, held.ID, "   ")
		s.Equal(domainerrors.CodeValidation, domainerrors.CodeOf(err))
	})

	s.Run("terminates with the reviewer's reason", func() {
		held := s.submitHeld()
		ctx := requestcontext.WithActorID(s.ctx, "reviewer-7")
		req, err := s.scheduler.Reject(ctx, held.ID, "invoice does not match delivered work")
		s.Require().NoError(err)
		s.Equal(quickpay.StatusFailed, req.Status)
		s.Equal("invoice does not match delivered work", req.FailureReason)
		s.Equal("reviewer-7", req.DecidedBy)
	})
}

func (s *SchedulerSuite) TestCancel() {
	s.Run("held request can be withdrawn", func() {
		held := s.submitHeld()
		req, err := s.scheduler.Cancel(s.ctx, held.ID)
		s.Require().NoError(err)
		s.Equal(quickpay.StatusCancelled, req.Status)
		s.Require().NotNil(req.CancelledAt)
	})

	s.Run("completed request cannot", func() {
		s.expectEligible()
		s.expectRisk(10)
		s.transfers.EXPECT().
			Disburse(gomock.Any(), gomock.Any(), gomock.Any(), "acct-biz-1").
			Return("tx-4", nil)
		completed, err := s.scheduler.Submit(s.ctx, s.input("5000"))
		s.Require().NoError(err)

		_, err = s.scheduler.Cancel(s.ctx, completed.ID)
		s.Equal(domainerrors.CodeStateConflict, domainerrors.CodeOf(err))
	})
}

func (s *SchedulerSuite) TestEscalateOverdueReviews() {
	held := s.submitHeld()

	// Within the SLA nothing is flagged.
	n, err := s.scheduler.EscalateOverdueReviews(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	later := requestcontext.WithTime(context.Background(), s.now.Add(73*time.Hour))
	n, err = s.scheduler.EscalateOverdueReviews(later)
	s.Require().NoError(err)
	s.Equal(1, n)

	reloaded, err := s.scheduler.Get(s.ctx, held.ID)
	s.Require().NoError(err)
	s.Equal(quickpay.StatusProcessing, reloaded.Status)
	s.Require().NotNil(reloaded.EscalatedAt)

	// Each hold is flagged once.
	n, err = s.scheduler.EscalateOverdueReviews(later)
	s.Require().NoError(err)
	s.Zero(n)

	// The escalation is advisory: the reviewer can still decide.
	s.NoError(reloaded.CanDecide())
}
