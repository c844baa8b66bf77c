// Package service runs the QuickPay pipeline: eligibility, verification,
// risk scoring, disbursement. Stages 1-3 are synchronous and fast; stage 4
// blocks on the external transfer call.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"keystone/internal/audit"
	"keystone/internal/platform/metrics"
	"keystone/internal/ports"
	"keystone/internal/quickpay"
	"keystone/internal/quickpay/velocity"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
	"keystone/pkg/platform/sentinel"
	"keystone/pkg/requestcontext"
)

// Deps are the scheduler's collaborators.
type Deps struct {
	Store     quickpay.Store
	Identity  ports.IdentityVerifier
	Verifier  *quickpay.Verifier
	Risk      *quickpay.RiskScorer
	Window    velocity.Window
	Contracts ports.ContractDirectory
	Transfers ports.TransferService
	Claims    quickpay.DisbursementClaims
	Audit     *audit.Publisher
	Metrics   *metrics.Metrics
}

// Config tunes the pipeline.
type Config struct {
	FeeRate          decimal.Decimal
	ReviewSLA        time.Duration
	SettlementTarget time.Duration
}

// Scheduler owns PaymentRequest end to end.
type Scheduler struct {
	store     quickpay.Store
	identity  ports.IdentityVerifier
	verifier  *quickpay.Verifier
	risk      *quickpay.RiskScorer
	window    velocity.Window
	contracts ports.ContractDirectory
	transfers ports.TransferService
	claims    quickpay.DisbursementClaims
	audit     *audit.Publisher
	metrics   *metrics.Metrics
	cfg       Config
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures the scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New builds a scheduler.
func New(deps Deps, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:     deps.Store,
		identity:  deps.Identity,
		verifier:  deps.Verifier,
		risk:      deps.Risk,
		window:    deps.Window,
		contracts: deps.Contracts,
		transfers: deps.Transfers,
		claims:    deps.Claims,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    slog.Default(),
		tracer:    otel.Tracer("keystone/quickpay"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit accepts a request and runs it through the pipeline. The returned
// request reflects the terminal or held state it reached; on a transfer
// failure both the request and a TransferFailed error are returned so the
// provider's message reaches the caller verbatim.
func (s *Scheduler) Submit(ctx context.Context, input quickpay.SubmitInput) (*quickpay.PaymentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "quickpay.submit")
	defer span.End()

	now := requestcontext.Now(ctx)
	req, err := quickpay.NewRequest(input, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist payment request")
	}
	s.emit(ctx, audit.QuickPaySubmitted, req, map[string]string{
		"amount":  req.Amount.String(),
		"invoice": req.InvoiceNumber,
	})

	contract, reason, err := s.checkEligibility(ctx, req)
	if err != nil {
		return req, err
	}
	if reason != "" {
		return s.fail(ctx, req, reason)
	}

	passed, err := s.verify(ctx, req, contract)
	if err != nil || !passed {
		return req, err
	}

	approved, err := s.scoreRisk(ctx, req)
	if err != nil || !approved {
		return req, err
	}
	return s.disburse(ctx, req, contract.RecipientAccount)
}

// Approve is the manual decision for a request held in review. It clears
// the request and immediately disburses.
func (s *Scheduler) Approve(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.CanDecide(); err != nil {
		return nil, err
	}
	contract, err := s.contracts.Get(ctx, req.ContractRef)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "resolve contract")
	}

	now := requestcontext.Now(ctx)
	req.ApplyApproval(requestcontext.ActorID(ctx), now.Add(s.cfg.SettlementTarget), now)
	if err := s.store.Update(ctx, req); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist approval")
	}
	s.emit(ctx, audit.QuickPayApproved, req, map[string]string{"decided_by": req.DecidedBy})
	return s.disburse(ctx, req, contract.RecipientAccount)
}

// Reject is the manual decision that terminates a held request with the
// reviewer's reason.
func (s *Scheduler) Reject(ctx context.Context, id uuid.UUID, reason string) (*quickpay.PaymentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.CanDecide(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "a rejection reason is required")
	}
	req.DecidedBy = requestcontext.ActorID(ctx)
	return s.fail(ctx, req, reason)
}

// Cancel withdraws a request before disbursement begins.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.CanCancel(); err != nil {
		return nil, err
	}
	req.ApplyCancellation(requestcontext.Now(ctx))
	if err := s.store.Update(ctx, req); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist cancellation")
	}
	s.emit(ctx, audit.QuickPayCancelled, req, nil)
	s.countTerminal(req)
	return req, nil
}

// Get fetches a request.
func (s *Scheduler) Get(ctx context.Context, id uuid.UUID) (*quickpay.PaymentRequest, error) {
	req, err := s.store.Get(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "payment request %s not found", id)
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "load payment request")
	}
	return req, nil
}

// EscalateOverdueReviews flags held requests older than the review SLA.
// The sweep only reports; it never decides for the reviewer. Each hold is
// flagged once. Returns how many were flagged.
func (s *Scheduler) EscalateOverdueReviews(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	overdue, err := s.store.ListOverdueReviews(ctx, now.Add(-s.cfg.ReviewSLA))
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeInternal, "list overdue reviews")
	}
	flagged := 0
	for _, req := range overdue {
		req.ApplyEscalation(now)
		if err := s.store.Update(ctx, req); err != nil {
			s.logger.ErrorContext(ctx, "escalation update failed",
				"request_id", req.ID, "error", err)
			continue
		}
		held := now.Sub(*req.RiskScoredAt)
		s.emit(ctx, audit.PaymentReviewOverdue, req, map[string]string{
			"held_for":   held.String(),
			"review_sla": s.cfg.ReviewSLA.String(),
		})
		s.logger.WarnContext(ctx, "review hold exceeded SLA",
			"request_id", req.ID, "held_for", held)
		flagged++
	}
	return flagged, nil
}

// checkEligibility is stage 1. A non-empty reason means the request is
// categorically ineligible for the fast path.
func (s *Scheduler) checkEligibility(ctx context.Context, req *quickpay.PaymentRequest) (ports.Contract, string, error) {
	ctx, span := s.tracer.Start(ctx, "quickpay.eligibility")
	defer span.End()

	contract, err := s.contracts.Get(ctx, req.ContractRef)
	if errors.Is(err, sentinel.ErrNotFound) {
		return ports.Contract{}, "contract " + req.ContractRef + " not found", nil
	}
	if err != nil {
		return ports.Contract{}, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "resolve contract")
	}
	if !contract.Active {
		return contract, "contract " + req.ContractRef + " is not active", nil
	}
	// Only government-issued contracts ride the fast path.
	if !contract.GovernmentIssued {
		return contract, "contract " + req.ContractRef + " is not government-issued", nil
	}

	verified, err := s.identity.IsBusinessVerified(ctx, req.BusinessID)
	if err != nil {
		return contract, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "business verification lookup")
	}
	if !verified {
		return contract, "business " + req.BusinessID + " is not verified", nil
	}

	existing, err := s.store.ActiveByInvoice(ctx, req.InvoiceNumber, req.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return contract, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "invoice uniqueness check")
	}
	if existing != nil {
		return contract, "invoice " + req.InvoiceNumber + " already has a live request", nil
	}
	return contract, "", nil
}

// verify is stage 2. Returns whether the request passed.
func (s *Scheduler) verify(ctx context.Context, req *quickpay.PaymentRequest, contract ports.Contract) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "quickpay.verification")
	defer span.End()

	result, err := s.verifier.Score(ctx, req, contract)
	if err != nil {
		return false, err
	}
	req.ApplyVerification(result.Score, requestcontext.Now(ctx))
	if err := s.store.Update(ctx, req); err != nil {
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist verification")
	}
	s.emit(ctx, audit.QuickPayVerified, req, map[string]string{
		"score":         formatScore(result.Score),
		"failed_checks": strings.Join(result.Failed, ","),
	})

	if !result.Passed() {
		_, err := s.fail(ctx, req,
			"verification score "+formatScore(result.Score)+" below "+
				formatScore(quickpay.VerificationPassScore)+
				"; failed checks: "+strings.Join(result.Failed, ", "))
		return false, err
	}
	return true, nil
}

// scoreRisk is stage 3. Returns whether the request was approved for
// disbursement; disputed and held-for-review requests return false with no
// error.
func (s *Scheduler) scoreRisk(ctx context.Context, req *quickpay.PaymentRequest) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "quickpay.risk")
	defer span.End()

	now := requestcontext.Now(ctx)
	// The submission itself counts toward the trailing window.
	if err := s.window.Record(ctx, req.BusinessID, req.ID.String(), now); err != nil {
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "record velocity")
	}
	result, err := s.risk.Score(ctx, req, now)
	if err != nil {
		return false, err
	}
	req.ApplyRiskScore(result.Score, now)

	switch {
	case result.Disputed():
		req.ApplyDispute(now)
		if err := s.store.Update(ctx, req); err != nil {
			return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist dispute")
		}
		s.emit(ctx, audit.QuickPayDisputed, req, riskDetail(result))
		s.countTerminal(req)
		return false, nil
	case result.AutoApproved():
		req.ApplyApproval("", now.Add(s.cfg.SettlementTarget), now)
		if err := s.store.Update(ctx, req); err != nil {
			return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist approval")
		}
		s.emit(ctx, audit.QuickPayApproved, req, riskDetail(result))
		return true, nil
	default:
		req.ApplyReview()
		if err := s.store.Update(ctx, req); err != nil {
			return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist review hold")
		}
		s.logger.InfoContext(ctx, "request held for review",
			"request_id", req.ID, "risk_score", result.Score)
		return false, nil
	}
}

// disburse is stage 4: fee, idempotency claim, external transfer. Transfer
// failures are terminal and surfaced verbatim; retrying means a new
// request, never a silent re-call.
func (s *Scheduler) disburse(ctx context.Context, req *quickpay.PaymentRequest, recipientAccount string) (*quickpay.PaymentRequest, error) {
	ctx, span := s.tracer.Start(ctx, "quickpay.disburse")
	defer span.End()

	now := requestcontext.Now(ctx)
	req.ApplyFee(money.Rate(req.Amount, s.cfg.FeeRate))
	if err := s.store.Update(ctx, req); err != nil {
		return req, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist fee")
	}

	claimed, err := s.claims.Claim(ctx, req.ID.String())
	if err != nil {
		return req, domainerrors.Wrap(err, domainerrors.CodeInternal, "claim disbursement")
	}
	if !claimed {
		return req, domainerrors.Newf(domainerrors.CodeStateConflict,
			"disbursement for request %s is already in flight", req.ID)
	}

	start := time.Now()
	transferID, err := s.transfers.Disburse(ctx, req.ID.String(), req.Net, recipientAccount)
	s.metrics.DisbursementTime.Observe(time.Since(start).Seconds())
	if err != nil {
		// Free the claim so the terminal status, not a stale key, is what
		// blocks re-entry. The provider's idempotency on the request id
		// still rules out a double transfer.
		if relErr := s.claims.Release(ctx, req.ID.String()); relErr != nil {
			s.logger.ErrorContext(ctx, "claim release failed",
				"request_id", req.ID, "error", relErr)
		}
		if _, failErr := s.fail(ctx, req, err.Error()); failErr != nil {
			return req, failErr
		}
		return req, domainerrors.Wrap(err, domainerrors.CodeTransferFailed,
			"disburse request "+req.ID.String())
	}

	req.ApplyCompletion(transferID, now)
	if err := s.store.Update(ctx, req); err != nil {
		return req, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist completion")
	}
	s.emit(ctx, audit.QuickPayCompleted, req, map[string]string{
		"transfer_id": transferID,
		"net":         req.Net.String(),
		"fee":         req.Fee.String(),
	})
	s.countTerminal(req)
	s.logger.InfoContext(ctx, "request disbursed",
		"request_id", req.ID, "transfer_id", transferID, "net", req.Net)
	return req, nil
}

func (s *Scheduler) fail(ctx context.Context, req *quickpay.PaymentRequest, reason string) (*quickpay.PaymentRequest, error) {
	req.ApplyFailure(reason, requestcontext.Now(ctx))
	if err := s.store.Update(ctx, req); err != nil {
		return req, domainerrors.Wrap(err, domainerrors.CodeInternal, "persist failure")
	}
	s.emit(ctx, audit.QuickPayFailed, req, map[string]string{"reason": reason})
	s.countTerminal(req)
	s.logger.InfoContext(ctx, "request failed",
		"request_id", req.ID, "reason", reason)
	return req, nil
}

func (s *Scheduler) emit(ctx context.Context, action audit.Action, req *quickpay.PaymentRequest, detail map[string]string) {
	s.audit.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		Subject:   req.ID.String(),
		Actor:     requestcontext.ActorID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
	})
}

func (s *Scheduler) countTerminal(req *quickpay.PaymentRequest) {
	if req.Status.Terminal() {
		s.metrics.QuickPayRequests.WithLabelValues(string(req.Status)).Inc()
	}
}

func riskDetail(result quickpay.RiskResult) map[string]string {
	detail := map[string]string{"risk_score": formatScore(result.Score)}
	for name, value := range result.Factors {
		detail["factor_"+name] = formatScore(value)
	}
	return detail
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
