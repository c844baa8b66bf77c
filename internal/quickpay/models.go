// Package quickpay implements the expedited, risk-gated disbursement path:
// a payment request flows through eligibility, multi-factor verification,
// risk scoring, and disbursement, and any stage may terminate it early. The
// service package runs the pipeline; this package holds the request model,
// its transition rules, and the pure scoring logic.
package quickpay

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
)

// Status is the payment request lifecycle state.
type Status string

const (
	// StatusPending: accepted, pipeline not yet run.
	StatusPending Status = "pending"
	// StatusProcessing: verified and risk-scored, held for a manual review
	// decision (RequiresReview is set).
	StatusProcessing Status = "processing"
	// StatusApproved: cleared for disbursement, automatically or by a
	// reviewer. Cancellation is no longer possible.
	StatusApproved Status = "approved"
	// StatusDisputed: risk score exceeded the dispute threshold; held for
	// manual fraud review outside this engine. Terminal here.
	StatusDisputed Status = "disputed"
	// StatusCompleted: funds disbursed, settlement confirmed. Terminal.
	StatusCompleted Status = "completed"
	// StatusFailed: a pipeline stage or the external transfer failed.
	// Terminal; re-requesting means submitting a new request.
	StatusFailed Status = "failed"
	// StatusCancelled: withdrawn by the requester before disbursement began.
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusDisputed, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// PaymentRequest is one expedited-disbursement request, owned end to end by
// the scheduler. Timestamps record each transition; EstimatedArrival is the
// settlement promise made at approval and ActualArrival the observed one.
type PaymentRequest struct {
	ID            uuid.UUID       `json:"id"`
	BusinessID    string          `json:"business_id"`
	ContractRef   string          `json:"contract_ref"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`

	// PayerJurisdiction/PayeeJurisdiction feed the cross-jurisdiction risk
	// factor only; tax never applies on this path.
	PayerJurisdiction string `json:"payer_jurisdiction"`
	PayeeJurisdiction string `json:"payee_jurisdiction"`

	VerificationScore float64 `json:"verification_score"`
	RiskScore         float64 `json:"risk_score"`

	Fee decimal.Decimal `json:"fee"`
	Net decimal.Decimal `json:"net"`

	Status         Status `json:"status"`
	RequiresReview bool   `json:"requires_review"`

	// FailureReason carries the failed check, the reviewer's reason, or the
	// external provider's error verbatim.
	FailureReason string `json:"failure_reason,omitempty"`
	// DecidedBy is the reviewer who approved or rejected a held request;
	// empty for automatic decisions.
	DecidedBy  string `json:"decided_by,omitempty"`
	TransferID string `json:"transfer_id,omitempty"`

	SubmittedAt      time.Time  `json:"submitted_at"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	RiskScoredAt     *time.Time `json:"risk_scored_at,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	DisputedAt       *time.Time `json:"disputed_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EstimatedArrival *time.Time `json:"estimated_arrival,omitempty"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty"`
}

// SubmitInput is the caller's view of a new request.
type SubmitInput struct {
	BusinessID        string
	ContractRef       string
	InvoiceNumber     string
	Amount            decimal.Decimal
	PayerJurisdiction string
	PayeeJurisdiction string
}

// NewRequest validates the input and builds a pending request.
func NewRequest(input SubmitInput, now time.Time) (*PaymentRequest, error) {
	if strings.TrimSpace(input.BusinessID) == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "business id is required")
	}
	if strings.TrimSpace(input.ContractRef) == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "contract reference is required")
	}
	if strings.TrimSpace(input.InvoiceNumber) == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "invoice number is required")
	}
	if !money.IsPositive(input.Amount) {
		return nil, domainerrors.Newf(domainerrors.CodeValidation,
			"requested amount %s must be positive", input.Amount)
	}
	return &PaymentRequest{
		ID:                uuid.New(),
		BusinessID:        input.BusinessID,
		ContractRef:       input.ContractRef,
		InvoiceNumber:     strings.TrimSpace(input.InvoiceNumber),
		Amount:            money.Round2(input.Amount),
		PayerJurisdiction: input.PayerJurisdiction,
		PayeeJurisdiction: input.PayeeJurisdiction,
		Status:            StatusPending,
		SubmittedAt:       now,
	}, nil
}

// ApplyVerification records the stage-2 outcome.
func (r *PaymentRequest) ApplyVerification(score float64, now time.Time) {
	r.VerificationScore = score
	t := now
	r.VerifiedAt = &t
}

// ApplyRiskScore records the stage-3 composite.
func (r *PaymentRequest) ApplyRiskScore(score float64, now time.Time) {
	r.RiskScore = score
	t := now
	r.RiskScoredAt = &t
}

// ApplyReview parks the request for a manual decision.
func (r *PaymentRequest) ApplyReview() {
	r.Status = StatusProcessing
	r.RequiresReview = true
}

// CanDecide checks that a manual approve/reject is legal: only a request
// held for review can be decided.
func (r *PaymentRequest) CanDecide() error {
	if r.Status != StatusProcessing || !r.RequiresReview {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"request %s is %s and not awaiting review", r.ID, r.Status)
	}
	return nil
}

// ApplyApproval clears the request for disbursement. decidedBy is empty for
// automatic approvals. estimatedArrival is the settlement promise.
func (r *PaymentRequest) ApplyApproval(decidedBy string, estimatedArrival, now time.Time) {
	r.Status = StatusApproved
	r.DecidedBy = decidedBy
	t := now
	r.ApprovedAt = &t
	e := estimatedArrival
	r.EstimatedArrival = &e
}

// ApplyDispute holds the request for manual fraud review.
func (r *PaymentRequest) ApplyDispute(now time.Time) {
	r.Status = StatusDisputed
	t := now
	r.DisputedAt = &t
}

// ApplyFailure terminates the request with the given reason.
func (r *PaymentRequest) ApplyFailure(reason string, now time.Time) {
	r.Status = StatusFailed
	r.FailureReason = reason
	t := now
	r.FailedAt = &t
}

// CanCancel checks the cancellation guard: legal before disbursement begins
// (pending or held in processing), never once approved.
func (r *PaymentRequest) CanCancel() error {
	if r.Status != StatusPending && r.Status != StatusProcessing {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"request %s is %s and can no longer be cancelled", r.ID, r.Status)
	}
	return nil
}

// ApplyCancellation withdraws the request.
func (r *PaymentRequest) ApplyCancellation(now time.Time) {
	r.Status = StatusCancelled
	t := now
	r.CancelledAt = &t
}

// ApplyFee records the processing fee and resulting net amount.
func (r *PaymentRequest) ApplyFee(fee decimal.Decimal) {
	r.Fee = fee
	r.Net = r.Amount.Sub(fee)
}

// ApplyCompletion records the settled transfer.
func (r *PaymentRequest) ApplyCompletion(transferID string, now time.Time) {
	r.Status = StatusCompleted
	r.TransferID = transferID
	t := now
	r.ActualArrival = &t
}

// ApplyEscalation marks the held request as flagged overdue so the sweep
// reports each hold once.
func (r *PaymentRequest) ApplyEscalation(now time.Time) {
	t := now
	r.EscalatedAt = &t
}
