// Package audit emits one append-only event per state transition for
// compliance review. The engine never reads these back for decisions;
// consumers live outside this repo.
package audit

import (
	"context"
	"time"
)

// Action names the state transition an event records.
type Action string

const (
	EscrowCreated          Action = "escrow.created"
	EscrowFunded           Action = "escrow.funded"
	EscrowReleaseRequested Action = "escrow.release_requested"
	EscrowDisputed         Action = "escrow.disputed"
	EscrowCompleted        Action = "escrow.completed"
	EscrowExpired          Action = "escrow.expired"
	PaymentReleased        Action = "payment.released"
	CertificateIssued      Action = "certificate.issued"

	QuickPaySubmitted     Action = "quickpay.submitted"
	QuickPayVerified      Action = "quickpay.verified"
	QuickPayApproved      Action = "quickpay.approved"
	QuickPayDisputed      Action = "quickpay.disputed"
	QuickPayCompleted     Action = "quickpay.completed"
	QuickPayFailed        Action = "quickpay.failed"
	QuickPayCancelled     Action = "quickpay.cancelled"
	PaymentReviewOverdue  Action = "payment.review_overdue"
	MilestoneApproved     Action = "milestone.approved"
	ApprovalSubmitted     Action = "approval.submitted"
)

// Event is emitted from domain logic to capture one transition. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	// Subject is the aggregate the event belongs to (account id, request
	// id); events for one subject keep their relative order end to end.
	Subject string `json:"subject"`
	// Actor is the party that triggered the transition, when known.
	Actor     string `json:"actor,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// Detail carries the structured payload: amounts, statuses, reasons.
	Detail map[string]string `json:"detail,omitempty"`
}

// Store is the append-only sink behind the publisher.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
