package quickpay

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists payment requests.
type Store interface {
	Create(ctx context.Context, req *PaymentRequest) error
	Get(ctx context.Context, id uuid.UUID) (*PaymentRequest, error)
	Update(ctx context.Context, req *PaymentRequest) error
	// ActiveByInvoice returns a live request carrying the invoice number,
	// excluding the given request id, or sentinel.ErrNotFound. Only failed
	// and cancelled requests release their invoice number; a disputed one
	// still reserves it until fraud review resolves.
	ActiveByInvoice(ctx context.Context, invoiceNumber string, exclude uuid.UUID) (*PaymentRequest, error)
	// ListOverdueReviews returns requests held for review since before the
	// cutoff and not yet escalated.
	ListOverdueReviews(ctx context.Context, cutoff time.Time) ([]*PaymentRequest, error)
}

// invoiceHolds reports whether a request in this status still reserves its
// invoice number.
func invoiceHolds(s Status) bool {
	switch s {
	case StatusFailed, StatusCancelled:
		return false
	}
	return true
}
