// Package velocity tracks per-business request frequency over a trailing
// window. The risk composite buckets the count; the window only counts.
package velocity

import (
	"context"
	"time"
)

// Window records request events and counts them over a trailing interval.
type Window interface {
	// Record notes one submission for the business at the given instant.
	Record(ctx context.Context, businessID, requestID string, at time.Time) error
	// Count returns how many submissions the business made since the cutoff.
	Count(ctx context.Context, businessID string, since time.Time) (int, error)
}
