package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists the account aggregate (account plus milestones). Update
// writes the whole aggregate; callers hold the service's per-account lock,
// so stores don't need optimistic versioning on top.
type Store interface {
	Create(ctx context.Context, account *EscrowAccount) error
	Get(ctx context.Context, id uuid.UUID) (*EscrowAccount, error)
	Update(ctx context.Context, account *EscrowAccount) error
	// ListPendingFundingBefore returns accounts still awaiting funding whose
	// deadline is before cutoff; used by the expiry sweep.
	ListPendingFundingBefore(ctx context.Context, cutoff time.Time) ([]*EscrowAccount, error)
}
