// Package ledger is the append-only transaction log backing escrow balance
// movements. One entry per movement; entries are never updated or deleted,
// so the account's balances can always be re-derived for audit.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType classifies a balance movement.
type EntryType string

const (
	// EntryDeposit: full funding arrived, held increases.
	EntryDeposit EntryType = "deposit"
	// EntryRelease: milestone funds moved from held to released.
	EntryRelease EntryType = "release"
	// EntryFee: fee accrued against the account.
	EntryFee EntryType = "fee"
	// EntryFreeze: remaining held funds frozen by dispute. Zero-sum marker
	// entry; balances don't move, but the audit trail shows when and why
	// the hold began.
	EntryFreeze EntryType = "freeze"
)

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	MilestoneID *uuid.UUID      `json:"milestone_id,omitempty"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
