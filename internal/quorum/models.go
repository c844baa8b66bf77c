// Package quorum tracks milestone approvals and decides when a release is
// authorized. It holds no authority over approver identity; the escrow
// service authenticates approvers against the contract's authorized list
// before anything reaches Submit.
package quorum

import (
	"time"

	"github.com/google/uuid"

	"keystone/internal/escrow"
)

// Approval is one approver's immutable signature on one milestone.
// Approvals are append-only; they are never edited or removed.
type Approval struct {
	ID          uuid.UUID           `json:"id"`
	MilestoneID uuid.UUID           `json:"milestone_id"`
	ApproverID  string              `json:"approver_id"`
	Type        escrow.ApproverType `json:"type"`
	SubmittedAt time.Time           `json:"submitted_at"`
	// Evidence holds opaque references (document ids, inspection report
	// urls) attached by the approver.
	Evidence []string `json:"evidence,omitempty"`
}
