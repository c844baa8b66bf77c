package quorum

import (
	"context"

	"github.com/google/uuid"

	"keystone/internal/escrow"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/requestcontext"
)

// Store is the append-only approval log. Append must be atomic
// compare-and-append on (milestone, approver): concurrent submissions for
// different approvers both land, and a duplicate from the same approver
// reports added=false without erroring.
type Store interface {
	// Append records the approval unless one from the same approver already
	// exists for the milestone.
	Append(ctx context.Context, approval Approval) (added bool, err error)
	// List returns all approvals for a milestone.
	List(ctx context.Context, milestoneID uuid.UUID) ([]Approval, error)
}

// Engine validates and appends approvals and recomputes quorum.
type Engine struct {
	store Store
}

// New builds a quorum engine over the given approval store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// SubmitInput is one approval submission.
type SubmitInput struct {
	ApproverID string
	Type       escrow.ApproverType
	Evidence   []string
}

// Submit appends an approval to the milestone and returns the milestone
// status after recomputing quorum. Duplicate submissions from the same
// approver are idempotent no-ops, not errors. The caller persists the
// returned status.
func (e *Engine) Submit(ctx context.Context, m *escrow.Milestone, input SubmitInput) (escrow.MilestoneStatus, error) {
	if m.Status != escrow.MilestonePending {
		return m.Status, domainerrors.Newf(domainerrors.CodeStateConflict,
			"milestone %s is %s, approvals are only accepted while pending", m.ID, m.Status)
	}

	req := requirementFor(m, input.ApproverID)
	if req == nil {
		return m.Status, domainerrors.Newf(domainerrors.CodeValidation,
			"approver %q is not on the milestone's approver list", input.ApproverID)
	}
	if req.Type != input.Type {
		return m.Status, domainerrors.Newf(domainerrors.CodeValidation,
			"approver %q submits as %q but is listed as %q", input.ApproverID, input.Type, req.Type)
	}

	approval := Approval{
		ID:          uuid.New(),
		MilestoneID: m.ID,
		ApproverID:  input.ApproverID,
		Type:        input.Type,
		SubmittedAt: requestcontext.Now(ctx),
		Evidence:    input.Evidence,
	}
	if _, err := e.store.Append(ctx, approval); err != nil {
		return m.Status, domainerrors.Wrap(err, domainerrors.CodeInternal, "append approval")
	}

	met, err := e.quorumMet(ctx, m)
	if err != nil {
		return m.Status, err
	}
	if met {
		m.Status = escrow.MilestoneApproved
	}
	return m.Status, nil
}

// Check returns QuorumNotMetError unless every required approver has
// signed. Used by the release path as the authoritative gate.
func (e *Engine) Check(ctx context.Context, m *escrow.Milestone) error {
	met, err := e.quorumMet(ctx, m)
	if err != nil {
		return err
	}
	if !met {
		return domainerrors.Newf(domainerrors.CodeQuorumNotMet,
			"milestone %s is missing required approvals", m.ID)
	}
	return nil
}

// Approvals returns the append-only approval log for a milestone.
func (e *Engine) Approvals(ctx context.Context, milestoneID uuid.UUID) ([]Approval, error) {
	return e.store.List(ctx, milestoneID)
}

// quorumMet holds iff every required approver entry has a matching
// submitted approval. Optional approvers never gate, and order never
// matters.
func (e *Engine) quorumMet(ctx context.Context, m *escrow.Milestone) (bool, error) {
	approvals, err := e.store.List(ctx, m.ID)
	if err != nil {
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "list approvals")
	}
	signed := make(map[string]escrow.ApproverType, len(approvals))
	for _, a := range approvals {
		signed[a.ApproverID] = a.Type
	}
	for _, req := range m.Requires {
		if !req.Required {
			continue
		}
		typ, ok := signed[req.ApproverID]
		if !ok || typ != req.Type {
			return false, nil
		}
	}
	return true, nil
}

func requirementFor(m *escrow.Milestone, approverID string) *escrow.ApprovalRequirement {
	for i := range m.Requires {
		if m.Requires[i].ApproverID == approverID {
			return &m.Requires[i]
		}
	}
	return nil
}
