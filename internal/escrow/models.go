// Package escrow defines the trust-account aggregate: parties, milestones,
// balances, and the account state machine. The service package owns all
// mutation; everything here is data and transition rules.
package escrow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/tax"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
)

// AccountStatus is the escrow account lifecycle state.
type AccountStatus string

const (
	// StatusPendingFunding: created, validated, no balance yet.
	StatusPendingFunding AccountStatus = "pending_funding"
	// StatusActive: fully funded, milestones releasable.
	StatusActive AccountStatus = "active"
	// StatusReleasing: a milestone release is in flight.
	StatusReleasing AccountStatus = "releasing"
	// StatusCompleted: every milestone released. Terminal.
	StatusCompleted AccountStatus = "completed"
	// StatusDisputed: remaining held funds frozen pending external manual
	// resolution. Terminal as far as this engine is concerned.
	StatusDisputed AccountStatus = "disputed"
	// StatusExpired: funding deadline passed before any deposit. Terminal.
	StatusExpired AccountStatus = "expired"
)

// PartyType tags the kind of entity behind a party.
type PartyType string

const (
	PartyGovernment PartyType = "government"
	PartyPrivate    PartyType = "private"
)

// Party identifies a funding party, recipient, or subcontractor.
type Party struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type PartyType `json:"type"`
	// IndigenousOwned is reporting metadata (and a leverage-calculator
	// input). It never participates in release logic.
	IndigenousOwned bool `json:"indigenous_owned,omitempty"`
}

// Location carries the jurisdiction facts the tax engine needs.
type Location struct {
	Jurisdiction tax.Jurisdiction `json:"jurisdiction"`
	// OnReserve flags on-reserve delivery; relevant only to tax exemption.
	OnReserve bool `json:"on_reserve,omitempty"`
}

// ApproverType classifies who signs off on a milestone.
type ApproverType string

const (
	ApproverCommunity  ApproverType = "community"
	ApproverGovernment ApproverType = "government"
	ApproverEngineer   ApproverType = "engineer"
	ApproverAutomated  ApproverType = "automated_verification"
)

// KnownApproverType reports whether t is one of the defined approver types.
func KnownApproverType(t ApproverType) bool {
	switch t {
	case ApproverCommunity, ApproverGovernment, ApproverEngineer, ApproverAutomated:
		return true
	}
	return false
}

// ApprovalRequirement is one approver slot on a milestone.
type ApprovalRequirement struct {
	Type ApproverType `json:"type"`
	// ApproverID resolves to a real identity in the contract's
	// authorized-approver list.
	ApproverID string `json:"approver_id"`
	// Required approvals gate release; optional ones are advisory and never
	// block quorum.
	Required bool `json:"required"`
}

// MilestoneStatus is the milestone lifecycle state.
type MilestoneStatus string

const (
	MilestonePending  MilestoneStatus = "pending"
	MilestoneApproved MilestoneStatus = "approved"
	MilestoneReleased MilestoneStatus = "released"
	MilestoneDisputed MilestoneStatus = "disputed"
)

// Milestone is one deliverable unlocking a portion of escrowed funds.
// Exactly one of Percentage or Amount is set.
type Milestone struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Description string          `json:"description"`
	Percentage  decimal.Decimal `json:"percentage"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Requires    []ApprovalRequirement `json:"requires"`
	Status      MilestoneStatus `json:"status"`
}

// ReleaseAmount computes the funds this milestone unlocks against the
// account's committed total.
func (m *Milestone) ReleaseAmount(committed decimal.Decimal) decimal.Decimal {
	if m.Percentage.Sign() > 0 {
		return money.Percent(committed, m.Percentage)
	}
	return money.Round2(m.Amount)
}

// FundingTerms describe the commitment the funder makes at creation.
type FundingTerms struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	// Deadline bounds how long the account may sit unfunded; zero means the
	// configured default applies.
	Deadline *time.Time `json:"deadline,omitempty"`
}

// EscrowAccount is the aggregate root for one funded trust relationship.
//
// Invariants:
//   - Held + Released + Fees == Deposited at all times
//   - Held >= 0
//   - sum of milestone amounts == TotalAmount (checked at creation)
//   - balances only move under the service's per-account lock
type EscrowAccount struct {
	ID          uuid.UUID `json:"id"`
	ContractRef string    `json:"contract_ref"`

	Funder         Party   `json:"funder"`
	Recipient      Party   `json:"recipient"`
	Subcontractors []Party `json:"subcontractors,omitempty"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	Deposited   decimal.Decimal `json:"deposited"`
	Held        decimal.Decimal `json:"held"`
	Released    decimal.Decimal `json:"released"`
	Fees        decimal.Decimal `json:"fees"`

	Status   AccountStatus `json:"status"`
	Location Location      `json:"location"`

	// TaxExemptReason is recorded at creation when the location is
	// on-reserve, so downstream tax computation and audits agree.
	TaxExemptReason string `json:"tax_exempt_reason,omitempty"`

	FundingDeadline  time.Time `json:"funding_deadline"`
	FundingReference string    `json:"funding_reference,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	DisputeReason string `json:"dispute_reason,omitempty"`

	Milestones []*Milestone `json:"milestones"`
}

// Milestone returns the milestone with the given id, or nil.
func (a *EscrowAccount) Milestone(id uuid.UUID) *Milestone {
	for _, m := range a.Milestones {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// CheckBalances verifies the ledger invariant. Stores call it before
// persisting; a violation is a programming error surfaced loudly rather
// than written to disk.
func (a *EscrowAccount) CheckBalances() error {
	if money.IsNegative(a.Held) {
		return domainerrors.Newf(domainerrors.CodeInternal, "account %s held balance is negative", a.ID)
	}
	sum := a.Held.Add(a.Released).Add(a.Fees)
	if !sum.Equal(a.Deposited) {
		return domainerrors.Newf(domainerrors.CodeInternal,
			"account %s balance mismatch: held %s + released %s + fees %s != deposited %s",
			a.ID, a.Held, a.Released, a.Fees, a.Deposited)
	}
	return nil
}

// CanFund checks the funding transition.
func (a *EscrowAccount) CanFund(amount decimal.Decimal, now time.Time) error {
	if a.Status != StatusPendingFunding {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"account %s is %s, not pending funding", a.ID, a.Status)
	}
	if now.After(a.FundingDeadline) {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"account %s funding deadline has passed", a.ID)
	}
	// Funds must arrive atomically; partial funding is rejected outright so
	// the engine never manages fractional trust states.
	if !amount.Equal(a.TotalAmount) {
		return domainerrors.Newf(domainerrors.CodeValidation,
			"funding amount %s must equal committed total %s", amount, a.TotalAmount)
	}
	return nil
}

// ApplyFunding transitions PendingFunding -> Active and sets the balances.
// Call CanFund first.
func (a *EscrowAccount) ApplyFunding(amount decimal.Decimal, reference string, now time.Time) {
	a.Deposited = amount
	a.Held = amount
	a.Released = money.Zero
	a.Fees = money.Zero
	a.Status = StatusActive
	a.FundingReference = reference
	t := now
	a.ActivatedAt = &t
}

// CanBeginRelease checks that a milestone release may start.
func (a *EscrowAccount) CanBeginRelease() error {
	if a.Status != StatusActive {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"account %s is %s, releases require an active account", a.ID, a.Status)
	}
	return nil
}

// BeginRelease transitions Active -> Releasing.
func (a *EscrowAccount) BeginRelease() {
	a.Status = StatusReleasing
}

// ApplyRelease moves the gross amount out of held for the given milestone
// (net to released, fee to the accrued fee balance) and finishes the
// release, completing the account when no unreleased milestones remain.
func (a *EscrowAccount) ApplyRelease(m *Milestone, gross, fee decimal.Decimal, now time.Time) error {
	if a.Status != StatusReleasing {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"account %s is %s, not releasing", a.ID, a.Status)
	}
	if gross.GreaterThan(a.Held) {
		return domainerrors.Newf(domainerrors.CodeValidation,
			"release amount %s exceeds held balance %s", gross, a.Held)
	}
	if money.IsNegative(fee) || fee.GreaterThan(gross) {
		return domainerrors.Newf(domainerrors.CodeValidation,
			"fee %s out of range for release %s", fee, gross)
	}
	a.Held = a.Held.Sub(gross)
	a.Released = a.Released.Add(gross.Sub(fee))
	a.Fees = a.Fees.Add(fee)
	m.Status = MilestoneReleased

	if a.allReleased() {
		a.Status = StatusCompleted
		t := now
		a.CompletedAt = &t
	} else {
		a.Status = StatusActive
	}
	return a.CheckBalances()
}

// AbortRelease returns a Releasing account to Active without moving funds,
// used when quorum or disbursement setup fails after the state was taken.
func (a *EscrowAccount) AbortRelease() {
	if a.Status == StatusReleasing {
		a.Status = StatusActive
	}
}

// CanDispute checks the dispute transition. Disputes are legal while funds
// are held (Active or mid-release); already-released amounts are never
// clawed back.
func (a *EscrowAccount) CanDispute() error {
	if a.Status != StatusActive && a.Status != StatusReleasing {
		return domainerrors.Newf(domainerrors.CodeStateConflict,
			"account %s is %s and cannot be disputed", a.ID, a.Status)
	}
	return nil
}

// ApplyDispute freezes all remaining held funds.
func (a *EscrowAccount) ApplyDispute(reason string) {
	a.Status = StatusDisputed
	a.DisputeReason = reason
	for _, m := range a.Milestones {
		if m.Status == MilestonePending || m.Status == MilestoneApproved {
			m.Status = MilestoneDisputed
		}
	}
}

// CanExpire reports whether the account should terminally fail for lack of
// funding.
func (a *EscrowAccount) CanExpire(now time.Time) bool {
	return a.Status == StatusPendingFunding && now.After(a.FundingDeadline)
}

// ApplyExpiry transitions PendingFunding -> Expired.
func (a *EscrowAccount) ApplyExpiry() {
	a.Status = StatusExpired
}

func (a *EscrowAccount) allReleased() bool {
	for _, m := range a.Milestones {
		if m.Status != MilestoneReleased {
			return false
		}
	}
	return true
}
