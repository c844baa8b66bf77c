package escrow

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"keystone/internal/tax"
	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
)

// MilestoneParams describes one milestone at account creation. Exactly one
// of Percentage or Amount must be positive.
type MilestoneParams struct {
	Description string                `json:"description"`
	Percentage  decimal.Decimal       `json:"percentage"`
	Amount      decimal.Decimal       `json:"amount"`
	DueDate     *time.Time            `json:"due_date,omitempty"`
	Requires    []ApprovalRequirement `json:"requires"`
}

// CreateParams is everything needed to open an escrow account.
type CreateParams struct {
	ContractRef    string            `json:"contract_ref"`
	Funder         Party             `json:"funder"`
	Recipient      Party             `json:"recipient"`
	Subcontractors []Party           `json:"subcontractors,omitempty"`
	Location       Location          `json:"location"`
	Terms          FundingTerms      `json:"terms"`
	Milestones     []MilestoneParams `json:"milestones"`
}

// NewAccount validates params and builds a PendingFunding account. All
// financial-amount validation happens here, before anything is persisted.
func NewAccount(params CreateParams, now time.Time, defaultDeadline time.Duration) (*EscrowAccount, error) {
	if params.ContractRef == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "contract reference is required")
	}
	if params.Funder.ID == "" || params.Recipient.ID == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "funder and recipient are required")
	}
	if params.Funder.Type != PartyGovernment && params.Funder.Type != PartyPrivate {
		return nil, domainerrors.Newf(domainerrors.CodeValidation, "unknown funder type %q", params.Funder.Type)
	}
	if !tax.Valid(params.Location.Jurisdiction) {
		return nil, domainerrors.Newf(domainerrors.CodeValidation, "unknown jurisdiction %q", params.Location.Jurisdiction)
	}
	if !money.IsPositive(params.Terms.TotalAmount) {
		return nil, domainerrors.New(domainerrors.CodeValidation, "committed total must be positive")
	}
	if len(params.Milestones) == 0 {
		return nil, domainerrors.New(domainerrors.CodeValidation, "at least one milestone is required")
	}

	total := money.Round2(params.Terms.TotalAmount)
	account := &EscrowAccount{
		ID:             uuid.New(),
		ContractRef:    params.ContractRef,
		Funder:         params.Funder,
		Recipient:      params.Recipient,
		Subcontractors: params.Subcontractors,
		TotalAmount:    total,
		Deposited:      money.Zero,
		Held:           money.Zero,
		Released:       money.Zero,
		Fees:           money.Zero,
		Status:         StatusPendingFunding,
		Location:       params.Location,
		CreatedAt:      now,
	}
	if params.Location.OnReserve {
		account.TaxExemptReason = tax.ReasonOnReserveDelivery
	}
	if params.Terms.Deadline != nil {
		account.FundingDeadline = *params.Terms.Deadline
	} else {
		account.FundingDeadline = now.Add(defaultDeadline)
	}
	if !account.FundingDeadline.After(now) {
		return nil, domainerrors.New(domainerrors.CodeValidation, "funding deadline must be in the future")
	}

	sum := money.Zero
	for i, mp := range params.Milestones {
		m, err := newMilestone(account.ID, mp)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidation,
				"milestone "+strconv.Itoa(i)+" invalid")
		}
		sum = sum.Add(m.ReleaseAmount(total))
		account.Milestones = append(account.Milestones, m)
	}

	// The commitment must be exactly covered: a shortfall strands held
	// funds, an excess over-releases.
	if !sum.Equal(total) {
		return nil, domainerrors.Newf(domainerrors.CodeValidation,
			"milestone amounts sum to %s, committed total is %s", sum, total)
	}

	return account, nil
}

func newMilestone(accountID uuid.UUID, params MilestoneParams) (*Milestone, error) {
	if params.Description == "" {
		return nil, domainerrors.New(domainerrors.CodeValidation, "description is required")
	}
	hasPct := params.Percentage.Sign() != 0
	hasAmt := params.Amount.Sign() != 0
	if hasPct == hasAmt {
		return nil, domainerrors.New(domainerrors.CodeValidation,
			"exactly one of percentage or amount must be set")
	}
	if money.IsNegative(params.Percentage) || money.IsNegative(params.Amount) {
		return nil, domainerrors.New(domainerrors.CodeValidation, "milestone amounts must be positive")
	}
	if hasPct && params.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, domainerrors.New(domainerrors.CodeValidation, "percentage must not exceed 100")
	}
	if len(params.Requires) == 0 {
		return nil, domainerrors.New(domainerrors.CodeValidation, "at least one approval requirement is required")
	}

	seen := make(map[string]bool, len(params.Requires))
	hasRequired := false
	for _, req := range params.Requires {
		if !KnownApproverType(req.Type) {
			return nil, domainerrors.Newf(domainerrors.CodeValidation, "unknown approver type %q", req.Type)
		}
		if req.ApproverID == "" {
			return nil, domainerrors.New(domainerrors.CodeValidation, "approver id is required")
		}
		if seen[req.ApproverID] {
			return nil, domainerrors.Newf(domainerrors.CodeValidation, "duplicate approver %q", req.ApproverID)
		}
		seen[req.ApproverID] = true
		if req.Required {
			hasRequired = true
		}
	}
	if !hasRequired {
		return nil, domainerrors.New(domainerrors.CodeValidation,
			"at least one required approval is needed; a milestone nobody must approve would release unchecked")
	}

	return &Milestone{
		ID:          uuid.New(),
		AccountID:   accountID,
		Description: params.Description,
		Percentage:  params.Percentage,
		Amount:      money.Round2(params.Amount),
		DueDate:     params.DueDate,
		Requires:    params.Requires,
		Status:      MilestonePending,
	}, nil
}
