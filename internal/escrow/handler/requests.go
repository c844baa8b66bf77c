package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"keystone/internal/escrow"
	"keystone/internal/tax"
	domainerrors "keystone/pkg/domain-errors"
)

// CreateRequest is the POST /escrow/accounts body. Amounts arrive as
// strings so precision survives the wire.
type CreateRequest struct {
	ContractRef    string             `json:"contract_ref"`
	Funder         PartyRequest       `json:"funder"`
	Recipient      PartyRequest       `json:"recipient"`
	Subcontractors []PartyRequest     `json:"subcontractors,omitempty"`
	Jurisdiction   string             `json:"jurisdiction"`
	OnReserve      bool               `json:"on_reserve,omitempty"`
	TotalAmount    string             `json:"total_amount"`
	Deadline       *time.Time         `json:"funding_deadline,omitempty"`
	Milestones     []MilestoneRequest `json:"milestones"`
}

// PartyRequest is the wire shape of a party.
type PartyRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	IndigenousOwned bool   `json:"indigenous_owned,omitempty"`
}

// MilestoneRequest is the wire shape of a milestone at creation.
type MilestoneRequest struct {
	Description string               `json:"description"`
	Percentage  string               `json:"percentage,omitempty"`
	Amount      string               `json:"amount,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	Requires    []RequirementRequest `json:"requires"`
}

// RequirementRequest is one approver slot.
type RequirementRequest struct {
	Type       string `json:"type"`
	ApproverID string `json:"approver_id"`
	Required   bool   `json:"required"`
}

// ToParams parses the body into creation params.
func (r CreateRequest) ToParams() (escrow.CreateParams, error) {
	total, err := parseAmount(r.TotalAmount, "total_amount")
	if err != nil {
		return escrow.CreateParams{}, err
	}
	params := escrow.CreateParams{
		ContractRef: r.ContractRef,
		Funder:      r.Funder.toParty(),
		Recipient:   r.Recipient.toParty(),
		Location: escrow.Location{
			Jurisdiction: tax.Jurisdiction(r.Jurisdiction),
			OnReserve:    r.OnReserve,
		},
		Terms: escrow.FundingTerms{
			TotalAmount: total,
			Deadline:    r.Deadline,
		},
	}
	for _, sub := range r.Subcontractors {
		params.Subcontractors = append(params.Subcontractors, sub.toParty())
	}
	for _, m := range r.Milestones {
		mp, err := m.toParams()
		if err != nil {
			return escrow.CreateParams{}, err
		}
		params.Milestones = append(params.Milestones, mp)
	}
	return params, nil
}

func (p PartyRequest) toParty() escrow.Party {
	return escrow.Party{
		ID:              p.ID,
		Name:            p.Name,
		Type:            escrow.PartyType(p.Type),
		IndigenousOwned: p.IndigenousOwned,
	}
}

func (m MilestoneRequest) toParams() (escrow.MilestoneParams, error) {
	params := escrow.MilestoneParams{
		Description: m.Description,
		DueDate:     m.DueDate,
	}
	var err error
	if m.Percentage != "" {
		if params.Percentage, err = parseAmount(m.Percentage, "percentage"); err != nil {
			return escrow.MilestoneParams{}, err
		}
	}
	if m.Amount != "" {
		if params.Amount, err = parseAmount(m.Amount, "amount"); err != nil {
			return escrow.MilestoneParams{}, err
		}
	}
	for _, req := range m.Requires {
		params.Requires = append(params.Requires, escrow.ApprovalRequirement{
			Type:       escrow.ApproverType(req.Type),
			ApproverID: req.ApproverID,
			Required:   req.Required,
		})
	}
	return params, nil
}

func parseAmount(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domainerrors.Newf(domainerrors.CodeValidation,
			"invalid %s %q", field, s)
	}
	return d, nil
}

// FundRequest is the POST /escrow/accounts/{id}/fund body.
type FundRequest struct {
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

// ApprovalRequest is the approval submission body.
type ApprovalRequest struct {
	ApproverID string   `json:"approver_id"`
	Type       string   `json:"type"`
	Evidence   []string `json:"evidence,omitempty"`
}

// DisputeRequest is the POST /escrow/accounts/{id}/dispute body.
type DisputeRequest struct {
	Reason   string   `json:"reason"`
	Evidence []string `json:"evidence,omitempty"`
}
