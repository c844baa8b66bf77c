package handler

import (
	"time"

	"keystone/internal/certificate"
	"keystone/internal/escrow"
	"keystone/internal/ledger"
	"keystone/internal/quorum"
)

// AccountResponse is the wire shape of an escrow account.
type AccountResponse struct {
	ID              string              `json:"id"`
	ContractRef     string              `json:"contract_ref"`
	Status          string              `json:"status"`
	TotalAmount     string              `json:"total_amount"`
	Deposited       string              `json:"deposited"`
	Held            string              `json:"held"`
	Released        string              `json:"released"`
	Fees            string              `json:"fees"`
	Jurisdiction    string              `json:"jurisdiction"`
	OnReserve       bool                `json:"on_reserve,omitempty"`
	TaxExemptReason string              `json:"tax_exempt_reason,omitempty"`
	FundingDeadline time.Time           `json:"funding_deadline"`
	CreatedAt       time.Time           `json:"created_at"`
	ActivatedAt     *time.Time          `json:"activated_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	DisputeReason   string              `json:"dispute_reason,omitempty"`
	Milestones      []MilestoneResponse `json:"milestones"`
}

// MilestoneResponse is the wire shape of a milestone.
type MilestoneResponse struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Percentage  string     `json:"percentage"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// FromAccount maps an account to its wire shape.
func FromAccount(a *escrow.EscrowAccount) AccountResponse {
	resp := AccountResponse{
		ID:              a.ID.String(),
		ContractRef:     a.ContractRef,
		Status:          string(a.Status),
		TotalAmount:     a.TotalAmount.String(),
		Deposited:       a.Deposited.String(),
		Held:            a.Held.String(),
		Released:        a.Released.String(),
		Fees:            a.Fees.String(),
		Jurisdiction:    string(a.Location.Jurisdiction),
		OnReserve:       a.Location.OnReserve,
		TaxExemptReason: a.TaxExemptReason,
		FundingDeadline: a.FundingDeadline,
		CreatedAt:       a.CreatedAt,
		ActivatedAt:     a.ActivatedAt,
		CompletedAt:     a.CompletedAt,
		DisputeReason:   a.DisputeReason,
	}
	for _, m := range a.Milestones {
		resp.Milestones = append(resp.Milestones, FromMilestone(m))
	}
	return resp
}

// FromMilestone maps a milestone to its wire shape.
func FromMilestone(m *escrow.Milestone) MilestoneResponse {
	return MilestoneResponse{
		ID:          m.ID.String(),
		Description: m.Description,
		Percentage:  m.Percentage.String(),
		Amount:      m.Amount.String(),
		Status:      string(m.Status),
		DueDate:     m.DueDate,
	}
}

// ApprovalResponse is the wire shape of one approval record.
type ApprovalResponse struct {
	ApproverID  string    `json:"approver_id"`
	Type        string    `json:"type"`
	SubmittedAt time.Time `json:"submitted_at"`
	Evidence    []string  `json:"evidence,omitempty"`
}

// FromApprovals maps the approval log to its wire shape.
func FromApprovals(approvals []quorum.Approval) []ApprovalResponse {
	out := make([]ApprovalResponse, 0, len(approvals))
	for _, a := range approvals {
		out = append(out, ApprovalResponse{
			ApproverID:  a.ApproverID,
			Type:        string(a.Type),
			SubmittedAt: a.SubmittedAt,
			Evidence:    a.Evidence,
		})
	}
	return out
}

// TransactionResponse is the wire shape of one ledger entry.
type TransactionResponse struct {
	ID          string    `json:"id"`
	MilestoneID string    `json:"milestone_id,omitempty"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromTransactions maps the ledger log to its wire shape.
func FromTransactions(entries []ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(entries))
	for _, e := range entries {
		resp := TransactionResponse{
			ID:        e.ID.String(),
			Type:      string(e.Type),
			Amount:    e.Amount.String(),
			Reference: e.Reference,
			CreatedAt: e.CreatedAt,
		}
		if e.MilestoneID != nil {
			resp.MilestoneID = e.MilestoneID.String()
		}
		out = append(out, resp)
	}
	return out
}

// CertificateResponse is the wire shape of a payment certificate.
type CertificateResponse struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	GuaranteeAmount   string    `json:"guarantee_amount"`
	Guarantor         string    `json:"guarantor"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Conditions        []string  `json:"conditions,omitempty"`
	LoanToValue       string    `json:"loan_to_value"`
	RiskRating        string    `json:"risk_rating"`
	SuggestedRate     string    `json:"suggested_rate"`
	LeveragePotential string    `json:"leverage_potential"`
	Proof             string    `json:"proof"`
}

// FromCertificate maps a certificate to its wire shape.
func FromCertificate(c *certificate.PaymentCertificate) CertificateResponse {
	return CertificateResponse{
		ID:                c.ID.String(),
		AccountID:         c.AccountID.String(),
		GuaranteeAmount:   c.GuaranteeAmount.String(),
		Guarantor:         c.Guarantor,
		IssuedAt:          c.IssuedAt,
		ExpiresAt:         c.ExpiresAt,
		Conditions:        c.Conditions,
		LoanToValue:       c.LoanToValue.String(),
		RiskRating:        c.RiskRating,
		SuggestedRate:     c.SuggestedRate.String(),
		LeveragePotential: c.LeveragePotential.String(),
		Proof:             c.Proof,
	}
}
