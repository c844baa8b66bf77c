package handler

import (
	"github.com/shopspring/decimal"

	"keystone/internal/quickpay"
	domainerrors "keystone/pkg/domain-errors"
)

// SubmitRequest is the POST /quickpay/requests body. Amounts arrive as
// strings so precision survives the wire.
type SubmitRequest struct {
	BusinessID        string `json:"business_id"`
	ContractRef       string `json:"contract_ref"`
	InvoiceNumber     string `json:"invoice_number"`
	Amount            string `json:"amount"`
	PayerJurisdiction string `json:"payer_jurisdiction"`
	PayeeJurisdiction string `json:"payee_jurisdiction"`
}

// ToInput parses the body into a submit input.
func (r SubmitRequest) ToInput() (quickpay.SubmitInput, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return quickpay.SubmitInput{}, domainerrors.Newf(domainerrors.CodeValidation,
			"invalid amount %q", r.Amount)
	}
	return quickpay.SubmitInput{
		BusinessID:        r.BusinessID,
		ContractRef:       r.ContractRef,
		InvoiceNumber:     r.InvoiceNumber,
		Amount:            amount,
		PayerJurisdiction: r.PayerJurisdiction,
		PayeeJurisdiction: r.PayeeJurisdiction,
	}, nil
}

// RejectRequest is the POST /quickpay/requests/{id}/reject body.
type RejectRequest struct {
	Reason string `json:"reason"`
}
