package handler

import (
	"time"

	"keystone/internal/quickpay"
)

// RequestResponse is the wire shape of a payment request.
type RequestResponse struct {
	ID                string     `json:"id"`
	BusinessID        string     `json:"business_id"`
	ContractRef       string     `json:"contract_ref"`
	InvoiceNumber     string     `json:"invoice_number"`
	Amount            string     `json:"amount"`
	Fee               string     `json:"fee"`
	Net               string     `json:"net"`
	Status            string     `json:"status"`
	RequiresReview    bool       `json:"requires_review"`
	VerificationScore float64    `json:"verification_score"`
	RiskScore         float64    `json:"risk_score"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	TransferID        string     `json:"transfer_id,omitempty"`
	SubmittedAt       time.Time  `json:"submitted_at"`
	EstimatedArrival  *time.Time `json:"estimated_arrival,omitempty"`
	ActualArrival     *time.Time `json:"actual_arrival,omitempty"`
}

// FromRequest maps a payment request to its wire shape.
func FromRequest(req *quickpay.PaymentRequest) RequestResponse {
	return RequestResponse{
		ID:                req.ID.String(),
		BusinessID:        req.BusinessID,
		ContractRef:       req.ContractRef,
		InvoiceNumber:     req.InvoiceNumber,
		Amount:            req.Amount.String(),
		Fee:               req.Fee.String(),
		Net:               req.Net.String(),
		Status:            string(req.Status),
		RequiresReview:    req.RequiresReview,
		VerificationScore: req.VerificationScore,
		RiskScore:         req.RiskScore,
		FailureReason:     req.FailureReason,
		TransferID:        req.TransferID,
		SubmittedAt:       req.SubmittedAt,
		EstimatedArrival:  req.EstimatedArrival,
		ActualArrival:     req.ActualArrival,
	}
}
