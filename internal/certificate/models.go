// Package certificate derives bankable payment certificates from funded,
// government-backed escrow accounts, plus the private-capital leverage
// estimate lenders use against them.
package certificate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentCertificate is a government-backed guarantee document usable as
// loan collateral. Issued once at first government deposit; immutable after
// issuance except for expiry.
type PaymentCertificate struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`

	GuaranteeAmount decimal.Decimal `json:"guarantee_amount"`
	Guarantor       string          `json:"guarantor"`
	IssuedAt        time.Time       `json:"issued_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
	Conditions      []string        `json:"conditions,omitempty"`

	// Banking parameters lenders price against.
	LoanToValue   decimal.Decimal `json:"loan_to_value"`
	RiskRating    string          `json:"risk_rating"`
	SuggestedRate decimal.Decimal `json:"suggested_rate"`

	// LeveragePotential is the additive-model estimate of private capital
	// this guarantee can unlock.
	LeveragePotential decimal.Decimal `json:"leverage_potential"`

	// Proof is the tamper-evident reference: a signed token over the
	// certificate's financial terms. Anyone holding the signing key can
	// verify the certificate was not altered after issuance.
	Proof string `json:"proof"`
}

// Expired reports whether the certificate has lapsed.
func (c *PaymentCertificate) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
