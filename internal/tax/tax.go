// Package tax computes Canadian sales tax for escrow releases and fees. It
// is a pure function of (amount, jurisdiction, exemption facts); no state,
// no clock, no stores.
package tax

import (
	"github.com/shopspring/decimal"

	domainerrors "keystone/pkg/domain-errors"
	"keystone/pkg/money"
)

// Jurisdiction is a province or territory code.
type Jurisdiction string

const (
	Alberta              Jurisdiction = "AB"
	BritishColumbia      Jurisdiction = "BC"
	Manitoba             Jurisdiction = "MB"
	NewBrunswick         Jurisdiction = "NB"
	NewfoundlandLabrador Jurisdiction = "NL"
	NovaScotia           Jurisdiction = "NS"
	NorthwestTerritories Jurisdiction = "NT"
	Nunavut              Jurisdiction = "NU"
	Ontario              Jurisdiction = "ON"
	PrinceEdwardIsland   Jurisdiction = "PE"
	Quebec               Jurisdiction = "QC"
	Saskatchewan         Jurisdiction = "SK"
	Yukon                Jurisdiction = "YT"
)

// regime is the per-jurisdiction rate table entry. Exactly one of hst or
// gst(+pst) applies.
type regime struct {
	hst decimal.Decimal
	gst decimal.Decimal
	pst decimal.Decimal
	// pstOnGST marks Quebec's QST, which is computed on (amount + GST)
	// rather than on the amount alone. The compounding is a real divergence
	// and must not be "simplified" into a combined rate.
	pstOnGST bool
	// pointOfSaleRelief marks jurisdictions whose point-of-sale rules allow
	// a registered business to purchase exempt.
	pointOfSaleRelief bool
}

var gstRate = decimal.RequireFromString("0.05")

var regimes = map[Jurisdiction]regime{
	Alberta:              {gst: gstRate},
	BritishColumbia:      {gst: gstRate, pst: decimal.RequireFromString("0.07"), pointOfSaleRelief: true},
	Manitoba:             {gst: gstRate, pst: decimal.RequireFromString("0.07"), pointOfSaleRelief: true},
	NewBrunswick:         {hst: decimal.RequireFromString("0.15")},
	NewfoundlandLabrador: {hst: decimal.RequireFromString("0.15")},
	NovaScotia:           {hst: decimal.RequireFromString("0.15")},
	NorthwestTerritories: {gst: gstRate},
	Nunavut:              {gst: gstRate},
	Ontario:              {hst: decimal.RequireFromString("0.13"), pointOfSaleRelief: true},
	PrinceEdwardIsland:   {hst: decimal.RequireFromString("0.15")},
	Quebec:               {gst: gstRate, pst: decimal.RequireFromString("0.09975"), pstOnGST: true},
	Saskatchewan:         {gst: gstRate, pst: decimal.RequireFromString("0.06")},
	Yukon:                {gst: gstRate},
}

// ExemptionFacts are the inputs to the exemption decision, evaluated in
// precedence order: certificate, then on-reserve delivery, then
// point-of-sale registration.
type ExemptionFacts struct {
	// ExemptionCertificate is true when an approved exemption certificate is
	// on file for the payer.
	ExemptionCertificate bool
	// OnReserve is true when the delivery location is flagged on-reserve.
	OnReserve bool
	// RegistrationNumber is the payer's Indigenous business registration
	// number, if any; it only matters in jurisdictions with point-of-sale
	// relief.
	RegistrationNumber string
}

// Exemption reasons recorded for audit.
const (
	ReasonExemptionCertificate = "exemption_certificate"
	ReasonOnReserveDelivery    = "on_reserve_delivery"
	ReasonPointOfSale          = "point_of_sale_registration"
)

// Breakdown is the result of a tax computation. All amounts are rounded to
// cents.
type Breakdown struct {
	Subtotal     decimal.Decimal
	GST          decimal.Decimal
	PST          decimal.Decimal
	HST          decimal.Decimal
	Total        decimal.Decimal
	IsExempt     bool
	ExemptReason string
}

// Compute returns the tax breakdown for amount in the given jurisdiction.
func Compute(amount decimal.Decimal, jurisdiction Jurisdiction, facts ExemptionFacts) (Breakdown, error) {
	r, ok := regimes[jurisdiction]
	if !ok {
		return Breakdown{}, domainerrors.Newf(domainerrors.CodeValidation, "unknown jurisdiction %q", jurisdiction)
	}
	if money.IsNegative(amount) {
		return Breakdown{}, domainerrors.New(domainerrors.CodeValidation, "amount must not be negative")
	}

	subtotal := money.Round2(amount)

	if reason, exempt := exemptReason(r, facts); exempt {
		return Breakdown{
			Subtotal:     subtotal,
			Total:        subtotal,
			IsExempt:     true,
			ExemptReason: reason,
		}, nil
	}

	return apply(subtotal, r), nil
}

// ExtractTaxFromTotal is the exact inverse of Compute for a non-exempt
// amount: given a tax-included total it recovers the subtotal and the
// components, such that Compute(b.Subtotal).Total round-trips to the input
// within a cent.
func ExtractTaxFromTotal(total decimal.Decimal, jurisdiction Jurisdiction) (Breakdown, error) {
	r, ok := regimes[jurisdiction]
	if !ok {
		return Breakdown{}, domainerrors.Newf(domainerrors.CodeValidation, "unknown jurisdiction %q", jurisdiction)
	}
	if money.IsNegative(total) {
		return Breakdown{}, domainerrors.New(domainerrors.CodeValidation, "total must not be negative")
	}

	one := decimal.NewFromInt(1)
	var divisor decimal.Decimal
	switch {
	case r.hst.Sign() > 0:
		divisor = one.Add(r.hst)
	case r.pstOnGST:
		// total = s * (1+gst) * (1+pst)
		divisor = one.Add(r.gst).Mul(one.Add(r.pst))
	default:
		divisor = one.Add(r.gst).Add(r.pst)
	}

	subtotal := money.Round2(total.Div(divisor))
	return apply(subtotal, r), nil
}

func apply(subtotal decimal.Decimal, r regime) Breakdown {
	b := Breakdown{Subtotal: subtotal}
	if r.hst.Sign() > 0 {
		b.HST = money.Rate(subtotal, r.hst)
		b.Total = subtotal.Add(b.HST)
		return b
	}
	b.GST = money.Rate(subtotal, r.gst)
	if r.pst.Sign() > 0 {
		base := subtotal
		if r.pstOnGST {
			base = subtotal.Add(b.GST)
		}
		b.PST = money.Rate(base, r.pst)
	}
	b.Total = subtotal.Add(b.GST).Add(b.PST)
	return b
}

// exemptReason applies the precedence rules; first match wins.
func exemptReason(r regime, facts ExemptionFacts) (string, bool) {
	switch {
	case facts.ExemptionCertificate:
		return ReasonExemptionCertificate, true
	case facts.OnReserve:
		return ReasonOnReserveDelivery, true
	case facts.RegistrationNumber != "" && r.pointOfSaleRelief:
		return ReasonPointOfSale, true
	}
	return "", false
}

// Jurisdictions returns all known jurisdiction codes; used by tests and by
// callers that validate input.
func Jurisdictions() []Jurisdiction {
	out := make([]Jurisdiction, 0, len(regimes))
	for j := range regimes {
		out = append(out, j)
	}
	return out
}

// Valid reports whether j is a known jurisdiction.
func Valid(j Jurisdiction) bool {
	_, ok := regimes[j]
	return ok
}
