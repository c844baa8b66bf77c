package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keystone/pkg/money"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeOntarioHST(t *testing.T) {
	b, err := Compute(amt("1000"), Ontario, ExemptionFacts{})
	require.NoError(t, err)
	assert.True(t, b.HST.Equal(amt("130")), "hst = %s", b.HST)
	assert.True(t, b.GST.IsZero())
	assert.True(t, b.PST.IsZero())
	assert.True(t, b.Total.Equal(amt("1130")))
}

func TestComputeBritishColumbiaGSTPlusPST(t *testing.T) {
	b, err := Compute(amt("200"), BritishColumbia, ExemptionFacts{})
	require.NoError(t, err)
	assert.True(t, b.GST.Equal(amt("10")), "gst = %s", b.GST)
	assert.True(t, b.PST.Equal(amt("14")), "pst = %s", b.PST)
	assert.True(t, b.Total.Equal(amt("224")))
}

// Quebec QST compounds on (amount + GST). For $1,000: GST $50.00, QST
// $1,050 x 0.09975 = $104.74 after rounding, total $1,154.74.
func TestComputeQuebecCompounding(t *testing.T) {
	b, err := Compute(amt("1000"), Quebec, ExemptionFacts{})
	require.NoError(t, err)
	assert.True(t, b.GST.Equal(amt("50")), "gst = %s", b.GST)
	assert.True(t, b.PST.Equal(amt("104.74")), "qst = %s", b.PST)
	assert.True(t, b.Total.Equal(amt("1154.74")), "total = %s", b.Total)
}

func TestComputeGSTOnlyTerritories(t *testing.T) {
	for _, j := range []Jurisdiction{Alberta, Yukon, NorthwestTerritories, Nunavut} {
		b, err := Compute(amt("100"), j, ExemptionFacts{})
		require.NoError(t, err)
		assert.True(t, b.GST.Equal(amt("5")), "%s gst = %s", j, b.GST)
		assert.True(t, b.PST.IsZero(), "%s", j)
		assert.True(t, b.HST.IsZero(), "%s", j)
	}
}

func TestComputeUnknownJurisdiction(t *testing.T) {
	_, err := Compute(amt("100"), Jurisdiction("XX"), ExemptionFacts{})
	assert.Error(t, err)
}

func TestExemptionPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		facts  ExemptionFacts
		j      Jurisdiction
		exempt bool
		reason string
	}{
		{
			name:   "certificate wins over everything",
			facts:  ExemptionFacts{ExemptionCertificate: true, OnReserve: true, RegistrationNumber: "R123"},
			j:      Ontario,
			exempt: true,
			reason: ReasonExemptionCertificate,
		},
		{
			name:   "on-reserve beats registration",
			facts:  ExemptionFacts{OnReserve: true, RegistrationNumber: "R123"},
			j:      Ontario,
			exempt: true,
			reason: ReasonOnReserveDelivery,
		},
		{
			name:   "registration applies in point-of-sale jurisdictions",
			facts:  ExemptionFacts{RegistrationNumber: "R123"},
			j:      Ontario,
			exempt: true,
			reason: ReasonPointOfSale,
		},
		{
			name:   "registration ignored where no point-of-sale relief",
			facts:  ExemptionFacts{RegistrationNumber: "R123"},
			j:      Quebec,
			exempt: false,
		},
		{
			name:   "no facts, no exemption",
			facts:  ExemptionFacts{},
			j:      Ontario,
			exempt: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Compute(amt("500"), tc.j, tc.facts)
			require.NoError(t, err)
			assert.Equal(t, tc.exempt, b.IsExempt)
			if tc.exempt {
				assert.Equal(t, tc.reason, b.ExemptReason)
				assert.True(t, b.GST.IsZero())
				assert.True(t, b.PST.IsZero())
				assert.True(t, b.HST.IsZero())
				assert.True(t, b.Total.Equal(b.Subtotal))
			}
		})
	}
}

// Round-trip property: for all jurisdictions and a spread of amounts,
// extracting the subtotal from a computed total recovers the amount within a
// cent, and recomputing from the extracted subtotal lands back on the total.
func TestExtractTaxFromTotalRoundTrip(t *testing.T) {
	amounts := []string{"0.01", "1", "19.99", "100", "1234.56", "99999.99", "1000000"}
	for _, j := range Jurisdictions() {
		for _, a := range amounts {
			amount := amt(a)
			fwd, err := Compute(amount, j, ExemptionFacts{})
			require.NoError(t, err)

			back, err := ExtractTaxFromTotal(fwd.Total, j)
			require.NoError(t, err)
			assert.True(t, money.EqualWithinCent(back.Subtotal, amount),
				"%s %s: extracted %s", j, a, back.Subtotal)

			again, err := Compute(back.Subtotal, j, ExemptionFacts{})
			require.NoError(t, err)
			assert.True(t, money.EqualWithinCent(again.Total, fwd.Total),
				"%s %s: recomputed total %s vs %s", j, a, again.Total, fwd.Total)
		}
	}
}

func TestComputeRejectsNegative(t *testing.T) {
	_, err := Compute(amt("-1"), Ontario, ExemptionFacts{})
	assert.Error(t, err)
	_, err = ExtractTaxFromTotal(amt("-1"), Ontario)
	assert.Error(t, err)
}
