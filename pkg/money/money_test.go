package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.True(t, Round2(d("1.005")).Equal(d("1.01")))
	assert.True(t, Round2(d("-1.005")).Equal(d("-1.01")))
	assert.True(t, Round2(d("2.344")).Equal(d("2.34")))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(d("100000"), d("100")).Equal(d("100000")))
	assert.True(t, Percent(d("100000"), d("33.33")).Equal(d("33330")))
	assert.True(t, Percent(d("1000"), d("12.5")).Equal(d("125")))
}

func TestRate(t *testing.T) {
	assert.True(t, Rate(d("50000"), d("0.025")).Equal(d("1250")))
	assert.True(t, Rate(d("100"), d("0")).Equal(d("0")))
	// Sub-cent products round to the nearest cent.
	assert.True(t, Rate(d("0.10"), d("0.025")).Equal(d("0")))
	assert.True(t, Rate(d("0.30"), d("0.025")).Equal(d("0.01")))
}

func TestSigns(t *testing.T) {
	assert.True(t, IsPositive(d("0.01")))
	assert.False(t, IsPositive(Zero))
	assert.True(t, IsNegative(d("-0.01")))
	assert.False(t, IsNegative(Zero))
}

func TestEqualWithinCent(t *testing.T) {
	assert.True(t, EqualWithinCent(d("10.00"), d("10.01")))
	assert.True(t, EqualWithinCent(d("10.01"), d("10.00")))
	assert.False(t, EqualWithinCent(d("10.00"), d("10.02")))
}
