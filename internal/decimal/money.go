package decimal

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

// Hundred is used for percentage math
var Hundred = decimal.NewFromInt(100)

// FromInt creates decimal from int
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// FromFloat creates decimal from float with rounding to cents
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// FromString parses decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Mul multiplies two decimals, rounds to 2 places
func Mul(a, b decimal.Decimal) decimal.Decimal {
	return a.Mul(b).Round(2)
}

// Div divides a by b, rounds to 2 places
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return a.Div(b).Round(2)
}

// CalculateVAT computes VAT amount: base * (rate/100), rounded to cents.
// Rounding is half-up, applied once on the result, never on intermediates.
func CalculateVAT(base, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return Zero
	}
	return base.Mul(ratePercent).Div(Hundred).Round(2)
}

// CalculatePercentage computes: amount * (percentage/100), rounded to cents
func CalculatePercentage(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(percentage).Div(Hundred).Round(2)
}

// Sum sums a slice of decimals without intermediate rounding
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// RoundMoney rounds to cents (EUR has two decimal places)
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders a monetary value with exactly two decimals,
// the lexical form required in invoice documents
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
