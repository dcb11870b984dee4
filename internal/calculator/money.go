package calculator

import "github.com/shopspring/decimal"

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "₹"

// FormatCurrency renders an amount with two decimal places for display.
// Rounding happens here only; sums are always taken over the raw floats.
func FormatCurrency(amount float64) string {
	return CurrencySymbol + decimal.NewFromFloat(amount).StringFixed(2)
}
