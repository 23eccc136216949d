package engine

import "github.com/shopspring/decimal"

// moneyPlaces is the number of decimal places kept for currency amounts.
const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to currency precision, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// FormatMoney renders an amount as "$12.34".
func FormatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(moneyPlaces)
	}
	return "$" + d.StringFixed(moneyPlaces)
}
