package model

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fraction digits every amount is normalised to.
const MoneyPlaces = 2

// RoundMoney normalises an amount to two fraction digits (half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// SumMoney adds amounts without leaving decimal arithmetic.
func SumMoney(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
