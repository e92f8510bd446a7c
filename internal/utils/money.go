package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToCents converts a currency amount to integer minor units, rounding half-up.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts minor units back to a two-decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// TotalCents computes qty * unitPrice in minor units. Rounding is applied once
// to the product, never per unit.
func TotalCents(unitPrice decimal.Decimal, qty int) int64 {
	return ToCents(unitPrice.Mul(decimal.NewFromInt(int64(qty))))
}

// SplitCents divides total evenly over n parts, rounding half-up.
func SplitCents(total int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
}

// FormatMoney renders minor units as "R$ 1.234,56".
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, formatThousand(cents/100), cents%100)
}

func formatThousand(n int64) string {
	str := fmt.Sprintf("%d", n)
	out := make([]byte, 0, len(str)+len(str)/3)
	for i := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, str[i])
	}
	return string(out)
}
