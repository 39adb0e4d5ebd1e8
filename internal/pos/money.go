package pos

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func Subtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// Total is the tax-inclusive order total rounded half away from zero to
// whole currency units.
func Total(items []OrderItem, taxRate decimal.Decimal) decimal.Decimal {
	return WithTax(Subtotal(items), taxRate)
}

func WithTax(subtotal, taxRate decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(taxRate.Div(hundred))
	return subtotal.Mul(factor).Round(0)
}

// FormatRupiah renders an amount as "Rp. 1.250.000".
func FormatRupiah(amount decimal.Decimal) string {
	whole := amount.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	digits := whole.StringFixed(0)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "Rp. " + sign + b.String()
}
