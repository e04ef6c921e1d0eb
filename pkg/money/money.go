// Package money holds the decimal helpers shared by quotes, invoices and orders.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for monetary amounts.
const Scale = 2

func init() {
	// Amounts are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Round rounds an amount to the stored scale.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// LineTotal returns quantity * unitPrice rounded to the stored scale.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// TaxAmount computes subtotal * rate / 100.
func TaxAmount(subtotal, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return decimal.Zero
	}
	return Round(subtotal.Mul(ratePercent).Div(decimal.NewFromInt(100)))
}

// Totals fills in whichever of subtotal, tax amount and total the caller left at zero.
// Values supplied by the caller are kept as-is.
func Totals(lines []decimal.Decimal, subtotal, taxRate, taxAmount, total decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	if subtotal.IsZero() {
		for _, l := range lines {
			subtotal = subtotal.Add(l)
		}
	}
	if taxAmount.IsZero() {
		taxAmount = TaxAmount(subtotal, taxRate)
	}
	if total.IsZero() {
		total = subtotal.Add(taxAmount)
	}
	return Round(subtotal), Round(taxAmount), Round(total)
}
