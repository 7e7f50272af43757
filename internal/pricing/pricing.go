// Package pricing computes line and order amounts from quantities and the
// price/tax snapshots read off locked stock rows. All functions are pure and
// deterministic; amounts are decimal so repeated runs reproduce identical
// cent values.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineAmounts holds the computed amounts for a single order line.
type LineAmounts struct {
	Base  decimal.Decimal
	Tax   decimal.Decimal
	Total decimal.Decimal
}

// OrderTotals holds the aggregate amounts for a whole order.
type OrderTotals struct {
	Subtotal   decimal.Decimal
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// ComputeLine calculates base, tax and total for one line.
//
// Base and tax are each rounded to 2 decimal places before the total is
// summed. The per-step rounding order is load-bearing for cent-level
// reproducibility and must not be collapsed into a single final rounding.
func ComputeLine(unitPrice decimal.Decimal, quantity int, taxRatePercent decimal.Decimal) LineAmounts {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	tax := base.Mul(taxRatePercent).Div(hundred).Round(2)
	return LineAmounts{
		Base:  base,
		Tax:   tax,
		Total: base.Add(tax),
	}
}

// Aggregate sums already-rounded line amounts into order totals. No further
// rounding is applied.
func Aggregate(lines []LineAmounts) OrderTotals {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Base)
		taxTotal = taxTotal.Add(l.Tax)
	}
	return OrderTotals{
		Subtotal:   subtotal,
		TaxTotal:   taxTotal,
		GrandTotal: subtotal.Add(taxTotal),
	}
}
