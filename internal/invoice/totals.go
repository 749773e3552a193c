package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/draftdesk/draftdesk/internal/shopify"
)

// TaxMode selects where the tax figure comes from.
type TaxMode string

const (
	// TaxRemote trusts the quote's total_tax.
	TaxRemote TaxMode = "remote"
	// TaxRate applies a configured percentage to the discounted subtotal.
	TaxRate TaxMode = "rate"
)

// TaxPolicy is the configured tax behaviour.
type TaxPolicy struct {
	Mode TaxMode
	// Rate is a percentage, e.g. 8.25.
	Rate decimal.Decimal
}

// ParseTaxMode validates a configured mode. Empty means TaxRemote.
func ParseTaxMode(s string) (TaxMode, error) {
	switch m := TaxMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", TaxRemote:
		return TaxRemote, nil
	case TaxRate:
		return TaxRate, nil
	default:
		return "", fmt.Errorf("invoice: unknown tax mode %q", s)
	}
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals derives the frozen totals of a quote.
// Total = Subtotal + Shipping + Tax - Discount.
func ComputeTotals(q shopify.DraftOrder, lines []Line, policy TaxPolicy) Totals {
	t := Totals{Subtotal: q.SubtotalPrice}
	if len(lines) > 0 {
		sum := decimal.Zero
		for _, l := range lines {
			sum = sum.Add(l.Amount)
		}
		t.Subtotal = sum
	}
	if q.ShippingLine != nil {
		t.Shipping = q.ShippingLine.Price
	}
	if d := q.AppliedDiscount; d != nil && d.Amount.IsPositive() {
		t.Discount = d.Amount
		t.DiscountLabel = d.Title
		if t.DiscountLabel == "" {
			t.DiscountLabel = d.Description
		}
	}

	switch policy.Mode {
	case TaxRate:
		base := t.Subtotal.Sub(t.Discount)
		if base.IsNegative() {
			base = decimal.Zero
		}
		t.Tax = base.Mul(policy.Rate).Div(hundred).Round(2)
	default:
		t.Tax = q.TotalTax
	}

	t.Total = t.Subtotal.Add(t.Shipping).Add(t.Tax).Sub(t.Discount)
	return t
}

// Row is one printed line of the totals block.
type Row struct {
	Label string
	Value string
	Bold  bool
}

// Rows lays out the totals block. The discount and tax rows are omitted
// when zero, and zero shipping prints as "Free".
func (t Totals) Rows(currency string) []Row {
	rows := []Row{{Label: "Subtotal", Value: FormatMoney(t.Subtotal, currency)}}
	if t.Discount.IsPositive() {
		label := "Discount"
		if t.DiscountLabel != "" {
			label = "Discount (" + t.DiscountLabel + ")"
		}
		rows = append(rows, Row{Label: label, Value: "-" + FormatMoney(t.Discount, currency)})
	}
	shipping := "Free"
	if !t.Shipping.IsZero() {
		shipping = FormatMoney(t.Shipping, currency)
	}
	rows = append(rows, Row{Label: "Shipping", Value: shipping})
	if t.Tax.IsPositive() {
		rows = append(rows, Row{Label: "Tax", Value: FormatMoney(t.Tax, currency)})
	}
	return append(rows, Row{Label: "Total", Value: FormatMoney(t.Total, currency), Bold: true})
}
