// Package invoice derives immutable invoices from quotes and stores the
// rendered documents on disk.
package invoice

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// Company is the seller profile printed on every invoice.
type Company struct {
	Name    string
	Tagline string
	Address []string
	Email   string
	Phone   string
	Website string
	// LogoPath is a local image; the renderer falls back to the name.
	LogoPath string
}

// Signoff closes the notes block.
type Signoff struct {
	Name    string
	Title   string
	Message string
}

// Party is a bill-to or ship-to snapshot.
type Party struct {
	Name  string
	Email string
	Phone string
	Lines []string
}

// Empty reports whether there is nothing to print for the party.
func (p Party) Empty() bool {
	return p.Name == "" && p.Email == "" && p.Phone == "" && len(p.Lines) == 0
}

// Line is one invoiced product.
type Line struct {
	ProductID int64
	Title     string
	Variant   string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
	// ImagePath is a local file, or empty for a placeholder.
	ImagePath string
}

// Totals are computed once at build time.
type Totals struct {
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Discount      decimal.Decimal
	DiscountLabel string
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

// Invoice is the local, immutable artifact derived from a quote.
type Invoice struct {
	Number      string
	QuoteID     int64
	QuoteName   string
	Currency    string
	IssuedAt    time.Time
	ValidUntil  time.Time
	Company     Company
	BillTo      Party
	ShipTo      Party
	Lines       []Line
	Totals      Totals
	Notes       []string
	Signoff     Signoff
	CheckoutURL string
}

// Filename is the on-disk name of the rendered document.
func (inv Invoice) Filename() string {
	return inv.Number + ".pdf"
}

// Renderer writes an invoice document.
type Renderer interface {
	Render(ctx context.Context, inv Invoice, w io.Writer) error
}
