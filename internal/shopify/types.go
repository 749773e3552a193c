package shopify

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DraftOrderStatus is the platform status of a quote.
type DraftOrderStatus string

const (
	StatusOpen        DraftOrderStatus = "open"
	StatusInvoiceSent DraftOrderStatus = "invoice_sent"
	StatusCompleted   DraftOrderStatus = "completed"
	// StatusAny is only meaningful as a list filter.
	StatusAny DraftOrderStatus = "any"
)

// Valid reports whether s is a known status or filter value.
func (s DraftOrderStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInvoiceSent, StatusCompleted, StatusAny:
		return true
	}
	return false
}

// DraftOrder is a quote as held by the platform.
type DraftOrder struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email,omitempty"`
	Currency        string           `json:"currency"`
	Status          DraftOrderStatus `json:"status"`
	Note            string           `json:"note,omitempty"`
	Tags            string           `json:"tags,omitempty"`
	TaxesIncluded   bool             `json:"taxes_included"`
	Customer        *Customer        `json:"customer,omitempty"`
	BillingAddress  *Address         `json:"billing_address,omitempty"`
	ShippingAddress *Address         `json:"shipping_address,omitempty"`
	LineItems       []LineItem       `json:"line_items"`
	AppliedDiscount *AppliedDiscount `json:"applied_discount,omitempty"`
	ShippingLine    *ShippingLine    `json:"shipping_line,omitempty"`
	SubtotalPrice   decimal.Decimal  `json:"subtotal_price"`
	TotalTax        decimal.Decimal  `json:"total_tax"`
	TotalPrice      decimal.Decimal  `json:"total_price"`
	InvoiceURL      string           `json:"invoice_url,omitempty"`
	InvoiceSentAt   *time.Time       `json:"invoice_sent_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	OrderID         *int64           `json:"order_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Number returns the display name without the leading "#".
func (d DraftOrder) Number() string {
	return strings.TrimPrefix(d.Name, "#")
}

// LineItem is one product/quantity/price entry of a draft order.
type LineItem struct {
	ID           int64           `json:"id,omitempty"`
	ProductID    *int64          `json:"product_id,omitempty"`
	VariantID    *int64          `json:"variant_id,omitempty"`
	Title        string          `json:"title"`
	VariantTitle string          `json:"variant_title,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	// ImageURL is not part of the platform payload; callers may fill it
	// when the image is already known.
	ImageURL string `json:"-"`
}

// AppliedDiscount is an order-level discount.
type AppliedDiscount struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Value       decimal.Decimal `json:"value"`
	ValueType   string          `json:"value_type"`
	Amount      decimal.Decimal `json:"amount"`
}

// ShippingLine carries the shipping charge.
type ShippingLine struct {
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// Address is an inline address snapshot.
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"name,omitempty"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`
	Country   string `json:"country,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// FullName prefers the combined name and falls back to first + last.
func (a *Address) FullName() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Lines returns the non-empty postal lines of the address.
func (a *Address) Lines() []string {
	if a == nil {
		return nil
	}
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.Province, a.Zip), " "))
	return nonEmpty(a.Company, a.Address1, a.Address2, cityLine, a.Country)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Customer is a customer reference or search result.
type Customer struct {
	ID             int64    `json:"id"`
	Email          string   `json:"email,omitempty"`
	FirstName      string   `json:"first_name,omitempty"`
	LastName       string   `json:"last_name,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	OrdersCount    int      `json:"orders_count,omitempty"`
	DefaultAddress *Address `json:"default_address,omitempty"`
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Product is a catalog entry.
type Product struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle,omitempty"`
	Vendor      string     `json:"vendor,omitempty"`
	ProductType string     `json:"product_type,omitempty"`
	Status      string     `json:"status,omitempty"`
	Image       *Image     `json:"image,omitempty"`
	Images      []Image    `json:"images,omitempty"`
	Variants    []Variant  `json:"variants,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ImageURL returns the featured image, or the first gallery image.
func (p Product) ImageURL() string {
	if p.Image != nil && p.Image.Src != "" {
		return p.Image.Src
	}
	for _, img := range p.Images {
		if img.Src != "" {
			return img.Src
		}
	}
	return ""
}

// Image is a product image.
type Image struct {
	ID       int64  `json:"id,omitempty"`
	Src      string `json:"src"`
	Position int    `json:"position,omitempty"`
}

// Variant is a purchasable product variant.
type Variant struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	SKU   string          `json:"sku,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// Order is a completed order.
type Order struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email,omitempty"`
	Currency        string          `json:"currency"`
	FinancialStatus string          `json:"financial_status,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Webhook is an event-subscription registration.
type Webhook struct {
	ID        int64      `json:"id,omitempty"`
	Topic     string     `json:"topic"`
	Address   string     `json:"address"`
	Format    string     `json:"format"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Metafield is a namespaced key/value attached to a resource.
type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}
