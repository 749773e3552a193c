package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ListDraftOrdersOptions filters a draft order listing.
type ListDraftOrdersOptions struct {
	// Status defaults to open. StatusAny lists every status.
	Status DraftOrderStatus
	// Limit keeps only the newest records after the full listing is sorted.
	Limit int
	// UpdatedAtMin restricts the listing to recently touched quotes.
	UpdatedAtMin time.Time
}

type draftOrderEnvelope struct {
	DraftOrder DraftOrder `json:"draft_order"`
}

type draftOrdersEnvelope struct {
	DraftOrders []DraftOrder `json:"draft_orders"`
}

type countEnvelope struct {
	Count int `json:"count"`
}

// ListDraftOrders returns draft orders newest first.
func (c *Client) ListDraftOrders(ctx context.Context, opts ListDraftOrdersOptions) ([]DraftOrder, error) {
	status := opts.Status
	if status == "" {
		status = StatusOpen
	}
	if !status.Valid() {
		return nil, fmt.Errorf("shopify: unknown draft order status %q", status)
	}
	q := url.Values{"limit": {strconv.Itoa(c.pageSize)}}
	if status != StatusAny {
		q.Set("status", string(status))
	}
	if !opts.UpdatedAtMin.IsZero() {
		q.Set("updated_at_min", opts.UpdatedAtMin.UTC().Format(time.RFC3339))
	}

	orders, err := collectPages(ctx, c, request{
		op:     "draft_orders.list",
		method: http.MethodGet,
		path:   "/draft_orders.json",
		query:  q,
	}, func(e *draftOrdersEnvelope) []DraftOrder { return e.DraftOrders })
	if err != nil {
		return nil, err
	}
	newestFirst(orders, func(d DraftOrder) (time.Time, int64) { return d.CreatedAt, d.ID })
	if opts.Limit > 0 && len(orders) > opts.Limit {
		orders = orders[:opts.Limit]
	}
	return orders, nil
}

// GetDraftOrder fetches one draft order.
func (c *Client) GetDraftOrder(ctx context.Context, id int64) (DraftOrder, error) {
	var env draftOrderEnvelope
	_, err := c.do(ctx, request{
		op:     "draft_orders.get",
		method: http.MethodGet,
		path:   fmt.Sprintf("/draft_orders/%d.json", id),
	}, &env)
	return env.DraftOrder, err
}

// NewLineItem is a line of a draft order to be created. Either VariantID or
// Title plus Price must be set.
type NewLineItem struct {
	VariantID *int64 `json:"variant_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Price     string `json:"price,omitempty"`
	Quantity  int    `json:"quantity"`
}

// NewDraftOrder is the create payload.
type NewDraftOrder struct {
	LineItems       []NewLineItem    `json:"line_items"`
	CustomerID      int64            `json:"-"`
	Email           string           `json:"email,omitempty"`
	Note            string           `json:"note,omitempty"`
	Tags            string           `json:"tags,omitempty"`
	ShippingLine    *ShippingLine    `json:"shipping_line,omitempty"`
	AppliedDiscount *AppliedDiscount `json:"applied_discount,omitempty"`
}

// CreateDraftOrder creates a quote on the platform.
func (c *Client) CreateDraftOrder(ctx context.Context, in NewDraftOrder) (DraftOrder, error) {
	if len(in.LineItems) == 0 {
		return DraftOrder{}, errors.New("shopify: draft order needs at least one line item")
	}
	type customerRef struct {
		ID int64 `json:"id"`
	}
	payload := struct {
		NewDraftOrder
		Customer                  *customerRef `json:"customer,omitempty"`
		UseCustomerDefaultAddress bool         `json:"use_customer_default_address,omitempty"`
	}{NewDraftOrder: in}
	if in.CustomerID != 0 {
		payload.Customer = &customerRef{ID: in.CustomerID}
		payload.UseCustomerDefaultAddress = true
	}

	var env draftOrderEnvelope
	_, err := c.do(ctx, request{
		op:     "draft_orders.create",
		method: http.MethodPost,
		path:   "/draft_orders.json",
		body:   map[string]any{"draft_order": payload},
	}, &env)
	return env.DraftOrder, err
}

// CompleteDraftOrder turns a quote into an order. With paymentPending the
// order is created unpaid.
func (c *Client) CompleteDraftOrder(ctx context.Context, id int64, paymentPending bool) (DraftOrder, error) {
	var env draftOrderEnvelope
	_, err := c.do(ctx, request{
		op:     "draft_orders.complete",
		method: http.MethodPut,
		path:   fmt.Sprintf("/draft_orders/%d/complete.json", id),
		query:  url.Values{"payment_pending": {strconv.FormatBool(paymentPending)}},
	}, &env)
	return env.DraftOrder, err
}

// InvoiceEmail customises the platform's invoice email.
type InvoiceEmail struct {
	To            string   `json:"to,omitempty"`
	From          string   `json:"from,omitempty"`
	BCC           []string `json:"bcc,omitempty"`
	Subject       string   `json:"subject,omitempty"`
	CustomMessage string   `json:"custom_message,omitempty"`
}

// SendDraftOrderInvoice asks the platform to email the quote's checkout
// link, which moves the quote to invoice_sent.
func (c *Client) SendDraftOrderInvoice(ctx context.Context, id int64, email InvoiceEmail) error {
	_, err := c.do(ctx, request{
		op:     "draft_orders.send_invoice",
		method: http.MethodPost,
		path:   fmt.Sprintf("/draft_orders/%d/send_invoice.json", id),
		body:   map[string]any{"draft_order_invoice": email},
	}, nil)
	return err
}

// CountDraftOrders counts draft orders with the given status.
func (c *Client) CountDraftOrders(ctx context.Context, status DraftOrderStatus) (int, error) {
	q := url.Values{}
	if status != "" && status != StatusAny {
		q.Set("status", string(status))
	}
	var env countEnvelope
	_, err := c.do(ctx, request{
		op:     "draft_orders.count",
		method: http.MethodGet,
		path:   "/draft_orders/count.json",
		query:  q,
	}, &env)
	return env.Count, err
}

// ParseID accepts a numeric id or a global id such as
// "gid://shopify/DraftOrder/123".
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.LastIndex(raw, "/"); i >= 0 && strings.HasPrefix(raw, "gid://") {
		raw = raw[i+1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("shopify: invalid id %q", raw)
	}
	return id, nil
}

func (c *Client) pageSizeFor(limit int) int {
	if limit > 0 && limit < c.pageSize {
		return limit
	}
	return c.pageSize
}
