package shopify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type ordersEnvelope struct {
	Orders []Order `json:"orders"`
}

// ListOrders returns a single page of the most recent orders.
func (c *Client) ListOrders(ctx context.Context, limit int) ([]Order, error) {
	var env ordersEnvelope
	_, err := c.do(ctx, request{
		op:     "orders.list",
		method: http.MethodGet,
		path:   "/orders.json",
		query: url.Values{
			"status": {"any"},
			"limit":  {strconv.Itoa(c.pageSizeFor(limit))},
		},
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Orders, nil
}

// CountOrders counts orders of every status.
func (c *Client) CountOrders(ctx context.Context) (int, error) {
	var env countEnvelope
	_, err := c.do(ctx, request{
		op:     "orders.count",
		method: http.MethodGet,
		path:   "/orders/count.json",
		query:  url.Values{"status": {"any"}},
	}, &env)
	return env.Count, err
}
