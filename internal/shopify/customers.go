package shopify

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type customersEnvelope struct {
	Customers []Customer `json:"customers"`
}

// SearchCustomers runs the platform's customer search (name, email, phone).
func (c *Client) SearchCustomers(ctx context.Context, query string, limit int) ([]Customer, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = 25
	}
	var env customersEnvelope
	_, err := c.do(ctx, request{
		op:     "customers.search",
		method: http.MethodGet,
		path:   "/customers/search.json",
		query: url.Values{
			"query": {query},
			"limit": {strconv.Itoa(limit)},
		},
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Customers, nil
}
