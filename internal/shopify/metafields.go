package shopify

import (
	"context"
	"fmt"
	"net/http"
)

// Owner resources that carry metafields.
const (
	OwnerDraftOrder = "draft_orders"
	OwnerOrder      = "orders"
	OwnerProduct    = "products"
)

type metafieldsEnvelope struct {
	Metafields []Metafield `json:"metafields"`
}

type metafieldEnvelope struct {
	Metafield Metafield `json:"metafield"`
}

// ListMetafields lists the metafields of one resource.
func (c *Client) ListMetafields(ctx context.Context, owner string, ownerID int64) ([]Metafield, error) {
	var env metafieldsEnvelope
	_, err := c.do(ctx, request{
		op:     "metafields.list",
		method: http.MethodGet,
		path:   fmt.Sprintf("/%s/%d/metafields.json", owner, ownerID),
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Metafields, nil
}

// SetMetafield creates or overwrites namespace.key on a resource.
func (c *Client) SetMetafield(ctx context.Context, owner string, ownerID int64, m Metafield) (Metafield, error) {
	if m.Type == "" {
		m.Type = "single_line_text_field"
	}
	m.ID = 0
	var env metafieldEnvelope
	_, err := c.do(ctx, request{
		op:     "metafields.set",
		method: http.MethodPost,
		path:   fmt.Sprintf("/%s/%d/metafields.json", owner, ownerID),
		body:   metafieldEnvelope{Metafield: m},
	}, &env)
	return env.Metafield, err
}
