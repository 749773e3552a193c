package shopify

import (
	"context"
	"fmt"
	"net/http"
)

type webhooksEnvelope struct {
	Webhooks []Webhook `json:"webhooks"`
}

type webhookEnvelope struct {
	Webhook Webhook `json:"webhook"`
}

// ListWebhooks returns every registration of the app.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var env webhooksEnvelope
	_, err := c.do(ctx, request{
		op:     "webhooks.list",
		method: http.MethodGet,
		path:   "/webhooks.json",
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Webhooks, nil
}

// CreateWebhook registers topic deliveries to address. Format defaults to json.
func (c *Client) CreateWebhook(ctx context.Context, w Webhook) (Webhook, error) {
	if w.Format == "" {
		w.Format = "json"
	}
	w.ID = 0
	w.CreatedAt = nil
	var env webhookEnvelope
	_, err := c.do(ctx, request{
		op:     "webhooks.create",
		method: http.MethodPost,
		path:   "/webhooks.json",
		body:   webhookEnvelope{Webhook: w},
	}, &env)
	return env.Webhook, err
}

// DeleteWebhook removes a registration.
func (c *Client) DeleteWebhook(ctx context.Context, id int64) error {
	_, err := c.do(ctx, request{
		op:     "webhooks.delete",
		method: http.MethodDelete,
		path:   fmt.Sprintf("/webhooks/%d.json", id),
	}, nil)
	return err
}
