// Package webhooks manages platform event subscriptions and receives their
// deliveries.
package webhooks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

// ReceivePath is where the platform delivers events.
const ReceivePath = "/webhooks/shopify"

// DefaultTopics are subscribed by RegisterDefaults.
var DefaultTopics = []string{
	"draft_orders/create",
	"draft_orders/update",
	"draft_orders/delete",
	"orders/create",
}

// Platform is the subset of the remote client used for registrations.
type Platform interface {
	ListWebhooks(ctx context.Context) ([]shopify.Webhook, error)
	CreateWebhook(ctx context.Context, w shopify.Webhook) (shopify.Webhook, error)
	DeleteWebhook(ctx context.Context, id int64) error
}

type Service struct {
	platform Platform
	address  string
	logger   *slog.Logger
}

// NewService targets registrations at publicBaseURL + ReceivePath.
func NewService(platform Platform, publicBaseURL string, logger *slog.Logger) *Service {
	return &Service{
		platform: platform,
		address:  strings.TrimRight(publicBaseURL, "/") + ReceivePath,
		logger:   logger,
	}
}

// Address is the delivery URL used for default registrations.
func (s *Service) Address() string { return s.address }

func (s *Service) List(ctx context.Context) ([]shopify.Webhook, error) {
	hooks, err := s.platform.ListWebhooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	return hooks, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.platform.DeleteWebhook(ctx, id); err != nil {
		return fmt.Errorf("delete webhook %d: %w", id, err)
	}
	s.logger.Info("webhook deleted", slog.Int64("webhook_id", id))
	return nil
}

// Registration reports what RegisterDefaults did.
type Registration struct {
	Address string            `json:"address"`
	Created []shopify.Webhook `json:"created"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// RegisterDefaults subscribes every default topic not yet pointing at this
// deployment. Individual topic failures are reported, not returned.
func (s *Service) RegisterDefaults(ctx context.Context) (Registration, error) {
	if !strings.HasPrefix(s.address, "http") {
		return Registration{}, fmt.Errorf("%w: PUBLIC_BASE_URL must be an absolute url", httpx.ErrValidation)
	}
	existing, err := s.List(ctx)
	if err != nil {
		return Registration{}, err
	}

	reg := Registration{Address: s.address, Created: []shopify.Webhook{}, Skipped: []string{}}
	for _, topic := range DefaultTopics {
		registered := lo.ContainsBy(existing, func(w shopify.Webhook) bool {
			return w.Topic == topic && w.Address == s.address
		})
		if registered {
			reg.Skipped = append(reg.Skipped, topic)
			continue
		}
		hook, err := s.platform.CreateWebhook(ctx, shopify.Webhook{Topic: topic, Address: s.address, Format: "json"})
		if err != nil {
			if reg.Failed == nil {
				reg.Failed = map[string]string{}
			}
			reg.Failed[topic] = err.Error()
			s.logger.Warn("register webhook failed", slog.String("topic", topic), slog.Any("error", err))
			continue
		}
		reg.Created = append(reg.Created, hook)
	}

	s.logger.Info("default webhooks registered",
		slog.Int("created", len(reg.Created)),
		slog.Int("skipped", len(reg.Skipped)),
		slog.Int("failed", len(reg.Failed)),
	)
	return reg, nil
}
