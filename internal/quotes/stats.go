package quotes

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/draftdesk/draftdesk/internal/shopify"
)

// Stats feeds the dashboard counters.
type Stats struct {
	OpenQuotes      int `json:"open_quotes"`
	InvoiceSent     int `json:"invoice_sent"`
	CompletedQuotes int `json:"completed_quotes"`
	Orders          int `json:"orders"`
	Invoices        int `json:"invoices"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	count := func(status shopify.DraftOrderStatus, dst *int) {
		g.Go(func() error {
			n, err := s.cfg.Platform.CountDraftOrders(ctx, status)
			if err != nil {
				return fmt.Errorf("count %s quotes: %w", status, err)
			}
			*dst = n
			return nil
		})
	}
	count(shopify.StatusOpen, &stats.OpenQuotes)
	count(shopify.StatusInvoiceSent, &stats.InvoiceSent)
	count(shopify.StatusCompleted, &stats.CompletedQuotes)

	g.Go(func() error {
		n, err := s.cfg.Platform.CountOrders(ctx)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}
		stats.Orders = n
		return nil
	})
	g.Go(func() error {
		entries, err := s.cfg.Store.List()
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		stats.Invoices = len(entries)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
