package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/draftdesk/draftdesk/internal/invoice/assets"
	"github.com/draftdesk/draftdesk/internal/observability"
	"github.com/draftdesk/draftdesk/internal/platform/cache"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

const catalogCacheKey = "draftdesk:catalog:v1"

// Platform bundles the clients shared by the server and the worker.
type Platform struct {
	Shopify *shopify.Client
	Assets  *assets.Cache
	// Redis is nil when REDIS_ADDR is unset.
	Redis *redis.Client
}

// RedisOptions maps the Redis settings.
func (c *Config) RedisOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// ShopifyConfig maps the store settings. Catalog, recorder and logger are
// left to the caller.
func (c *Config) ShopifyConfig() shopify.Config {
	return shopify.Config{
		StoreDomain:  c.ShopifyStoreDomain,
		APIVersion:   c.ShopifyAPIVersion,
		AccessToken:  c.ShopifyAccessToken,
		ClientID:     c.ShopifyClientID,
		ClientSecret: c.ShopifyClientSecret,
		HTTPClient:   &http.Client{Timeout: c.ShopifyHTTPTimeout},
		MaxPages:     c.ShopifyMaxPages,
	}
}

// NewPlatform connects Redis when configured and builds the store client on
// top of it. A Redis outage degrades to the in-memory catalog.
func NewPlatform(ctx context.Context, cfg *Config, metrics *observability.Metrics, logger *slog.Logger) (*Platform, error) {
	p := &Platform{}

	scfg := cfg.ShopifyConfig()
	scfg.Recorder = metrics
	scfg.Logger = logger.With(slog.String("component", "shopify"))
	scfg.Catalog = shopify.NewMemoryCatalog(cfg.CatalogTTL, nil)

	if opts := cfg.RedisOptions(); opts.Enabled() {
		client, err := cache.New(ctx, opts)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory catalog", slog.Any("error", err))
		} else {
			p.Redis = client
			scfg.Catalog = shopify.NewRedisCatalog(client, catalogCacheKey, cfg.CatalogTTL, scfg.Logger)
		}
	}

	client, err := shopify.New(scfg)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("shopify client: %w", err)
	}
	p.Shopify = client

	images, err := assets.New(cfg.AssetDir, nil, logger.With(slog.String("component", "assets")))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("asset cache: %w", err)
	}
	p.Assets = images
	return p, nil
}

// Close releases the Redis connection.
func (p *Platform) Close() {
	if p.Redis != nil {
		_ = p.Redis.Close()
	}
}
