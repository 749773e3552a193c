package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCatalogTTL bounds how stale the product catalog may be.
const DefaultCatalogTTL = 5 * time.Minute

// CatalogCache holds the last full product listing.
type CatalogCache interface {
	Load(ctx context.Context) ([]Product, bool)
	Store(ctx context.Context, products []Product)
}

// MemoryCatalog keeps the catalog in process memory.
type MemoryCatalog struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	products []Product
	storedAt time.Time
}

// NewMemoryCatalog builds an in-process cache. now defaults to time.Now.
func NewMemoryCatalog(ttl time.Duration, now func() time.Time) *MemoryCatalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCatalog{ttl: ttl, now: now}
}

func (m *MemoryCatalog) Load(context.Context) ([]Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.products == nil || m.now().Sub(m.storedAt) >= m.ttl {
		return nil, false
	}
	return m.products, true
}

func (m *MemoryCatalog) Store(_ context.Context, products []Product) {
	if products == nil {
		products = []Product{}
	}
	m.mu.Lock()
	m.products = products
	m.storedAt = m.now()
	m.mu.Unlock()
}

// RedisCatalog shares the catalog between processes. Redis expiry enforces
// the TTL.
type RedisCatalog struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCatalog stores the catalog under key.
func NewRedisCatalog(client redis.Cmdable, key string, ttl time.Duration, logger *slog.Logger) *RedisCatalog {
	if key == "" {
		key = "draftdesk:catalog"
	}
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisCatalog{client: client, key: key, ttl: ttl, logger: logger}
}

func (r *RedisCatalog) Load(ctx context.Context) ([]Product, bool) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("catalog cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		r.logger.Warn("catalog cache entry corrupt", slog.Any("error", err))
		return nil, false
	}
	return products, true
}

func (r *RedisCatalog) Store(ctx context.Context, products []Product) {
	if products == nil {
		products = []Product{}
	}
	raw, err := json.Marshal(products)
	if err != nil {
		r.logger.Warn("catalog cache encode failed", slog.Any("error", err))
		return
	}
	if err := r.client.Set(ctx, r.key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("catalog cache write failed", slog.Any("error", err))
	}
}
