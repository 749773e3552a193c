package webhooks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDeliveryTTL bounds how long a delivery id is remembered.
const DefaultDeliveryTTL = 24 * time.Hour

// DeliveryStore remembers delivery ids. First reports whether id is new.
type DeliveryStore interface {
	First(ctx context.Context, id string) (bool, error)
}

// RedisDeliveries shares delivery ids across instances.
type RedisDeliveries struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisDeliveries(client redis.Cmdable, prefix string, ttl time.Duration) *RedisDeliveries {
	if ttl <= 0 {
		ttl = DefaultDeliveryTTL
	}
	return &RedisDeliveries{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisDeliveries) First(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("webhooks: delivery id required")
	}
	ok, err := r.client.SetNX(ctx, r.prefix+id, time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// MemoryDeliveries is the single-instance fallback.
type MemoryDeliveries struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeliveries(ttl time.Duration, now func() time.Time) *MemoryDeliveries {
	if ttl <= 0 {
		ttl = DefaultDeliveryTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryDeliveries{seen: make(map[string]time.Time), ttl: ttl, now: now}
}

func (m *MemoryDeliveries) First(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("webhooks: delivery id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.seen {
		if !exp.After(now) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[id]; ok {
		return false, nil
	}
	m.seen[id] = now.Add(m.ttl)
	return true, nil
}
