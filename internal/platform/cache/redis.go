// Package cache opens the optional Redis connection shared by the catalog
// snapshot and the webhook delivery log.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options describes how to reach Redis.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (o Options) Enabled() bool {
	return o.Addr != ""
}

// New creates a Redis client and verifies it answers PING within five seconds.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	if !opts.Enabled() {
		return nil, fmt.Errorf("platform/cache: redis address not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
	}

	return client, nil
}
