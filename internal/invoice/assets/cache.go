// Package assets downloads product images into a flat local directory,
// one file per product, and reuses them across renders.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/singleflight"
)

// MaxImageBytes caps a single download.
const MaxImageBytes = 5 << 20

// ErrUnsupportedImage is returned for formats the PDF renderer cannot embed.
var ErrUnsupportedImage = errors.New("assets: unsupported image format")

var embeddable = []string{"image/png", "image/jpeg", "image/gif"}

// Cache stores images under dir.
type Cache struct {
	dir    string
	http   *http.Client
	logger *slog.Logger
	flight singleflight.Group
}

// New creates dir if needed. A nil client gets a 15s timeout.
func New(dir string, client *http.Client, logger *slog.Logger) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("assets: directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("assets: create dir: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{dir: dir, http: client, logger: logger}, nil
}

// Dir is the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Fetch returns the local image of a product, downloading src when no file
// exists yet.
func (c *Cache) Fetch(ctx context.Context, productID int64, src string) (string, error) {
	return c.fetch(ctx, "product-"+strconv.FormatInt(productID, 10), src)
}

// FetchLogo caches the brand logo.
func (c *Cache) FetchLogo(ctx context.Context, src string) (string, error) {
	return c.fetch(ctx, "logo", src)
}

// Lookup returns the cached file for a product, or "".
func (c *Cache) Lookup(productID int64) string {
	return c.existing("product-" + strconv.FormatInt(productID, 10))
}

// Prefetch downloads every image in sources, keyed by product id. Failures
// are logged and counted, not returned.
func (c *Cache) Prefetch(ctx context.Context, sources map[int64]string) (fetched, failed int) {
	for id, src := range sources {
		if ctx.Err() != nil {
			break
		}
		if src == "" {
			continue
		}
		if _, err := c.Fetch(ctx, id, src); err != nil {
			failed++
			c.logger.Warn("prefetch image failed", slog.Int64("product_id", id), slog.Any("error", err))
			continue
		}
		fetched++
	}
	return fetched, failed
}

func (c *Cache) existing(key string) string {
	matches, _ := filepath.Glob(filepath.Join(c.dir, key+".*"))
	for _, m := range matches {
		switch filepath.Ext(m) {
		case ".png", ".jpg", ".gif":
		default:
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return m
		}
	}
	return ""
}

func (c *Cache) fetch(ctx context.Context, key, src string) (string, error) {
	if p := c.existing(key); p != "" {
		return p, nil
	}
	if src == "" {
		return "", fmt.Errorf("assets: no source for %s", key)
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		return c.download(ctx, key, src)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) download(ctx context.Context, key, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("assets: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("assets: download %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assets: download %s: status %d", key, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("assets: read %s: %w", key, err)
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("assets: %s exceeds %d bytes", key, MaxImageBytes)
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), embeddable...) {
		return "", fmt.Errorf("%w: %s is %s", ErrUnsupportedImage, key, mt.String())
	}

	path := filepath.Join(c.dir, key+mt.Extension())
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("assets: write %s: %w", key, err)
	}
	c.logger.Debug("image cached", slog.String("key", key), slog.String("path", path))
	return path, nil
}
