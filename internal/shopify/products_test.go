package shopify

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogStore(t *testing.T, fetches *atomic.Int32) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix+"/products.json", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"products": []map[string]any{
			{
				"id": 1, "title": "Oak Chair", "vendor": "Northwood", "created_at": "2023-05-01T00:00:00Z",
				"images":   []map[string]any{{"id": 11, "src": "https://cdn.example.com/oak.png"}},
				"variants": []map[string]any{{"id": 101, "title": "Default", "sku": "CH-OAK", "price": "120.00"}},
			},
			{
				"id": 2, "title": "Walnut Desk", "vendor": "Northwood", "created_at": "2024-01-10T00:00:00Z",
				"image":    map[string]any{"src": "https://cdn.example.com/walnut.png"},
				"variants": []map[string]any{{"id": 201, "title": "Large", "sku": "DK-WAL-L", "price": "640.00"}},
			},
			{"id": 3, "title": "Gift Card", "created_at": "2022-01-01T00:00:00Z"},
		}})
	})
	return mux
}

// ============================================================================
// CATALOG CACHE
// ============================================================================

func TestListProducts_ServesFromCacheWithinTTL(t *testing.T) {
	var fetches atomic.Int32
	clock := newFakeClock()
	rec := &recordingRecorder{}
	c := newTestClient(t, newFakeStore(t, catalogStore(t, &fetches)), func(cfg *Config) {
		cfg.Now = clock.Now
		cfg.Recorder = rec
	})
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []int64{2, 1, 3}, []int64{products[0].ID, products[1].ID, products[2].ID})

	clock.Advance(4 * time.Minute)
	_, err = c.ListProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetches.Load())

	clock.Advance(2 * time.Minute)
	_, err = c.ListProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetches.Load())

	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 2, rec.misses)
}

func TestListProducts_CallerCannotMutateCache(t *testing.T) {
	var fetches atomic.Int32
	c := newTestClient(t, newFakeStore(t, catalogStore(t, &fetches)), nil)

	first, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	first[0].Title = "changed"

	second, err := c.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Walnut Desk", second[0].Title)
}

func TestRefreshCatalog_BypassesCache(t *testing.T) {
	var fetches atomic.Int32
	c := newTestClient(t, newFakeStore(t, catalogStore(t, &fetches)), nil)
	ctx := context.Background()

	_, err := c.ListProducts(ctx)
	require.NoError(t, err)
	_, err = c.RefreshCatalog(ctx)
	require.NoError(t, err)
	_, err = c.ListProducts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetches.Load())
}

func TestProductImageURL(t *testing.T) {
	var fetches atomic.Int32
	mux := catalogStore(t, &fetches)
	mux.HandleFunc(apiPrefix+"/products/99.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{"product": map[string]any{
			"id": 99, "title": "Archived Lamp", "images": []map[string]any{{"src": "https://cdn.example.com/lamp.png"}},
		}})
	})
	c := newTestClient(t, newFakeStore(t, mux), nil)
	ctx := context.Background()

	url, err := c.ProductImageURL(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/oak.png", url)

	url, err = c.ProductImageURL(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/walnut.png", url)

	url, err = c.ProductImageURL(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = c.ProductImageURL(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/lamp.png", url)
	assert.EqualValues(t, 1, fetches.Load())
}

func TestSearchProducts(t *testing.T) {
	var fetches atomic.Int32
	c := newTestClient(t, newFakeStore(t, catalogStore(t, &fetches)), nil)
	ctx := context.Background()

	bySKU, err := c.SearchProducts(ctx, "dk-wal", 0)
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.EqualValues(t, 2, bySKU[0].ID)

	byVendor, err := c.SearchProducts(ctx, "NORTHWOOD", 1)
	require.NoError(t, err)
	assert.Len(t, byVendor, 1)

	none, err := c.SearchProducts(ctx, "sofa", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.EqualValues(t, 1, fetches.Load())
}

func TestRedisCatalog_ExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	cache := NewRedisCatalog(rdb, "test:catalog", time.Minute, nil)
	_, ok := cache.Load(ctx)
	assert.False(t, ok)

	cache.Store(ctx, []Product{{ID: 5, Title: "Bench"}})
	products, ok := cache.Load(ctx)
	require.True(t, ok)
	require.Len(t, products, 1)
	assert.Equal(t, "Bench", products[0].Title)

	mr.FastForward(61 * time.Second)
	_, ok = cache.Load(ctx)
	assert.False(t, ok)
}

func TestRedisCatalog_CorruptEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, mr.Set("test:catalog", "{not json"))
	_, ok := NewRedisCatalog(rdb, "test:catalog", time.Minute, nil).Load(context.Background())
	assert.False(t, ok)
}
