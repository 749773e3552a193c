package shopify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const apiPrefix = "/admin/api/" + DefaultAPIVersion

func newFakeStore(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		StoreDomain: "test-shop.myshopify.com",
		BaseURL:     srv.URL,
		AccessToken: "static-token",
		HTTPClient:  srv.Client(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type recordingRecorder struct {
	mu        sync.Mutex
	requests  map[string]int
	refreshes int
	hits      int
	misses    int
}

func (r *recordingRecorder) ObserveRequest(op string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.requests == nil {
		r.requests = map[string]int{}
	}
	r.requests[op]++
}

func (r *recordingRecorder) TokenRefreshed() {
	r.mu.Lock()
	r.refreshes++
	r.mu.Unlock()
}

func (r *recordingRecorder) CatalogCache(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func draftOrderJSON(id int64, name string, created string) map[string]any {
	return map[string]any{
		"id":             id,
		"name":           name,
		"email":          "buyer@example.com",
		"currency":       "USD",
		"status":         "open",
		"subtotal_price": "100.00",
		"total_tax":      "8.00",
		"total_price":    "108.00",
		"created_at":     created,
		"updated_at":     created,
		"line_items": []map[string]any{
			{"id": id * 10, "title": "Walnut Desk", "quantity": 1, "price": "100.00", "product_id": 555},
		},
	}
}
