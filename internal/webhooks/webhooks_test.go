package webhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/draftdesk/internal/shopify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePlatform struct {
	hooks     []shopify.Webhook
	nextID    int64
	failTopic string
	deleted   []int64
}

func (p *fakePlatform) ListWebhooks(context.Context) ([]shopify.Webhook, error) {
	return p.hooks, nil
}

func (p *fakePlatform) CreateWebhook(_ context.Context, w shopify.Webhook) (shopify.Webhook, error) {
	if w.Topic == p.failTopic {
		return shopify.Webhook{}, &shopify.RemoteAPIError{Op: "create webhook", Status: 422, Message: "address: for this topic has already been taken"}
	}
	p.nextID++
	w.ID = p.nextID
	p.hooks = append(p.hooks, w)
	return w, nil
}

func (p *fakePlatform) DeleteWebhook(_ context.Context, id int64) error {
	p.deleted = append(p.deleted, id)
	return nil
}

func TestRegisterDefaultsSkipsExisting(t *testing.T) {
	p := &fakePlatform{
		nextID: 100,
		hooks: []shopify.Webhook{
			{ID: 1, Topic: "draft_orders/create", Address: "https://desk.example.com/webhooks/shopify"},
			{ID: 2, Topic: "draft_orders/update", Address: "https://old.example.com/webhooks/shopify"},
		},
		failTopic: "orders/create",
	}
	svc := NewService(p, "https://desk.example.com/", discardLogger())

	reg, err := svc.RegisterDefaults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://desk.example.com/webhooks/shopify", reg.Address)
	assert.Equal(t, []string{"draft_orders/create"}, reg.Skipped)
	require.Len(t, reg.Created, 2)
	assert.Equal(t, "draft_orders/update", reg.Created[0].Topic)
	assert.Equal(t, "draft_orders/delete", reg.Created[1].Topic)
	assert.Equal(t, "json", reg.Created[0].Format)
	assert.Contains(t, reg.Failed["orders/create"], "already been taken")

	p.failTopic = ""
	reg, err = svc.RegisterDefaults(context.Background())
	require.NoError(t, err)
	assert.Len(t, reg.Skipped, 3)
	require.Len(t, reg.Created, 1)
	assert.Equal(t, "orders/create", reg.Created[0].Topic)
}

func TestRegisterDefaultsNeedsAbsoluteAddress(t *testing.T) {
	svc := NewService(&fakePlatform{}, "", discardLogger())
	_, err := svc.RegisterDefaults(context.Background())
	require.Error(t, err)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) WebhookReceived(topic, disposition string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[topic+":"+disposition]++
}

func deliver(h http.Handler, body, signature, delivery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, ReceivePath, strings.NewReader(body))
	req.Header.Set(topicHeader, "draft_orders/update")
	req.Header.Set(shopHeader, "acme.myshopify.com")
	if signature != "" {
		req.Header.Set(hmacHeader, signature)
	}
	if delivery != "" {
		req.Header.Set(deliveryHeader, delivery)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReceiverVerifiesAndDedupes(t *testing.T) {
	secret := "whsec_test"
	body := `{"id":1001,"name":"#D12"}`
	rec := &countingRecorder{}
	rc := NewReceiver(secret, NewMemoryDeliveries(time.Hour, nil), rec, discardLogger())
	sig := Sign([]byte(secret), []byte(body))

	assert.Equal(t, http.StatusOK, deliver(rc, body, sig, "d-1").Code)
	assert.Equal(t, http.StatusOK, deliver(rc, body, sig, "d-1").Code)
	assert.Equal(t, http.StatusUnauthorized, deliver(rc, body, Sign([]byte("other"), []byte(body)), "d-2").Code)
	assert.Equal(t, http.StatusUnauthorized, deliver(rc, body, "", "d-3").Code)
	assert.Equal(t, http.StatusUnauthorized, deliver(rc, body, "%%%", "d-4").Code)
	assert.Equal(t, http.StatusUnauthorized, deliver(rc, body+" ", sig, "d-5").Code)

	assert.Equal(t, map[string]int{
		"draft_orders/update:accepted":  1,
		"draft_orders/update:duplicate": 1,
		"draft_orders/update:rejected":  4,
	}, rec.counts)
}

func TestReceiverWithoutSecret(t *testing.T) {
	rc := NewReceiver("", nil, nil, discardLogger())
	res := deliver(rc, "{}", Sign(nil, []byte("{}")), "d-1")
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}

type failingDeliveries struct{}

func (failingDeliveries) First(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestReceiverAcceptsWhenDedupeUnavailable(t *testing.T) {
	rc := NewReceiver("s", failingDeliveries{}, nil, discardLogger())
	res := deliver(rc, "{}", Sign([]byte("s"), []byte("{}")), "d-1")
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRedisDeliveries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisDeliveries(client, "draftdesk:webhook:", time.Minute)
	ctx := context.Background()

	first, err := store.First(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = store.First(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, first)
	assert.True(t, mr.Exists("draftdesk:webhook:abc"))

	mr.FastForward(2 * time.Minute)
	first, err = store.First(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, first)

	_, err = store.First(ctx, "")
	assert.Error(t, err)
}

func TestMemoryDeliveriesExpire(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryDeliveries(time.Minute, func() time.Time { return now })
	ctx := context.Background()

	first, _ := store.First(ctx, "x")
	assert.True(t, first)
	first, _ = store.First(ctx, "x")
	assert.False(t, first)

	now = now.Add(time.Minute)
	first, _ = store.First(ctx, "x")
	assert.True(t, first)
}

func TestHandlerRoutes(t *testing.T) {
	p := &fakePlatform{hooks: []shopify.Webhook{{ID: 5, Topic: "orders/create", Address: "https://desk.example.com/webhooks/shopify"}}}
	r := chi.NewRouter()
	NewHandler(discardLogger(), NewService(p, "https://desk.example.com", discardLogger()), NewReceiver("s", nil, nil, discardLogger())).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/webhooks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"topic":"orders/create"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/webhooks/5", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{5}, p.deleted)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/webhooks/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/defaults", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped":["orders/create"]`)

	assert.Equal(t, http.StatusOK, deliver(r, "{}", Sign([]byte("s"), []byte("{}")), "").Code)
}
