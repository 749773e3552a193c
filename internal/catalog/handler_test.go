package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/draftdesk/internal/shopify"
	"github.com/draftdesk/draftdesk/jobs"
)

type fakeStore struct {
	query     string
	limit     int
	err       error
	refreshed int
}

func (f *fakeStore) SearchCustomers(_ context.Context, q string, limit int) ([]shopify.Customer, error) {
	f.query, f.limit = q, limit
	return []shopify.Customer{{ID: 1, FirstName: "Ada", Email: "ada@example.com"}}, f.err
}

func (f *fakeStore) SearchProducts(_ context.Context, q string, limit int) ([]shopify.Product, error) {
	f.query, f.limit = q, limit
	return []shopify.Product{{ID: 2, Title: "Walnut Desk"}, {ID: 3, Title: "Walnut Shelf"}}, f.err
}

func (f *fakeStore) RefreshCatalog(context.Context) ([]shopify.Product, error) {
	f.refreshed++
	return make([]shopify.Product, 12), f.err
}

type fakeQueue struct {
	err      error
	payloads []jobs.CatalogWarmupPayload
}

func (q *fakeQueue) EnqueueCatalogWarmup(_ context.Context, p jobs.CatalogWarmupPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, p)
	return &asynq.TaskInfo{ID: "task-1", Type: jobs.TaskCatalogWarmup}, nil
}

func router(store *fakeStore, queue Enqueuer) chi.Router {
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), store, store, queue).MountRoutes(r)
	return r
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearch(t *testing.T) {
	store := &fakeStore{}
	r := router(store, nil)

	rec := do(r, http.MethodGet, "/api/products/search?q=walnut")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Products []shopify.Product `json:"products"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "walnut", store.query)
	assert.Equal(t, defaultLimit, store.limit)

	rec = do(r, http.MethodGet, "/api/customers/search?q=ada&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada@example.com")
	assert.Equal(t, maxLimit, store.limit)
}

func TestSearchValidation(t *testing.T) {
	r := router(&fakeStore{}, nil)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/products/search").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/customers/search?q=a&limit=-1").Code)
}

func TestSearchUpstreamError(t *testing.T) {
	store := &fakeStore{err: &shopify.RemoteAPIError{Op: "search customers", Status: 500, Message: "boom"}}
	rec := do(router(store, nil), http.MethodGet, "/api/customers/search?q=ada")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestWarmup(t *testing.T) {
	t.Run("enqueues", func(t *testing.T) {
		store, queue := &fakeStore{}, &fakeQueue{}
		rec := do(router(store, queue), http.MethodPost, "/api/catalog/warmup")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"task_id":"task-1"`)
		require.Len(t, queue.payloads, 1)
		assert.True(t, queue.payloads[0].Prefetch)
		assert.Zero(t, store.refreshed)
	})

	t.Run("already pending", func(t *testing.T) {
		rec := do(router(&fakeStore{}, &fakeQueue{err: asynq.ErrDuplicateTask}), http.MethodPost, "/api/catalog/warmup")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"pending"`)
	})

	t.Run("queue down refreshes inline", func(t *testing.T) {
		store := &fakeStore{}
		rec := do(router(store, &fakeQueue{err: errors.New("dial tcp: connection refused")}), http.MethodPost, "/api/catalog/warmup")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"products":12`)
		assert.Equal(t, 1, store.refreshed)
	})

	t.Run("no queue", func(t *testing.T) {
		store := &fakeStore{}
		rec := do(router(store, nil), http.MethodPost, "/api/catalog/warmup?prefetch=0")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, store.refreshed)
	})
}
