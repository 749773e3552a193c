// Package catalog serves customer and product lookups for the quote form.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
	"github.com/draftdesk/draftdesk/jobs"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Searcher looks up customers and products on the platform.
type Searcher interface {
	SearchCustomers(ctx context.Context, query string, limit int) ([]shopify.Customer, error)
	SearchProducts(ctx context.Context, query string, limit int) ([]shopify.Product, error)
}

// Refresher reloads the catalog inline when no queue is configured.
type Refresher interface {
	RefreshCatalog(ctx context.Context) ([]shopify.Product, error)
}

// Enqueuer schedules background warmups.
type Enqueuer interface {
	EnqueueCatalogWarmup(ctx context.Context, payload jobs.CatalogWarmupPayload) (*asynq.TaskInfo, error)
}

type Handler struct {
	logger    *slog.Logger
	searcher  Searcher
	refresher Refresher
	queue     Enqueuer
}

// NewHandler wires the catalog endpoints. queue may be nil.
func NewHandler(logger *slog.Logger, searcher Searcher, refresher Refresher, queue Enqueuer) *Handler {
	return &Handler{logger: logger, searcher: searcher, refresher: refresher, queue: queue}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/customers/search", h.SearchCustomers)
	r.Get("/api/products/search", h.SearchProducts)
	r.Post("/api/catalog/warmup", h.Warmup)
}

func (h *Handler) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	query, limit, ok := searchParams(w, r)
	if !ok {
		return
	}
	customers, err := h.searcher.SearchCustomers(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("search customers failed", slog.String("query", query), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": customers, "count": len(customers)})
}

func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query, limit, ok := searchParams(w, r)
	if !ok {
		return
	}
	products, err := h.searcher.SearchProducts(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("search products failed", slog.String("query", query), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "count": len(products)})
}

type warmupResponse struct {
	Status   string `json:"status"`
	TaskID   string `json:"task_id,omitempty"`
	Products int    `json:"products,omitempty"`
}

// Warmup enqueues a catalog refresh, or refreshes inline without a queue.
func (h *Handler) Warmup(w http.ResponseWriter, r *http.Request) {
	prefetch := r.URL.Query().Get("prefetch") != "0"
	if h.queue != nil {
		info, err := h.queue.EnqueueCatalogWarmup(r.Context(), jobs.CatalogWarmupPayload{Prefetch: prefetch, Reason: "manual"})
		switch {
		case err == nil:
			httpx.JSON(w, http.StatusAccepted, warmupResponse{Status: "enqueued", TaskID: info.ID})
			return
		case isDuplicateTask(err):
			httpx.JSON(w, http.StatusAccepted, warmupResponse{Status: "pending"})
			return
		default:
			h.logger.Warn("enqueue catalog warmup failed, refreshing inline", slog.Any("error", err))
		}
	}

	products, err := h.refresher.RefreshCatalog(r.Context())
	if err != nil {
		h.logger.Error("refresh catalog failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warmupResponse{Status: "refreshed", Products: len(products)})
}

func isDuplicateTask(err error) bool {
	return errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict)
}

func searchParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "q is required")
		return "", 0, false
	}
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive number")
			return "", 0, false
		}
		limit = min(n, maxLimit)
	}
	return query, limit, true
}
