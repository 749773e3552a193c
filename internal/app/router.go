package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/draftdesk/draftdesk/internal/catalog"
	"github.com/draftdesk/draftdesk/internal/invoice"
	"github.com/draftdesk/draftdesk/internal/observability"
	"github.com/draftdesk/draftdesk/internal/quotes"
	"github.com/draftdesk/draftdesk/internal/webhooks"
	"github.com/draftdesk/draftdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	QuotesHandler   *quotes.Handler
	InvoiceHandler  *invoice.Handler
	WebhooksHandler *webhooks.Handler
	CatalogHandler  *catalog.Handler
	JobHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with DraftDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.QuotesHandler != nil {
		params.QuotesHandler.MountRoutes(r)
	}
	if params.InvoiceHandler != nil {
		params.InvoiceHandler.MountRoutes(r)
	}
	if params.WebhooksHandler != nil {
		params.WebhooksHandler.MountRoutes(r)
	}
	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
