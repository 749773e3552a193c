package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	tokenRefreshes   prometheus.Counter
	catalogCache     *prometheus.CounterVec
	invoicesRendered *prometheus.CounterVec
	webhooksReceived *prometheus.CounterVec
}

// NewMetrics initialises the registry and every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draftdesk_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "draftdesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	upstream := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draftdesk_shopify_requests_total",
		Help: "Calls issued to the commerce platform by operation and status.",
	}, []string{"op", "code"})
	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "draftdesk_shopify_request_duration_seconds",
		Help:    "Latency of commerce platform calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	refreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "draftdesk_shopify_token_refresh_total",
		Help: "Client-credentials token exchanges.",
	})
	catalog := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draftdesk_catalog_cache_total",
		Help: "Product catalog cache lookups by result.",
	}, []string{"result"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draftdesk_invoices_rendered_total",
		Help: "Invoice conversions by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draftdesk_webhooks_received_total",
		Help: "Inbound platform webhooks by topic and disposition.",
	}, []string{"topic", "disposition"})
	registry.MustRegister(requests, duration, upstream, upstreamDuration, refreshes, catalog, invoices, webhooks)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		upstreamTotal:    upstream,
		upstreamDuration: upstreamDuration,
		tokenRefreshes:   refreshes,
		catalogCache:     catalog,
		invoicesRendered: invoices,
		webhooksReceived: webhooks,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveRequest records one platform API call. A status of 0 means the
// request never produced a response.
func (m *Metrics) ObserveRequest(op string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// TokenRefreshed counts a client-credentials exchange.
func (m *Metrics) TokenRefreshed() {
	if m == nil {
		return
	}
	m.tokenRefreshes.Inc()
}

// CatalogCache counts a catalog cache lookup.
func (m *Metrics) CatalogCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.catalogCache.WithLabelValues(result).Inc()
}

// InvoiceConverted counts a conversion attempt by outcome.
func (m *Metrics) InvoiceConverted(outcome string) {
	if m == nil {
		return
	}
	m.invoicesRendered.WithLabelValues(outcome).Inc()
}

// WebhookReceived counts an inbound webhook.
func (m *Metrics) WebhookReceived(topic, disposition string) {
	if m == nil {
		return
	}
	if topic == "" {
		topic = "unknown"
	}
	m.webhooksReceived.WithLabelValues(topic, disposition).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
