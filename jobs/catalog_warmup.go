package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/draftdesk/draftdesk/internal/jobs"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CatalogSource reloads the product catalog from the platform.
type CatalogSource interface {
	RefreshCatalog(ctx context.Context) ([]shopify.Product, error)
}

// ImagePrefetcher downloads product images ahead of rendering.
type ImagePrefetcher interface {
	Prefetch(ctx context.Context, sources map[int64]string) (fetched, failed int)
}

// PrefetchEnqueuer hands image downloads to a separate task.
type PrefetchEnqueuer interface {
	EnqueueAssetsPrefetch(ctx context.Context, payload AssetsPrefetchPayload) (*asynq.TaskInfo, error)
}

// CatalogWarmupJob keeps the catalog cache and the image cache warm.
type CatalogWarmupJob struct {
	Catalog CatalogSource
	Images  ImagePrefetcher
	// Queue, when set, moves image downloads into an assets:prefetch task.
	Queue   PrefetchEnqueuer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCatalogWarmupJob wires dependencies for the warmup handlers.
func NewCatalogWarmupJob(catalog CatalogSource, images ImagePrefetcher, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{Catalog: catalog, Images: images, Logger: logger, Metrics: metrics}
}

// Handle processes catalog warmup tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCatalogWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger(TaskCatalogWarmup).With(slog.String("reason", payload.Reason))
	start := time.Now()

	products, err := j.Catalog.RefreshCatalog(ctx)
	if err != nil {
		resultErr = err
		logger.Error("refresh catalog", slog.Any("error", err))
		return resultErr
	}
	logger.Info("catalog refreshed", slog.Int("products", len(products)), slog.Duration("duration", time.Since(start)))

	if !payload.Prefetch {
		return resultErr
	}
	sources := ImageSources(products)
	if j.Queue != nil {
		info, err := j.Queue.EnqueueAssetsPrefetch(ctx, AssetsPrefetchPayload{Sources: sources})
		if err == nil {
			logger.Info("image prefetch enqueued", slog.String("task_id", info.ID), slog.Int("images", len(sources)))
			return resultErr
		}
		logger.Warn("enqueue image prefetch failed, prefetching inline", slog.Any("error", err))
	}
	if j.Images != nil {
		fetched, failed := j.Images.Prefetch(ctx, sources)
		logger.Info("product images prefetched", slog.Int("fetched", fetched), slog.Int("failed", failed))
	}
	return resultErr
}

// HandlePrefetch processes image prefetch tasks. Individual download
// failures are logged, not retried.
func (j *CatalogWarmupJob) HandlePrefetch(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Images == nil {
		return errors.New("assets prefetch: handler not configured")
	}
	var payload AssetsPrefetchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAssetsPrefetch)
	fetched, failed := j.Images.Prefetch(ctx, payload.Sources)
	j.logger(TaskAssetsPrefetch).Info("product images prefetched", slog.Int("fetched", fetched), slog.Int("failed", failed))
	return tracker.End(ctx.Err())
}

// ImageSources maps each product with an image to its source URL.
func ImageSources(products []shopify.Product) map[int64]string {
	sources := make(map[int64]string, len(products))
	for _, p := range products {
		if src := p.ImageURL(); src != "" {
			sources[p.ID] = src
		}
	}
	return sources
}

func (j *CatalogWarmupJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
