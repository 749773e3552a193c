package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogWarmup refreshes the shared product catalog.
	TaskCatalogWarmup = "catalog:warmup"
	// TaskAssetsPrefetch downloads product images into the asset cache.
	TaskAssetsPrefetch = "assets:prefetch"
)

// CatalogWarmupPayload controls a warmup run.
type CatalogWarmupPayload struct {
	// Prefetch also downloads every product image after the refresh.
	Prefetch bool   `json:"prefetch"`
	Reason   string `json:"reason,omitempty"`
}

// AssetsPrefetchPayload maps product ids to image sources.
type AssetsPrefetchPayload struct {
	Sources map[int64]string `json:"sources"`
}

// NewCatalogWarmupTask constructs a catalog warmup task.
func NewCatalogWarmupTask(payload CatalogWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}

// NewAssetsPrefetchTask constructs an image prefetch task.
func NewAssetsPrefetchTask(payload AssetsPrefetchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssetsPrefetch, data), nil
}
