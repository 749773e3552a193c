package shopify

import "time"

// Recorder receives client telemetry. observability.Metrics implements it.
type Recorder interface {
	ObserveRequest(op string, status int, elapsed time.Duration)
	TokenRefreshed()
	CatalogCache(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, int, time.Duration) {}
func (nopRecorder) TokenRefreshed()                           {}
func (nopRecorder) CatalogCache(bool)                         {}
