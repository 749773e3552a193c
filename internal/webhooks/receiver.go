package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
)

const (
	hmacHeader     = "X-Shopify-Hmac-Sha256"
	topicHeader    = "X-Shopify-Topic"
	deliveryHeader = "X-Shopify-Webhook-Id"
	shopHeader     = "X-Shopify-Shop-Domain"

	maxBodyBytes = 1 << 20
)

// Dispositions recorded per delivery.
const (
	DispositionAccepted  = "accepted"
	DispositionDuplicate = "duplicate"
	DispositionRejected  = "rejected"
)

// Recorder counts deliveries.
type Recorder interface {
	WebhookReceived(topic, disposition string)
}

type nopRecorder struct{}

func (nopRecorder) WebhookReceived(string, string) {}

// Receiver verifies and acknowledges platform deliveries.
type Receiver struct {
	secret     []byte
	deliveries DeliveryStore
	recorder   Recorder
	logger     *slog.Logger
}

func NewReceiver(secret string, deliveries DeliveryStore, recorder Recorder, logger *slog.Logger) *Receiver {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Receiver{secret: []byte(secret), deliveries: deliveries, recorder: recorder, logger: logger}
}

// Sign returns the header value the platform sends for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (rc *Receiver) verify(signature string, body []byte) bool {
	if len(rc.secret) == 0 || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, rc.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

type deliveryPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get(topicHeader)
	if len(rc.secret) == 0 {
		rc.recorder.WebhookReceived(topic, DispositionRejected)
		httpx.Problem(w, http.StatusServiceUnavailable, "Webhook Verification Unavailable", "webhook secret not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(body) > maxBodyBytes {
		rc.recorder.WebhookReceived(topic, DispositionRejected)
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "unable to read webhook body")
		return
	}

	if !rc.verify(r.Header.Get(hmacHeader), body) {
		rc.recorder.WebhookReceived(topic, DispositionRejected)
		rc.logger.Warn("webhook signature mismatch", slog.String("topic", topic), slog.String("remote", r.RemoteAddr))
		httpx.Problem(w, http.StatusUnauthorized, "Signature Mismatch", "signature verification failed")
		return
	}

	delivery := r.Header.Get(deliveryHeader)
	if delivery != "" && rc.deliveries != nil {
		first, err := rc.deliveries.First(r.Context(), delivery)
		if err != nil {
			rc.logger.Error("webhook dedupe failed", slog.String("delivery", delivery), slog.Any("error", err))
		} else if !first {
			rc.recorder.WebhookReceived(topic, DispositionDuplicate)
			rc.logger.Info("webhook duplicate ignored", slog.String("topic", topic), slog.String("delivery", delivery))
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	var payload deliveryPayload
	_ = json.Unmarshal(body, &payload)

	rc.recorder.WebhookReceived(topic, DispositionAccepted)
	rc.logger.Info("webhook received",
		slog.String("topic", topic),
		slog.String("shop", r.Header.Get(shopHeader)),
		slog.String("delivery", delivery),
		slog.Int64("resource_id", payload.ID),
		slog.String("resource_name", payload.Name),
	)
	w.WriteHeader(http.StatusOK)
}
