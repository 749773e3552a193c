package webhooks

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	receiver *Receiver
}

func NewHandler(logger *slog.Logger, service *Service, receiver *Receiver) *Handler {
	return &Handler{logger: logger, service: service, receiver: receiver}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/webhooks", h.List)
	r.Delete("/api/webhooks/{id}", h.Delete)
	r.Post("/api/webhooks/defaults", h.RegisterDefaults)
	if h.receiver != nil {
		r.Method(http.MethodPost, ReceivePath, h.receiver)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list webhooks failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"webhooks": hooks, "address": h.service.Address()})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := shopify.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid webhook id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete webhook failed", slog.Int64("webhook_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RegisterDefaults(w http.ResponseWriter, r *http.Request) {
	reg, err := h.service.RegisterDefaults(r.Context())
	if err != nil {
		h.logger.Error("register default webhooks failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reg)
}
