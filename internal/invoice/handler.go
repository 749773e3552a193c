package invoice

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
)

// Handler serves stored invoices.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/invoices", h.List)
	r.Get("/api/invoices/{number}", h.Download)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List()
	if err != nil {
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": entries, "count": len(entries)})
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	number := NormalizeNumber(chi.URLParam(r, "number"))
	data, err := h.store.Open(number)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	disposition := "attachment"
	if r.URL.Query().Get("inline") == "1" {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Content-Disposition", disposition+`; filename="`+number+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
