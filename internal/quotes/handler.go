package quotes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{Status: shopify.DraftOrderStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a number")
			return
		}
		params.Limit = limit
	}

	quotes, err := h.service.List(r.Context(), params)
	if err != nil {
		h.fail(w, "list quotes failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"quotes": quotes, "count": len(quotes)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	quote, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get quote failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	quote, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create quote failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	var req ConvertRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	res, err := h.service.Convert(r.Context(), id, req)
	if err != nil {
		h.fail(w, "convert quote failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) BatchConvert(w http.ResponseWriter, r *http.Request) {
	var req BatchConvertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.validate.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}
	res, err := h.service.BatchConvert(r.Context(), req.QuoteIDs, req.ConvertRequest)
	if err != nil && res.Interrupted == "" {
		h.fail(w, "batch convert failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) EmailDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	var req EmailDraftRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	email, err := h.service.DraftEmail(r.Context(), id, req)
	if err != nil {
		h.fail(w, "draft email failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, email)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(w, "load stats failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) quoteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := shopify.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid quote id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		httpx.ValidationProblem(w, err)
		return
	}
	if !isClientError(err) {
		h.logger.Error(msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func isClientError(err error) bool {
	return errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrNotFound)
}
