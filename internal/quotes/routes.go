package quotes

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/quotes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/batch-convert", h.BatchConvert)
		r.Get("/{id}", h.Show)
		r.Post("/{id}/convert", h.Convert)
		r.Post("/{id}/email-draft", h.EmailDraft)
	})
	r.Get("/api/stats", h.Stats)
}
