package httpapi

import (
	"net/http"
)

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"message": apiTitle,
		"version": apiVersion,
	})
}

// healthz is unauthenticated and always 200; model_loaded tells whether
// reconstruction requests will be served.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":       "ok",
		"model_loaded": h.models.IsLoaded(),
	})
}

func (h *Handler) modelStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, h.models.Status())
}
