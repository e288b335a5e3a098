package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// RateLimit bounds requests per client IP and endpoint under /api. Zero
// Requests disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func NewRouter(h *Handler, rl RateLimit) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.root)
	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		if rl.Requests > 0 && rl.Window > 0 {
			r.Use(httprate.Limit(
				rl.Requests,
				rl.Window,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
			))
		}

		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Get("/auth/me", h.me)
			r.Get("/protected", h.protected)
			r.Get("/model/status", h.modelStatus)
			r.Post("/reconstruct", h.reconstruct)
		})
	})

	return r
}
