package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paisaflow/paisaflow/internal/api/handlers"
	"github.com/paisaflow/paisaflow/internal/api/middleware"
)

// NewRouter builds the HTTP routing tree.
func NewRouter(h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Telemetry)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/version", h.GetVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/route", h.RouteIntent)
		r.Post("/voice", h.ProcessVoice)

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", h.SubmitReceipt)
			r.Get("/{id}", h.GetReceipt)
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.ListLogs)
			r.Get("/{id}", h.GetLog)
		})
	})

	return r
}
