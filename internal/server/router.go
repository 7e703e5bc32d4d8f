package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/preplab/catprep/internal/api"
	"github.com/preplab/catprep/internal/api/handlers"
	"github.com/preplab/catprep/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	AskHandler      *handlers.AskHandler
	PracticeHandler *handlers.PracticeHandler
	MockTestHandler *handlers.MockTestHandler
	StatsHandler    *handlers.StatsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Ingest requests carry full document text, so the cap is generous.
	const maxBodyBytes int64 = 20 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Ingest)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
	})

	r.Post("/ask", cfg.AskHandler.Ask)

	r.Route("/practice/sessions", func(r chi.Router) {
		r.Post("/", cfg.PracticeHandler.StartSession)
		r.Get("/{id}/next", cfg.PracticeHandler.NextQuestion)
		r.Post("/{id}/answers", cfg.PracticeHandler.SubmitAnswer)
	})

	r.Route("/tests", func(r chi.Router) {
		r.Post("/", cfg.MockTestHandler.Compose)
		r.Get("/{id}", cfg.MockTestHandler.Get)
		r.Post("/{id}/submit", cfg.MockTestHandler.Submit)
	})

	r.Get("/stats", cfg.StatsHandler.Get)

	return r
}
