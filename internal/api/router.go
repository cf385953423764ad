// Package api exposes the normalizer, the validation engine and the analysis
// pipeline over HTTP.
package api

import (
	"net/http"

	"fjacquet/stmt-forensics/internal/container"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(c *container.Container) http.Handler {
	h := &Handlers{
		normalizer: c.GetNormalizer(),
		engine:     c.GetEngine(),
		analyzer:   c.GetAnalyzer(),
		repo:       c.GetRepository(),
		rules:      c.EffectiveRules(),
		logger:     c.GetLogger(),
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rules", h.GetRules)

		// Entry points.
		r.Post("/statements/normalize", h.NormalizeStatement)
		r.Post("/documents/validate", h.ValidateDocument)
		r.Post("/documents/analyze", h.AnalyzeDocument)

		// History.
		r.Get("/statements", h.ListStatements)
		r.Get("/statements/{id}", h.GetStatement)
	})

	return r
}
