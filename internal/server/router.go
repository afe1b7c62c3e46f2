// Package server exposes the classification engine over HTTP. This is also
// the retrieval surface the external training process uses to drain feedback.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taxpadi/taxpadi/internal/engine"
	"github.com/taxpadi/taxpadi/internal/feedback"
	"github.com/taxpadi/taxpadi/internal/service"
	"github.com/taxpadi/taxpadi/internal/signal"
)

// NewRouter wires the HTTP routes to their handlers.
func NewRouter(eng *engine.Engine, recorder *feedback.Recorder, detector *signal.Detector, store service.Storage) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/classify", ClassifyHandler(eng))
		r.Post("/feedback", FeedbackHandler(recorder, detector))
		r.Get("/patterns", ListPatternsHandler(store))
		r.Get("/feedback/unconsumed", UnconsumedFeedbackHandler(store))
		r.Post("/feedback/consume", ConsumeFeedbackHandler(store))
	})

	return r
}
