// Package server exposes the form runtime over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dlovans/formrt/internal/store"
	"github.com/dlovans/formrt/internal/telemetry"
	"github.com/dlovans/formrt/pkg/formrt"
)

// CacheFunc returns the layout cache for one request. It may return nil.
type CacheFunc func(ctx context.Context) formrt.LayoutCache

// Container holds all dependencies for the router.
type Container struct {
	Store       store.FormStore
	LayoutCache CacheFunc
	Metrics     *telemetry.Metrics
	Logger      zerolog.Logger
	CORSOrigins string
}

// Handler serves the render and form endpoints.
type Handler struct {
	store   store.FormStore
	cache   CacheFunc
	metrics *telemetry.Metrics
	log     zerolog.Logger
}

// NewRouter creates the API router with all endpoints.
func NewRouter(c *Container) http.Handler {
	h := &Handler{
		store:   c.Store,
		cache:   c.LayoutCache,
		metrics: c.Metrics,
		log:     c.Logger,
	}

	r := mux.NewRouter()
	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(loggingMiddleware(c.Logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()

	// Stateless render routes
	v1.HandleFunc("/evaluate", h.Evaluate).Methods("POST", "OPTIONS")
	v1.HandleFunc("/formulas/validate", h.ValidateFormula).Methods("POST", "OPTIONS")
	v1.HandleFunc("/lint", h.Lint).Methods("POST", "OPTIONS")

	// Stored forms
	v1.HandleFunc("/forms", h.CreateForm).Methods("POST", "OPTIONS")
	v1.HandleFunc("/forms/{formId}", h.GetForm).Methods("GET", "OPTIONS")
	v1.HandleFunc("/forms/{formId}", h.UpdateForm).Methods("PUT", "OPTIONS")
	v1.HandleFunc("/forms/{formId}", h.DeleteForm).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/forms/{formId}/evaluate", h.EvaluateForm).Methods("POST", "OPTIONS")

	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			event := logger.Info()
			if rec.status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
