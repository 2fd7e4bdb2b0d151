// Package httpapi exposes the planner service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/p-n-ai/pai-roadmap/internal/planner"
)

// maxBodyBytes bounds a generation request body.
const maxBodyBytes = 8 << 20

// HealthChecker is satisfied by the database and cache clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds what the routes need.
type Deps struct {
	Service     *planner.Service
	Ready       map[string]HealthChecker // probed by /readyz
	CORSOrigins []string
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	h := &handlers{svc: d.Service, ready: d.Ready, origins: d.CORSOrigins}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", h.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/config/defaults", h.configDefaults)
		r.Route("/roadmaps", func(r chi.Router) {
			r.Post("/", h.createRoadmap)
			r.Get("/", h.listRoadmaps)
			r.Get("/stream", h.streamRoadmap)
			r.Get("/{id}", h.getRoadmap)
			r.Get("/{id}/export.xlsx", h.exportRoadmap)
		})
	})
	return r
}

// requestLogger logs one line per request with slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
