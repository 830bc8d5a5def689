package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if mw := s.corsMiddleware(); mw != nil {
		r.Use(mw)
	}
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/system", s.handleSystem)

		r.Route("/commands", func(r chi.Router) {
			r.Get("/", s.handleListCommands)
			r.Post("/{command}", s.handleCommand)
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{name}", s.handleGetDevice)
			r.Get("/{name}/history", s.handleDeviceHistory)
			r.Post("/{name}/{command}", s.handleCommand)
		})
	})

	return r
}

// handleHealth reports facade health. Both the bridge and the broker must be
// connected for a 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.bridge.Health(r.Context())
	status := http.StatusOK
	label := "ok"
	if !h.Healthy() {
		status = http.StatusServiceUnavailable
		label = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":  label,
		"version": s.version,
		"bridge":  h,
	})
}
