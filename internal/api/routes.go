package api

import (
	"fmt"
	"net/http"
	"time"
)

const serviceVersion = "1.0.0-dev"

// setupRoutes registers the read API's endpoints on mux.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /movements/{movement_id}", s.handleGetMovement)
	mux.HandleFunc("GET /warehouses/{warehouse_id}/products/{product_id}", s.handleGetStock)
	mux.HandleFunc("/", s.handleNotFound)
}

// handleHealth reports liveness and the query store's reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.store.HealthCheck(ctx); err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("query store unreachable"))

		return
	}

	resp := HealthResponse{
		Status:  "ok",
		Version: serviceVersion,
		Uptime:  time.Since(s.startTime).String(),
	}

	writeJSON(w, r, s.logger, http.StatusOK, resp)
}

// handleNotFound is the catch-all for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound(fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
}
