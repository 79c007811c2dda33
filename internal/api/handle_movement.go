package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Lisanis/warehouse-movement-service/internal/cache"
)

// handleGetMovement implements GET /movements/{movement_id} with the
// cache-aside read contract: try the cache first (swallowing a cache
// failure as a warning and falling through to the database), and on a
// database hit populate the cache before responding.
func (s *Server) handleGetMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	movementID := r.PathValue("movement_id")

	if cached, err := s.cache.GetMovement(ctx, movementID); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)

		return
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache get failed, falling back to database",
			"movement_id", movementID, "error", err)
	}

	movement, err := s.store.GetMovement(ctx, movementID)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("failed to query movement"))

		return
	}

	if movement == nil {
		WriteErrorResponse(w, r, s.logger, NotFound("movement not found"))

		return
	}

	resp := movementToResponse(movement)

	body, err := json.Marshal(resp)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("failed to encode movement"))

		return
	}

	if err := s.cache.SetMovement(ctx, movementID, body); err != nil {
		s.logger.WarnContext(ctx, "cache set failed", "movement_id", movementID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
