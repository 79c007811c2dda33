package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Lisanis/warehouse-movement-service/internal/cache"
)

// handleGetStock implements GET /warehouses/{warehouse_id}/products/{product_id}
// with the same cache-aside contract as handleGetMovement.
func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	warehouseID := r.PathValue("warehouse_id")
	productID := r.PathValue("product_id")

	if cached, err := s.cache.GetStock(ctx, warehouseID, productID); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)

		return
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "cache get failed, falling back to database",
			"warehouse_id", warehouseID, "product_id", productID, "error", err)
	}

	row, err := s.store.GetStock(ctx, warehouseID, productID)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("failed to query stock"))

		return
	}

	if row == nil {
		WriteErrorResponse(w, r, s.logger, NotFound("stock not found"))

		return
	}

	resp := stockToResponse(row)

	body, err := json.Marshal(resp)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, InternalServerError("failed to encode stock"))

		return
	}

	if err := s.cache.SetStock(ctx, warehouseID, productID, body); err != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			"warehouse_id", warehouseID, "product_id", productID, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
