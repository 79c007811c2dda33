package api

import (
	"time"

	"github.com/Lisanis/warehouse-movement-service/internal/query"
)

// MovementDetailResponse is the JSON response for GET /movements/{movement_id}.
type MovementDetailResponse struct {
	MovementID             string     `json:"movement_id"`
	ProductID              string     `json:"product_id"`
	SourceWarehouseID      *string    `json:"source_warehouse_id"`
	DepartureTime          *time.Time `json:"departure_time"`
	DepartureQuantity      *int       `json:"departure_quantity"`
	DestinationWarehouseID *string    `json:"destination_warehouse_id"`
	ArrivalTime            *time.Time `json:"arrival_time"`
	ArrivalQuantity        *int       `json:"arrival_quantity"`
	TransferTimeSeconds    *float64   `json:"transfer_time_seconds"`
	QuantityDifference     *int       `json:"quantity_difference"`
	Complete               bool       `json:"complete"`
}

// WarehouseStockResponse is the JSON response for
// GET /warehouses/{warehouse_id}/products/{product_id}.
type WarehouseStockResponse struct {
	WarehouseID string `json:"warehouse_id"`
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
}

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// movementToResponse builds the wire response from the read-side projection.
func movementToResponse(m *query.Movement) MovementDetailResponse {
	return MovementDetailResponse{
		MovementID:             m.ID,
		ProductID:              m.ProductID,
		SourceWarehouseID:      m.SourceWarehouseID,
		DepartureTime:          m.DepartureTime,
		DepartureQuantity:      m.DepartureQuantity,
		DestinationWarehouseID: m.DestinationWarehouseID,
		ArrivalTime:            m.ArrivalTime,
		ArrivalQuantity:        m.ArrivalQuantity,
		TransferTimeSeconds:    m.TransferTimeSeconds,
		QuantityDifference:     m.QuantityDifference,
		Complete:               m.IsComplete(),
	}
}

// stockToResponse builds the wire response from the read-side stock row.
func stockToResponse(row *query.StockRow) WarehouseStockResponse {
	return WarehouseStockResponse{
		WarehouseID: row.WarehouseID,
		ProductID:   row.ProductID,
		Quantity:    row.Quantity,
	}
}
