package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON encodes v as the response body with Content-Type: application/json,
// logging (but not failing further) on an encode error - the status code and
// headers are already committed by the time encoding could fail.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
}
