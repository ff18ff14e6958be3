// Package api provides HTTP response utilities for ParcelPipe.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// internalErrorBody is sent when the real response cannot be encoded.
var internalErrorBody = []byte(`{"status":"error","message":"Internal server error"}`)

// writeJSON encodes v before touching the ResponseWriter so an encoding
// failure can still become a clean 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Server.writeJSON: encode failed", "status", status, "error", err)
		body = internalErrorBody
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Warn("Server.writeJSON: write failed", "status", status, "error", err)
	}
}

// writeError sends the error envelope with message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.Error(message))
}

// decodeJSON reads a body of at most MaxRequestBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
