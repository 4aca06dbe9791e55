// internal/api/json.go
//
// JSON response helpers.  Every error body is {"detail": "..."}.

package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// writeJSON encodes v with status.  Encoding errors are logged; the status
// line is already gone by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("response encode failed", "err", err)
	}
}

// writeDetail writes the {"detail": msg} error body.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
