// internal/api/handlers.go
//
// Route handlers.  Items are fixed in memory; ids above MaxItemID are 404.

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/fleetapp/internal/database"
)

const (
	// MaxItemID is the highest id GET items/{id} answers.
	MaxItemID = 100

	apiVersion   = "v1"
	itemVersion  = "1.0"
	maxBodyBytes = 1 << 20
)

type item struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

var fixedItems = []item{
	{ID: 1, Name: "Item 1", Version: itemVersion},
	{ID: 2, Name: "Item 2", Version: itemVersion},
	{ID: 3, Name: "Test Item", Version: itemVersion},
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Welcome to " + h.settings.AppName,
		"environment": h.settings.Environment,
		"version":     Version,
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := database.Ping(r.Context(), h.db); err != nil {
			zap.S().Warnw("readiness ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) listItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items":       fixedItems,
		"api_version": apiVersion,
		"total":       len(fixedItems),
	})
}

var maxItemID = big.NewInt(MaxItemID)

// getItem accepts any decimal integer, however large, so an id past the
// int64 range is still "above MaxItemID" rather than malformed.
func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := new(big.Int).SetString(chi.URLParam(r, "item_id"), 10)
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "item_id must be an integer")
		return
	}
	if id.Cmp(maxItemID) > 0 {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"name":        "Item " + id.String(),
		"version":     itemVersion,
		"api_version": apiVersion,
	})
}

// createItem echoes the posted object.  The body is re-emitted as sent
// (compacted), so key order and number formatting survive.
func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "request body could not be read")
		return
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "request body must be a JSON object")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Item created",
		"item":    json.RawMessage(compact.Bytes()),
	})
}
