// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// ItemDependencies defines the interface for item lookup operations.
type ItemDependencies interface {
	Rank(ctx context.Context, itemID string) (Recommendation, error)
}

// ItemHandler handles item rank requests.
type ItemHandler struct {
	deps ItemDependencies
}

// NewItemHandler creates a new item handler.
func NewItemHandler(deps ItemDependencies) *ItemHandler {
	return &ItemHandler{deps: deps}
}

// HandleGetItem handles GET /item/{item_id} requests.
func (h *ItemHandler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /item/
	path := strings.TrimPrefix(r.URL.Path, "/item/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	rec, err := h.deps.Rank(r.Context(), path)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
