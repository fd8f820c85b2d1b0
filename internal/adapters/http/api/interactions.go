// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nazjaz/shortlist/internal/domain/exclude"
	"github.com/nazjaz/shortlist/internal/domain/model"
)

// InteractionDependencies defines the interface for interaction ingestion dependencies
type InteractionDependencies interface {
	exclude.Ledger
	Enqueue(ctx context.Context, in model.Interaction) bool
}

// InteractionsHandler handles interaction requests
type InteractionsHandler struct {
	deps InteractionDependencies
}

// NewInteractionsHandler creates a new interactions handler
func NewInteractionsHandler(deps InteractionDependencies) *InteractionsHandler {
	return &InteractionsHandler{deps: deps}
}

// HandlePostInteraction handles POST /interactions requests
func (h *InteractionsHandler) HandlePostInteraction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_interaction"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req interactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check - mark as seen first
	if h.deps.SeenAndRecord(r.Context(), req.InteractionID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	// Try to enqueue for async processing
	if ok := h.deps.Enqueue(r.Context(), req.toModel()); !ok {
		// Rollback the "seen" status since enqueue failed
		h.deps.Unrecord(r.Context(), req.InteractionID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
