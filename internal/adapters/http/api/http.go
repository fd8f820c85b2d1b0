// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nazjaz/shortlist/internal/adapters/repository"
	"github.com/nazjaz/shortlist/internal/domain/exclude"
	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	exclude.Ledger

	// Enqueue pushes an interaction for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, in model.Interaction) bool

	// Read operations expose ranked recommendation data.
	TopN(ctx context.Context, n int) ([]Recommendation, error)
	Rank(ctx context.Context, itemID string) (Recommendation, error)
}

// Recommendation mirrors the read shape returned by ranking queries.
type Recommendation = types.Recommendation

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	interactionsHandler    *InteractionsHandler
	recommendationsHandler *RecommendationsHandler
	itemHandler            *ItemHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:          NewHealthHandler(),
		statsHandler:           NewStatsHandler(statsProvider),
		interactionsHandler:    NewInteractionsHandler(deps),
		recommendationsHandler: NewRecommendationsHandler(deps, maxLimit),
		itemHandler:            NewItemHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux, deps Dependencies) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/interactions", MetricsMiddleware(s.interactionsHandler.HandlePostInteraction, "interactions"))
	mux.HandleFunc("/recommendations", MetricsMiddleware(s.recommendationsHandler.HandleGetRecommendations, "recommendations"))
	mux.HandleFunc("/item/", MetricsMiddleware(s.itemHandler.HandleGetItem, "item"))
}

// interactionRequest mirrors the OpenAPI schema for POST /interactions.
type interactionRequest struct {
	InteractionID string  `json:"interaction_id"`
	UserID        string  `json:"user_id"`
	ItemID        string  `json:"item_id"`
	Kind          string  `json:"kind"`
	Value         float64 `json:"value"`
	TS            string  `json:"ts"`
}

func (i interactionRequest) validate() error {
	switch {
	case strings.TrimSpace(i.InteractionID) == "":
		return errors.New("missing interaction_id")
	case strings.TrimSpace(i.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(i.ItemID) == "":
		return errors.New("missing item_id")
	case strings.TrimSpace(i.Kind) == "":
		return errors.New("missing kind")
	case strings.TrimSpace(i.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, i.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	return nil
}

// toModel converts a validated request into the domain interaction.
func (i interactionRequest) toModel() model.Interaction {
	ts, _ := time.Parse(time.RFC3339, i.TS)
	return model.Interaction{
		InteractionID: i.InteractionID,
		UserID:        i.UserID,
		ItemID:        i.ItemID,
		Kind:          i.Kind,
		Value:         i.Value,
		TS:            ts,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound allows the API to translate upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
