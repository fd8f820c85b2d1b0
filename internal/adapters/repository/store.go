// Package repository defines the ranked recommendation store interface and errors.
package repository

import "context"

// Entry represents a ranked recommendation row.
type Entry struct {
	Rank          int
	ItemID        string
	Score         float64
	InteractionID string
	Tier          string
	Reasons       []string
}

// Store provides read/write access to the ranking state.
type Store interface {
	// UpdateBest sets a new best score for an item if higher than the existing one.
	// Returns true if the store updated the score, false otherwise.
	UpdateBest(ctx context.Context, itemID string, score float64) (bool, error)
	// UpdateBestWithMeta sets a new best score and stores associated metadata when improved.
	UpdateBestWithMeta(ctx context.Context, itemID string, score float64, interactionID string, tier string, reasons []string) (bool, error)

	// Rank returns the current rank and score for an item.
	// Returns ErrNotFound if the item is unknown.
	Rank(ctx context.Context, itemID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of items tracked in the store.
	Count(ctx context.Context) int
}
