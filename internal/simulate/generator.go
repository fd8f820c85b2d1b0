package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nazjaz/shortlist/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	interactionDivisor = 10000
	kindDivisor        = 10
)

// Constants for the interaction kind distribution. Views dominate, ratings
// are common, purchases are rare, matching typical engagement funnels.
const (
	viewKindCeiling   = 6 // 0-5: view
	ratingKindCeiling = 9 // 6-8: rating
)

// Constants for value generation ranges.
const (
	ratingMin   = 1.0
	ratingRange = 4.0
	priceMin    = 5.0
	priceRange  = 195.0
	viewValue   = 1.0
)

// Interaction kinds.
const (
	kindView     = "view"
	kindRating   = "rating"
	kindPurchase = "purchase"
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomIndex returns a random index below n using crypto/rand.
func getRandomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateInteractions creates the specified number of interactions drawn
// from fixed user and item pools so popularity and duplicates can emerge.
func generateInteractions(ctx context.Context, config *Config, stats *Stats) ([]Interaction, error) {
	logger.Get().Info(ctx, "generating interactions",
		logger.Int("numInteractions", config.NumInteractions),
		logger.Int("items", config.NumItems),
		logger.Int("users", config.NumUsers))

	interactions := make([]Interaction, config.NumInteractions)

	// Pre-allocate the user and item pools so interactions overlap
	itemIDs := make([]string, config.NumItems)
	for i := range itemIDs {
		itemIDs[i] = "item-" + uuid.New().String()
	}
	userIDs := make([]string, config.NumUsers)
	for i := range userIDs {
		userIDs[i] = "user-" + uuid.New().String()
	}

	// Generate interactions concurrently
	type interactionResult struct {
		index       int
		interaction Interaction
		err         error
	}

	resultChan := make(chan interactionResult, config.NumInteractions)

	// Use worker pool for interaction generation
	workerCount := minInt(config.Workers, config.NumInteractions)
	perWorker := config.NumInteractions / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.NumInteractions // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- interactionResult{index: i, err: ctx.Err()}
					return
				default:
					in := generateSingleInteraction(i, userIDs, itemIDs)
					resultChan <- interactionResult{index: i, interaction: in, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumInteractions; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during interaction generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate interaction %d: %w", result.index, result.err)
			}
			interactions[result.index] = result.interaction
		}
	}

	stats.InteractionsGenerated = len(interactions)
	logger.Get().Info(ctx, "generated interactions successfully", logger.Int("count", len(interactions)))

	return interactions, nil
}

// generateSingleInteraction creates one interaction for a random user/item pair.
func generateSingleInteraction(index int, userIDs, itemIDs []string) Interaction {
	kind, value := generateKindAndValue()

	// Current timestamp in RFC3339 format
	timestamp := time.Now().UTC().Format(time.RFC3339)

	// Generate unique interaction ID
	randNum, _ := rand.Int(rand.Reader, big.NewInt(interactionDivisor))
	interactionID := "interaction_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	return Interaction{
		InteractionID: interactionID,
		UserID:        userIDs[getRandomIndex(len(userIDs))],
		ItemID:        itemIDs[getRandomIndex(len(itemIDs))],
		Kind:          kind,
		Value:         value,
		TS:            timestamp,
	}
}

// generateKindAndValue picks an interaction kind and a plausible value for it.
func generateKindAndValue() (string, float64) {
	n, _ := rand.Int(rand.Reader, big.NewInt(kindDivisor))
	switch {
	case n.Int64() < viewKindCeiling:
		// Views carry a unit value
		return kindView, viewValue
	case n.Int64() < ratingKindCeiling:
		// Ratings between 1.0 and 5.0
		return kindRating, ratingMin + getRandomFloat()*ratingRange
	default:
		// Purchases carry an order value
		return kindPurchase, priceMin + getRandomFloat()*priceRange
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
