package simulate

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveItems fetches the ranked entry for every distinct item concurrently.
func retrieveItems(ctx context.Context, config *Config, interactions []Interaction, stats *Stats) ([]Entry, error) {
	// Extract distinct item IDs
	seen := make(map[string]struct{}, len(interactions))
	itemIDs := make([]string, 0, len(interactions))
	for _, in := range interactions {
		if _, ok := seen[in.ItemID]; ok {
			continue
		}
		seen[in.ItemID] = struct{}{}
		itemIDs = append(itemIDs, in.ItemID)
	}

	log.Printf("retrieving rankings for %d items with %d workers...", len(itemIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	rankings := make([]Entry, len(itemIDs))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool; send indices so results land in place
	itemChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range itemChan {
				select {
				case <-ctx.Done():
					return
				default:
					itemID := itemIDs[index]
					entry, err := retrieveSingleItem(ctx, client, config.BaseURL, itemID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("failed to get rank for %s: %v", itemID, err)
						}
					} else {
						rankings[index] = entry
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("rankings: %d/%d retrieved (success: %d, failed: %d)",
							total, len(itemIDs), ret, fail)
					}
				}
			}
		}()
	}

	// Send item indices to workers
	go func() {
		defer close(itemChan)
		for i := range itemIDs {
			select {
			case <-ctx.Done():
				return
			case itemChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (failed or below-threshold retrievals)
	validRankings := make([]Entry, 0, len(rankings))
	for _, entry := range rankings {
		if entry.ItemID != "" { // Empty ItemID indicates failed retrieval
			validRankings = append(validRankings, entry)
		}
	}

	// Update stats
	stats.ItemsRetrieved = len(validRankings)

	log.Printf(`item retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validRankings), int(atomic.LoadInt64(&failed)))

	return validRankings, nil
}

// retrieveSingleItem retrieves the ranked entry for one item.
func retrieveSingleItem(ctx context.Context, client *HTTPClient, baseURL, itemID string) (Entry, error) {
	url := fmt.Sprintf("%s/item/%s", baseURL, itemID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Entry{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return Entry{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var entry Entry
	if err := unmarshalJSON(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return entry, nil
}

// getRecommendations retrieves the top N recommendation entries.
func getRecommendations(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("getting top %d recommendations...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/recommendations?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var recommendations []Entry
	if err := unmarshalJSON(body, &recommendations); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.RecommendationEntries = len(recommendations)
	log.Printf("retrieved %d recommendation entries", len(recommendations))

	return recommendations, nil
}
