package simulate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nazjaz/shortlist/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete interaction simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting shortlist interaction simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("interactions", config.NumInteractions),
		logger.Int("items", config.NumItems),
		logger.Int("users", config.NumUsers),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate interactions
	interactions, err := generateInteractions(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("interaction generation failed: %w", err)
	}

	// Step 3: Submit interactions concurrently
	if err := submitInteractions(ctx, config, interactions, stats); err != nil {
		return fmt.Errorf("interaction submission failed: %w", err)
	}

	// Step 4: Wait for processing
	logger.Get().Info(ctx, "waiting for interactions to be processed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve per-item rankings concurrently
	rankings, err := retrieveItems(ctx, config, interactions, stats)
	if err != nil {
		return fmt.Errorf("item retrieval failed: %w", err)
	}

	// Step 6: Get recommendations
	recommendations, err := getRecommendations(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("recommendation retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(config, rankings, recommendations); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save interactions to file
	if err := saveInteractionsToFile(ctx, config, interactions); err != nil {
		logger.Get().Warn(ctx, "failed to save interactions to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the endpoint serves Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveInteractionsToFile saves the generated interactions to a JSON file.
func saveInteractionsToFile(ctx context.Context, config *Config, interactions []Interaction) error {
	if len(interactions) == 0 {
		return fmt.Errorf("no interactions to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_interactions_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write interactions to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, in := range interactions {
		jsonData, err := marshalJSON(in)
		if err != nil {
			return fmt.Errorf("failed to marshal interaction %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write interaction %d: %w", i, err)
		}

		// Add comma except for last interaction
		if i < len(interactions)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "interactions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, interactionsPerSecond float64

	if stats.InteractionsSubmitted > 0 {
		successRate = float64(stats.InteractionsSuccessful) / float64(stats.InteractionsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		interactionsPerSecond = float64(stats.InteractionsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("interactionsGenerated", stats.InteractionsGenerated),
		logger.Int("interactionsSubmitted", stats.InteractionsSubmitted),
		logger.Int("interactionsSuccessful", stats.InteractionsSuccessful),
		logger.Int("interactionsDuplicate", stats.InteractionsDuplicate),
		logger.Int("interactionsFailed", stats.InteractionsFailed),
		logger.Int("itemsRetrieved", stats.ItemsRetrieved),
		logger.Int("recommendationEntries", stats.RecommendationEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("interactionsPerSecond", interactionsPerSecond))
}
