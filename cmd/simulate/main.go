package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/nazjaz/shortlist/internal/simulate"
)

// Default configuration constants.
const (
	defaultNumInteractions = 10000
	defaultNumItems        = 500
	defaultNumUsers        = 200
	defaultTopN            = 50
	defaultWorkers         = 2 // multiplier for runtime.NumCPU()
	defaultTimeout         = 30 * time.Second
	defaultRunTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL         = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numInteractions = flag.Int("interactions", defaultNumInteractions, "Number of interactions to generate and submit")
		numItems        = flag.Int("items", defaultNumItems, "Size of the synthetic item pool")
		numUsers        = flag.Int("users", defaultNumUsers, "Size of the synthetic user pool")
		topN            = flag.Int("top", defaultTopN, "Number of top recommendations to fetch")
		workers         = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout         = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile      = flag.String("output", "", "Output file for generated interactions (default: generated_interactions_TIMESTAMP.json)")
		logFile         = flag.String("log", "", "Log file for simulation output (default: simulate_log_TIMESTAMP.log)")
		verbose         = flag.Bool("verbose", false, "Enable verbose logging")
		help            = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	// Setup logging
	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulate.Config{
		BaseURL:         *baseURL,
		NumInteractions: *numInteractions,
		NumItems:        *numItems,
		NumUsers:        *numUsers,
		TopN:            *topN,
		Workers:         *workers,
		Timeout:         *timeout,
		OutputFile:      *outputFile,
		LogFile:         *logFile,
		Verbose:         *verbose,
	}

	// Run the simulation
	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
