// Package worker defines worker contracts for asynchronous interaction scoring.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/pkg/logger"
	"github.com/nazjaz/shortlist/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 10 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Interaction abstracts what workers read off the queue.
// Using the model.Interaction type for consistency.
type Interaction = model.Interaction

// Updater records the best score seen so far for an item.
type Updater interface {
	UpdateBest(ctx context.Context, itemID string, score float64) (bool, error)
	// Optional extended method for metadata-aware repositories
	UpdateBestWithMeta(ctx context.Context, itemID string, score float64, interactionID string, tier string, reasons []string) (bool, error)
}

// Scorer computes an aggregate score for an interaction.
type Scorer interface {
	Score(ctx context.Context, in Interaction) (score float64, tier string, reasons []string, err error)
}

// Queue defines how workers receive interactions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Interaction
}

// Worker processes interactions and writes score updates using the provided interfaces.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining interactions before stopping.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing interactions.
type InMemoryWorker struct {
	queue   Queue
	scorer  Scorer
	updater Updater
	name    string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, scorer Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		scorer:   scorer,
		updater:  updater,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"), // will be updated by options
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	interactionChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case in, ok := <-interactionChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			// Process the interaction
			if err := w.processInteraction(ctx, in); err != nil {
				w.logger.Error(ctx, "error processing interaction", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processInteraction handles a single interaction.
func (w *InMemoryWorker) processInteraction(ctx context.Context, in Interaction) error { //nolint:gocritic // hugeParam: Interaction must be passed by value for channel semantics
	// Track overall processing latency
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordWorkerLatency(float64(latency))
	}()

	// Track scoring latency
	scoreStart := time.Now()
	score, tier, reasons, err := w.scorer.Score(ctx, in)
	scoreLatency := time.Since(scoreStart).Milliseconds()

	// Record scoring latency metric
	metrics.RecordScoringLatency(float64(scoreLatency))

	if err != nil {
		// Record scoring error metric
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		w.logger.Error(ctx, "scoring failed for interaction",
			logger.String("interactionID", in.InteractionID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to score interaction %s: %w", in.InteractionID, err)
	}

	// Update the ranked store
	var updated bool
	if extended, ok := any(w.updater).(interface {
		UpdateBestWithMeta(ctx context.Context, itemID string, score float64, interactionID string, tier string, reasons []string) (bool, error)
	}); ok {
		updated, err = extended.UpdateBestWithMeta(ctx, in.ItemID, score, in.InteractionID, tier, reasons)
	} else {
		updated, err = w.updater.UpdateBest(ctx, in.ItemID, score)
	}
	if err != nil {
		// Record store error metric
		metrics.RecordStoreError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		w.logger.Error(ctx, "store update failed for interaction",
			logger.String("interactionID", in.InteractionID),
			logger.Error(err),
		)
		return fmt.Errorf("store update failed: %w", err)
	}

	if updated {
		// Record store update metric
		metrics.RecordStoreUpdate()
		metrics.RecordInteractionProcessed()
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	scorer  Scorer
	updater Updater

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Metrics tracking
	processedCount    int64
	lastProcessedTime time.Time

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, scorer Scorer, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		scorer:            scorer,
		updater:           updater,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			scorer,
			updater,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	// Initialize worker metrics
	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerThroughput(0.0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}

	// Start metrics updater
	go p.startMetricsUpdater(ctx)
}

// startMetricsUpdater starts a background goroutine that updates worker metrics.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

// updateMetrics updates worker-related metrics.
func (p *Pool) updateMetrics() {
	// Calculate interactions per second
	now := time.Now()
	timeDiff := now.Sub(p.lastProcessedTime).Seconds()
	if timeDiff > 0 {
		perSecond := float64(p.processedCount) / timeDiff
		metrics.UpdateWorkerThroughput(perSecond)
	}

	// Reset counters
	p.processedCount = 0
	p.lastProcessedTime = now
}

// RecordProcessedMessage increments the processed message count.
func (p *Pool) RecordProcessedMessage() {
	p.processedCount++
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish
	for _, worker := range p.workers {
		select {
		case <-worker.done:
			// Worker finished
		case <-time.After(workerShutdownTimeout):
			// Worker timeout
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new interactions
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	// Signal shutdown to all workers
	close(p.shutdown)

	// Wait for all workers to finish or context to timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
