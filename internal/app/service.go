// Package service provides the core business service that implements
// the dependencies required by the HTTP API, plus the batch recommendation
// pipeline.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	interactionqueue "github.com/nazjaz/shortlist/internal/adapters/mq/queue"
	workerpool "github.com/nazjaz/shortlist/internal/adapters/mq/worker"
	repository "github.com/nazjaz/shortlist/internal/adapters/repository"
	"github.com/nazjaz/shortlist/internal/adapters/source"
	"github.com/nazjaz/shortlist/internal/domain/exclude"
	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/internal/domain/scoring"
	"github.com/nazjaz/shortlist/internal/domain/signals"
	"github.com/nazjaz/shortlist/internal/domain/types"
	"github.com/nazjaz/shortlist/pkg/logger"
	"github.com/nazjaz/shortlist/pkg/metrics"
)

// liveScorer adapts the signal scorers and the aggregator to worker.Scorer.
// It recomputes a candidate's sub-scores for every interaction and keeps the
// interaction counts that feed the popularity signal.
type liveScorer struct {
	agg      *scoring.Aggregator
	interest *signals.InterestScorer
	prox     *signals.ProximityScorer
	rec      *signals.RecencyScorer

	mu         sync.RWMutex
	candidates map[string]model.Candidate
	profiles   map[string]model.Profile
	counts     map[string]int
	maxCount   int

	now func() time.Time
}

func (s *liveScorer) Score(ctx context.Context, in model.Interaction) (float64, string, []string, error) {
	s.mu.Lock()
	s.counts[in.ItemID]++
	count := s.counts[in.ItemID]
	if count > s.maxCount {
		s.maxCount = count
	}
	maxCount := s.maxCount
	cand, haveCand := s.candidates[in.ItemID]
	prof, haveProf := s.profiles[in.UserID]
	s.mu.Unlock()

	sub := map[string]float64{
		signals.NameRecency:    s.rec.Score(in.TS, s.now()),
		signals.NamePopularity: signals.Popularity(count, maxCount),
	}
	if haveCand && haveProf {
		sub[signals.NameInterest] = s.interest.Score(prof.Interests, cand.Tags)
		sub[signals.NameProximity] = s.prox.Score(prof.Lat, prof.Lon, cand.Lat, cand.Lon)
	}

	// The live aggregator is configured without a minimum score or
	// availability predicate, so a single candidate always ranks.
	results := s.agg.Rank([]scoring.Candidate{{
		ID:        in.ItemID,
		SubScores: sub,
		Category:  cand.Category,
		InStock:   cand.InStock,
		Quantity:  cand.Quantity,
	}})
	r := results[0]
	return r.Score, string(r.Tier), r.Reasons, nil
}

// Service implements the API dependencies for the recommendation system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	ledger     exclude.Ledger
	queue      interactionqueue.Queue
	scorer     *liveScorer
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	ledgerSize  int
	weights     scoring.Weights
	minScore    float64
	highCutoff  float64
	lowCutoff   float64
	reasonCut   float64
	matchThresh float64
	radiusKm    float64
	halfLife    time.Duration
	snapshot    *source.Snapshot

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the interaction queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLedgerSize sets the size of the idempotency ledger.
func WithLedgerSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.ledgerSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWeights sets the sub-score weight vector used for aggregation.
func WithWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.weights = weights
		}
	}
}

// WithMinScore sets the minimum aggregate score served to clients.
func WithMinScore(min float64) Option {
	return func(s *Service) {
		if min >= 0 {
			s.minScore = min
		}
	}
}

// WithTierCutoffs sets the high and low tier cutoffs.
func WithTierCutoffs(high, low float64) Option {
	return func(s *Service) {
		if high >= low {
			s.highCutoff = high
			s.lowCutoff = low
		}
	}
}

// WithReasonCutoff sets the sub-score cutoff above which reasons are attached.
func WithReasonCutoff(cutoff float64) Option {
	return func(s *Service) {
		if cutoff > 0 {
			s.reasonCut = cutoff
		}
	}
}

// WithMatchThreshold sets the fuzzy term-match threshold for the interest signal.
func WithMatchThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.matchThresh = threshold
		}
	}
}

// WithRadiusKm sets the proximity signal radius.
func WithRadiusKm(radius float64) Option {
	return func(s *Service) {
		if radius > 0 {
			s.radiusKm = radius
		}
	}
}

// WithRecencyHalfLife sets the recency signal half-life.
func WithRecencyHalfLife(halfLife time.Duration) Option {
	return func(s *Service) {
		if halfLife > 0 {
			s.halfLife = halfLife
		}
	}
}

// WithSnapshot seeds the service with a catalog/profile snapshot so the
// interest and proximity signals have data to work from.
func WithSnapshot(snap *source.Snapshot) Option {
	return func(s *Service) {
		s.snapshot = snap
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		ledgerSize:  50000,
		weights: scoring.Weights{
			signals.NameInterest:   0.4,
			signals.NameProximity:  0.3,
			signals.NameRecency:    0.2,
			signals.NamePopularity: 0.1,
		},
		minScore:    0.3,
		highCutoff:  0.7,
		lowCutoff:   0.5,
		reasonCut:   0.5,
		matchThresh: 0.8,
		radiusKm:    50,
		halfLife:    30 * 24 * time.Hour,
		stopCh:      make(chan struct{}),
		logger:      nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting recommendation service...")

	// Initialize components
	s.store = repository.NewTreapStore(ctx)
	s.logger.Info(ctx, "using treap store")
	s.ledger = exclude.NewInMemoryLedger(
		exclude.WithMaxSize(s.ledgerSize),
	)
	s.queue = interactionqueue.NewInMemoryQueue(
		interactionqueue.WithCapacity(s.queueSize),
		interactionqueue.WithBufferSize(s.queueSize),
	)
	s.scorer = s.newLiveScorer()

	// Create and start worker pool
	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s.scorer, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "recommendation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("ledgerSize", s.ledgerSize),
	)

	return nil
}

// newLiveScorer builds the worker scorer from the configured signal
// parameters and the optional snapshot. Caller holds s.mu.
func (s *Service) newLiveScorer() *liveScorer {
	ls := &liveScorer{
		agg: scoring.New(
			scoring.WithWeights(s.weights),
			scoring.WithTierCutoffs(s.highCutoff, s.lowCutoff),
			scoring.WithReasonCutoff(s.reasonCut),
		),
		interest:   signals.NewInterestScorer(signals.WithMatchThreshold(s.matchThresh)),
		prox:       signals.NewProximityScorer(signals.WithRadiusKm(s.radiusKm)),
		rec:        signals.NewRecencyScorer(signals.WithHalfLife(s.halfLife)),
		candidates: make(map[string]model.Candidate),
		profiles:   make(map[string]model.Profile),
		counts:     make(map[string]int),
		now:        time.Now,
	}
	if s.snapshot != nil {
		for _, c := range s.snapshot.Candidates {
			ls.candidates[c.ID] = c
		}
		for _, p := range s.snapshot.Profiles {
			ls.profiles[p.UserID] = p
		}
		for _, in := range s.snapshot.Interactions {
			ls.counts[in.ItemID]++
			if ls.counts[in.ItemID] > ls.maxCount {
				ls.maxCount = ls.counts[in.ItemID]
			}
		}
	}
	return ls
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping recommendation service...")

	// Stop worker pool
	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	// Close ranked store
	if s.store != nil {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	// Close queue
	if q, ok := s.queue.(*interactionqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	// Signal cleanup loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "recommendation service stopped")
}

// SeenAndRecord atomically checks if an interaction id was seen and records it
// if not. Returns true if it was already seen, false if newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.ledger.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordInteractionDuplicate()
	}
	return seen
}

// Seen reports whether an interaction id is currently recorded.
func (s *Service) Seen(ctx context.Context, id string) bool {
	return s.ledger.Seen(ctx, id)
}

// Unrecord removes an interaction ID from the ledger, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.ledger.Unrecord(ctx, id)
}

// Enqueue submits an interaction for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, in model.Interaction) bool {
	s.logger.Debug(ctx, "enqueueing interaction",
		logger.String("interactionID", in.InteractionID),
		logger.String("itemID", in.ItemID),
		logger.String("kind", in.Kind),
	)

	success := s.queue.Enqueue(ctx, in)
	if success {
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	return success
}

// TopN returns the top N recommendations at or above the configured minimum
// score.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Recommendation, error) {
	entries, err := s.store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	// Convert to API format, dropping entries below the serving threshold.
	recs := make([]types.Recommendation, 0, len(entries))
	for _, entry := range entries {
		if entry.Score < s.minScore {
			continue
		}
		recs = append(recs, types.Recommendation{
			Rank:    entry.Rank,
			ItemID:  entry.ItemID,
			Score:   entry.Score,
			Tier:    entry.Tier,
			Reasons: entry.Reasons,
		})
	}
	metrics.RecordRecommendationsServed(len(recs))

	return recs, nil
}

// Rank returns the rank and score for a given item id.
func (s *Service) Rank(ctx context.Context, itemID string) (types.Recommendation, error) {
	entry, err := s.store.Rank(ctx, itemID)
	if err != nil {
		return types.Recommendation{}, err
	}

	return types.Recommendation{
		Rank:    entry.Rank,
		ItemID:  entry.ItemID,
		Score:   entry.Score,
		Tier:    entry.Tier,
		Reasons: entry.Reasons,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"ledgerSize":  s.ledgerSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalItems := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalItems"] = totalItems

		// Update metrics
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoreRecords(totalItems)
		metrics.UpdateWorkerActiveCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the ledger.
func (s *Service) Size() int64 {
	if s.ledger == nil {
		return 0
	}
	return s.ledger.Size()
}
