package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nazjaz/shortlist/internal/adapters/report"
	"github.com/nazjaz/shortlist/internal/adapters/source"
	"github.com/nazjaz/shortlist/internal/domain/exclude"
	"github.com/nazjaz/shortlist/internal/domain/forecast"
	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/internal/domain/scoring"
	"github.com/nazjaz/shortlist/internal/domain/signals"
	"github.com/nazjaz/shortlist/pkg/logger"
	"github.com/nazjaz/shortlist/pkg/metrics"
)

// Default pipeline configuration constants.
const (
	defaultForecastWindow  = 7
	defaultForecastPeriods = 3
)

// Pipeline runs the batch recommendation flow: load snapshots, exclude seen
// items, compute sub-scores, rank, forecast engagement, and render the report.
type Pipeline struct {
	loader   *source.Loader
	renderer *report.Renderer
	ledger   exclude.Ledger
	agg      *scoring.Aggregator
	interest *signals.InterestScorer
	prox     *signals.ProximityScorer
	rec      *signals.RecencyScorer

	forecastWindow  int
	forecastPeriods int

	now    func() time.Time
	logger logger.Logger
}

// PipelineOption applies a configuration option to the Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLedger sets the exclusion ledger.
func WithPipelineLedger(l exclude.Ledger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.ledger = l
		}
	}
}

// WithAggregator sets the score aggregator.
func WithAggregator(a *scoring.Aggregator) PipelineOption {
	return func(p *Pipeline) {
		if a != nil {
			p.agg = a
		}
	}
}

// WithSignalScorers sets the sub-score producers.
func WithSignalScorers(interest *signals.InterestScorer, prox *signals.ProximityScorer, rec *signals.RecencyScorer) PipelineOption {
	return func(p *Pipeline) {
		if interest != nil {
			p.interest = interest
		}
		if prox != nil {
			p.prox = prox
		}
		if rec != nil {
			p.rec = rec
		}
	}
}

// WithForecastWindow sets the moving-average window in days.
func WithForecastWindow(window int) PipelineOption {
	return func(p *Pipeline) {
		if window > 0 {
			p.forecastWindow = window
		}
	}
}

// WithForecastPeriods sets the number of projected periods.
func WithForecastPeriods(periods int) PipelineOption {
	return func(p *Pipeline) {
		if periods > 0 {
			p.forecastPeriods = periods
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a batch pipeline with configuration options.
func NewPipeline(loader *source.Loader, renderer *report.Renderer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		loader:          loader,
		renderer:        renderer,
		ledger:          exclude.NewInMemoryLedger(),
		agg:             scoring.New(),
		interest:        signals.NewInterestScorer(),
		prox:            signals.NewProximityScorer(),
		rec:             signals.NewRecencyScorer(),
		forecastWindow:  defaultForecastWindow,
		forecastPeriods: defaultForecastPeriods,
		now:             time.Now,
		logger:          logger.Get().Named("pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run executes the pipeline for one user and renders the report.
func (p *Pipeline) Run(ctx context.Context, userID string) (*report.Report, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPipelineRun(float64(time.Since(start).Milliseconds()))
	}()

	snap, err := p.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	profile, found := findProfile(snap.Profiles, userID)
	if !found {
		p.logger.Warn(ctx, "no profile for user; interest and proximity signals are skipped",
			logger.String("userID", userID),
		)
	}

	candByID := make(map[string]model.Candidate, len(snap.Candidates))
	for _, c := range snap.Candidates {
		candByID[c.ID] = c
	}

	// Seed the exclusion ledger from the user's purchase history.
	for _, in := range snap.Interactions {
		if in.UserID == userID && in.Kind == model.KindPurchase {
			p.ledger.SeenAndRecord(ctx, exclude.Key(userID, in.ItemID))
		}
	}

	// Popularity counts across all users, and the user's last interaction
	// per catalog category for the recency signal.
	counts := make(map[string]int)
	maxCount := 0
	lastByCategory := make(map[string]time.Time)
	for _, in := range snap.Interactions {
		counts[in.ItemID]++
		if counts[in.ItemID] > maxCount {
			maxCount = counts[in.ItemID]
		}
		if in.UserID == userID {
			if cat := candByID[in.ItemID].Category; cat != "" {
				if in.TS.After(lastByCategory[cat]) {
					lastByCategory[cat] = in.TS
				}
			}
		}
	}

	now := p.now()
	candidates := make([]scoring.Candidate, 0, len(snap.Candidates))
	for _, c := range snap.Candidates {
		if p.ledger.Seen(ctx, exclude.Key(userID, c.ID)) {
			metrics.RecordCandidateExcluded()
			continue
		}

		sub := map[string]float64{
			signals.NameRecency:    p.rec.Score(lastByCategory[c.Category], now),
			signals.NamePopularity: signals.Popularity(counts[c.ID], maxCount),
		}
		// Without a profile there is no position or interest set to compare
		// against; a zero-value profile would put unknown users at lat/lon
		// (0,0) and score coordinate-less candidates as adjacent.
		if found {
			sub[signals.NameInterest] = p.interest.Score(profile.Interests, c.Tags)
			sub[signals.NameProximity] = p.prox.Score(profile.Lat, profile.Lon, c.Lat, c.Lon)
		}
		candidates = append(candidates, scoring.Candidate{
			ID:        c.ID,
			SubScores: sub,
			Category:  c.Category,
			InStock:   c.InStock,
			Quantity:  c.Quantity,
		})
		metrics.RecordCandidateScored()
	}

	results := p.agg.Rank(candidates)
	for i := len(results); i < len(candidates); i++ {
		metrics.RecordCandidateBelowCutoff()
	}

	items := make([]report.Item, len(results))
	for i, r := range results {
		items[i] = report.Item{
			Rank:    i + 1,
			ID:      r.ID,
			Name:    candByID[r.ID].Name,
			Score:   r.Score,
			Tier:    string(r.Tier),
			Reasons: r.Reasons,
		}
	}
	metrics.RecordRecommendationsServed(len(items))

	rep := &report.Report{
		RunID:       report.NewRunID(),
		GeneratedAt: now,
		UserID:      userID,
		Items:       items,
		Forecast:    p.forecastEngagement(ctx, snap.Interactions),
	}

	if err := p.renderer.Render(ctx, rep); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	p.logger.Info(ctx, "pipeline run complete",
		logger.String("run_id", rep.RunID),
		logger.String("userID", userID),
		logger.Int("candidates", len(candidates)),
		logger.Int("recommended", len(items)),
	)

	return rep, nil
}

// forecastEngagement projects daily interaction volume. Returns nil when the
// series is too short to fit a trend.
func (p *Pipeline) forecastEngagement(ctx context.Context, interactions []model.Interaction) *report.Forecast {
	series := dailySeries(interactions)
	if len(series) == 0 {
		return nil
	}

	avg, err := forecast.MovingAverage(series, p.forecastWindow)
	if err != nil {
		return nil
	}
	slope, _, err := forecast.Trend(series)
	if err != nil {
		p.logger.Debug(ctx, "engagement series too short for a trend",
			logger.Int("days", len(series)),
		)
		return nil
	}
	projected, err := forecast.Project(series, p.forecastPeriods)
	if err != nil {
		return nil
	}

	return &report.Forecast{
		Window:        p.forecastWindow,
		MovingAverage: avg,
		Slope:         slope,
		Projected:     projected,
	}
}

// dailySeries buckets interactions into per-day counts over the observed date
// range, oldest first. Days with no interactions count zero.
func dailySeries(interactions []model.Interaction) []float64 {
	byDay := make(map[string]int)
	var first, last time.Time
	for _, in := range interactions {
		if in.TS.IsZero() {
			continue
		}
		day := in.TS.UTC().Truncate(24 * time.Hour)
		byDay[day.Format("2006-01-02")]++
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}
	if len(byDay) == 0 {
		return nil
	}

	series := make([]float64, 0, len(byDay))
	for day := first; !day.After(last); day = day.Add(24 * time.Hour) {
		series = append(series, float64(byDay[day.Format("2006-01-02")]))
	}
	return series
}

// findProfile locates a user profile in a snapshot.
func findProfile(profiles []model.Profile, userID string) (model.Profile, bool) {
	for _, p := range profiles {
		if p.UserID == userID {
			return p, true
		}
	}
	return model.Profile{}, false
}
