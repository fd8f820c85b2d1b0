// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// QueueSize bounds the in-memory interaction queue.
	QueueSize int `koanf:"queue_size" validate:"gt=0"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count" validate:"gt=0"`

	// LedgerSize bounds the exclusion ledger; zero or negative means unbounded.
	LedgerSize int `koanf:"ledger_size"`

	// MaxRecommendationLimit caps GET /recommendations?limit.
	MaxRecommendationLimit int `koanf:"max_recommendation_limit" validate:"gt=0"`

	// Weights maps signal names to their contribution to the aggregate score.
	// Signals absent from the map contribute nothing.
	Weights map[string]float64 `koanf:"weights" validate:"required,min=1"`

	// MinScore drops candidates whose aggregate falls below the threshold.
	MinScore float64 `koanf:"min_score" validate:"gte=0"`

	// MaxResults truncates the ranked list in batch mode.
	MaxResults int `koanf:"max_results" validate:"gt=0"`

	// HighCutoff and LowCutoff bound the confidence tiers: scores above
	// HighCutoff are high, below LowCutoff are low, the rest medium.
	HighCutoff float64 `koanf:"high_cutoff" validate:"gte=0,lte=1"`
	LowCutoff  float64 `koanf:"low_cutoff" validate:"gte=0,lte=1,ltefield=HighCutoff"`

	// ReasonCutoff sets the minimum sub-score for a reason string.
	ReasonCutoff float64 `koanf:"reason_cutoff" validate:"gte=0,lte=1"`

	// MatchThreshold sets the similarity needed for an interest/tag match.
	MatchThreshold float64 `koanf:"match_threshold" validate:"gte=0,lte=1"`

	// RadiusKm bounds the proximity signal; items beyond it score zero.
	RadiusKm float64 `koanf:"radius_km" validate:"gt=0"`

	// RecencyHalfLifeDays controls how fast the recency signal decays.
	RecencyHalfLifeDays float64 `koanf:"recency_half_life_days" validate:"gt=0"`

	// CandidatesPath, InteractionsPath, and ProfilesPath locate the batch
	// snapshot files. Candidates and interactions are CSV, profiles JSON.
	CandidatesPath   string `koanf:"candidates_path"`
	InteractionsPath string `koanf:"interactions_path"`
	ProfilesPath     string `koanf:"profiles_path"`

	// CandidateColumns remaps logical candidate fields to CSV headers,
	// e.g. {"id": "product_id"}. Unmapped fields use the logical name.
	CandidateColumns map[string]string `koanf:"candidate_columns"`

	// ReportMarkdownPath and ReportJSONPath locate the batch report outputs.
	ReportMarkdownPath string `koanf:"report_markdown_path"`
	ReportJSONPath     string `koanf:"report_json_path"`

	// ForecastWindow and ForecastPeriods tune the report's engagement
	// projection: trailing window size and number of projected periods.
	ForecastWindow  int `koanf:"forecast_window" validate:"gt=0"`
	ForecastPeriods int `koanf:"forecast_periods" validate:"gt=0"`
}

// New creates a Config using provided options. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use (e.g.,
// loading from env/files) and is currently unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		QueueSize:              100_000,
		WorkerCount:            runtime.NumCPU() * 10,
		LedgerSize:             50_000,
		MaxRecommendationLimit: 100,
		Weights: map[string]float64{
			"interest":   0.4,
			"proximity":  0.3,
			"recency":    0.2,
			"popularity": 0.1,
		},
		MinScore:            0.3,
		MaxResults:          10,
		HighCutoff:          0.7,
		LowCutoff:           0.5,
		ReasonCutoff:        0.5,
		MatchThreshold:      0.8,
		RadiusKm:            50,
		RecencyHalfLifeDays: 30,
		CandidatesPath:      "data/candidates.csv",
		InteractionsPath:    "data/interactions.csv",
		ProfilesPath:        "data/profiles.json",
		ReportMarkdownPath:  "out/recommendations.md",
		ReportJSONPath:      "out/recommendations.json",
		ForecastWindow:      7,
		ForecastPeriods:     3,
	}
	return c
}
