// Command report builds a one-shot recommendation report for a single user
// from the configured snapshot files and writes it as Markdown and JSON.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nazjaz/shortlist/internal/adapters/report"
	"github.com/nazjaz/shortlist/internal/adapters/source"
	app "github.com/nazjaz/shortlist/internal/app"
	"github.com/nazjaz/shortlist/internal/config"
	"github.com/nazjaz/shortlist/internal/domain/scoring"
	"github.com/nazjaz/shortlist/internal/domain/signals"
	"github.com/nazjaz/shortlist/pkg/logger"
)

const hoursPerDay = 24

// recencyHalfLife converts the configured day count to a duration without
// truncating fractional days.
func recencyHalfLife(days float64) time.Duration {
	return time.Duration(days * hoursPerDay * float64(time.Hour))
}

func main() {
	userID := flag.String("user", "", "user ID to build recommendations for")
	flag.Parse()

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if *userID == "" {
		os.Stderr.WriteString("usage: report -user <user-id>\n")
		os.Exit(2)
	}

	loader := source.NewLoader(
		source.WithCandidatesPath(cfg.CandidatesPath),
		source.WithInteractionsPath(cfg.InteractionsPath),
		source.WithProfilesPath(cfg.ProfilesPath),
		source.WithCandidateColumns(cfg.CandidateColumns),
	)

	renderer := report.NewRenderer(
		report.WithMarkdownPath(cfg.ReportMarkdownPath),
		report.WithJSONPath(cfg.ReportJSONPath),
	)

	agg := scoring.New(
		scoring.WithWeights(cfg.Weights),
		scoring.WithMinScore(cfg.MinScore),
		scoring.WithMaxResults(cfg.MaxResults),
		scoring.WithTierCutoffs(cfg.HighCutoff, cfg.LowCutoff),
		scoring.WithReasonCutoff(cfg.ReasonCutoff),
		scoring.WithAvailability(func(c scoring.Candidate) bool {
			return c.InStock && c.Quantity > 0
		}),
	)

	pipeline := app.NewPipeline(loader, renderer,
		app.WithAggregator(agg),
		app.WithSignalScorers(
			signals.NewInterestScorer(signals.WithMatchThreshold(cfg.MatchThreshold)),
			signals.NewProximityScorer(signals.WithRadiusKm(cfg.RadiusKm)),
			signals.NewRecencyScorer(signals.WithHalfLife(recencyHalfLife(cfg.RecencyHalfLifeDays))),
		),
		app.WithForecastWindow(cfg.ForecastWindow),
		app.WithForecastPeriods(cfg.ForecastPeriods),
		app.WithPipelineLogger(log),
	)

	rep, err := pipeline.Run(ctx, *userID)
	if err != nil {
		log.Error(ctx, "report run failed", logger.Error(err))
		os.Exit(1)
	}

	log.Info(ctx, "report written",
		logger.String("run_id", rep.RunID),
		logger.String("user_id", rep.UserID),
		logger.Int("items", len(rep.Items)),
		logger.String("markdown", cfg.ReportMarkdownPath),
		logger.String("json", cfg.ReportJSONPath))
}
