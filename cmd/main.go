package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nazjaz/shortlist/internal/adapters/http/api"
	"github.com/nazjaz/shortlist/internal/adapters/http/swagger"
	"github.com/nazjaz/shortlist/internal/adapters/source"
	app "github.com/nazjaz/shortlist/internal/app"
	"github.com/nazjaz/shortlist/internal/config"
	"github.com/nazjaz/shortlist/pkg/logger"
	"github.com/nazjaz/shortlist/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	hoursPerDay               = 24
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithLedgerSize(cfg.LedgerSize),
		app.WithWeights(cfg.Weights),
		app.WithMinScore(cfg.MinScore),
		app.WithTierCutoffs(cfg.HighCutoff, cfg.LowCutoff),
		app.WithReasonCutoff(cfg.ReasonCutoff),
		app.WithMatchThreshold(cfg.MatchThreshold),
		app.WithRadiusKm(cfg.RadiusKm),
		app.WithRecencyHalfLife(recencyHalfLife(cfg.RecencyHalfLifeDays)),
	}

	// Seed the live scorer from the batch snapshot when the files exist.
	// Serving without them still works; interest and proximity signals
	// just stay silent for unknown candidates and users.
	if snap := loadSnapshot(ctx, cfg, loggerInstance); snap != nil {
		opts = append(opts, app.WithSnapshot(snap))
	}

	// Create and start the service with configuration options
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register the API reference under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, cfg.MaxRecommendationLimit)
	apiServer.Register(ctx, mux, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// recencyHalfLife converts the configured day count to a duration without
// truncating fractional days.
func recencyHalfLife(days float64) time.Duration {
	return time.Duration(days * hoursPerDay * float64(time.Hour))
}

// loadSnapshot reads the candidate, interaction, and profile files named in
// the configuration. A missing or unreadable snapshot is not fatal in serve
// mode; it returns nil and the service runs without seeded context.
func loadSnapshot(ctx context.Context, cfg *config.Config, log logger.Logger) *source.Snapshot {
	if _, err := os.Stat(cfg.CandidatesPath); err != nil {
		log.Info(ctx, "no candidate snapshot; serving without seeded context", logger.String("path", cfg.CandidatesPath))
		return nil
	}

	loader := source.NewLoader(
		source.WithCandidatesPath(cfg.CandidatesPath),
		source.WithInteractionsPath(cfg.InteractionsPath),
		source.WithProfilesPath(cfg.ProfilesPath),
		source.WithCandidateColumns(cfg.CandidateColumns),
	)
	snap, err := loader.Load(ctx)
	if err != nil {
		log.Warn(ctx, "snapshot load failed; serving without seeded context", logger.Error(err))
		return nil
	}

	log.Info(ctx, "snapshot loaded",
		logger.Int("candidates", len(snap.Candidates)),
		logger.Int("interactions", len(snap.Interactions)),
		logger.Int("profiles", len(snap.Profiles)))
	return snap
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if totalItems, ok := stats["totalItems"].(int); ok {
		metrics.UpdateStoreRecords(totalItems)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerActiveCount(workerCount)
	}
}
