package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/pathwise/internal/api"
	"github.com/hyperengineering/pathwise/internal/backup"
	"github.com/hyperengineering/pathwise/internal/config"
	"github.com/hyperengineering/pathwise/internal/metrics"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

// dbPathOverride replaces the configured database path for any command.
var dbPathOverride string

var rootCmd = &cobra.Command{
	Use:          "pathwise",
	Short:        "Pathwise - progress aggregation and adaptive suggestions",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathOverride, "db", "",
		"Database path (overrides config and PATHWISE_DB_PATH)")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(achievementsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(backupCmd)
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if dbPathOverride != "" {
		cfg.Database.Path = dbPathOverride
	}
	slog.Info("configuration loaded")

	// 3. Initialize logger
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// 4. Initialize store (migrations, WAL mode)
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 6. Engine components
	eng, err := newEngine(cfg, db, m)
	if err != nil {
		db.Close()
		return err
	}
	slog.Info("generator initialized", "model", eng.generatorModel)

	if err := eng.evaluator.Seed(ctx); err != nil {
		// Evaluation seeds lazily on first use, so a failure here is not fatal.
		slog.Warn("achievement seed failed", "component", "achievement", "error", err)
	}

	// 7. Initialize HTTP router
	if cfg.Auth.APIKey == "" {
		slog.Warn("service key not set, API authentication disabled", "component", "api")
	}
	handler := api.NewHandler(db, eng.aggregator, eng.analyzer, eng.evaluator,
		eng.generatorModel, cfg.Auth.APIKey, Version)
	limiter := api.NewUserRateLimiter(cfg.Adaptive.RatePerMinute, cfg.Adaptive.Burst)
	router := api.NewRouter(handler, m, reg, limiter)
	slog.Info("router initialized")

	// 8. Configure HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	// 9. Background workers
	var wg sync.WaitGroup
	if interval := time.Duration(cfg.Backup.Interval); interval > 0 {
		uploader, err := backup.NewUploader(cfg.Backup)
		if err != nil {
			db.Close()
			return err
		}
		w := worker.NewBackupWorker(db, uploader, cfg.Backup.Dir, interval)
		startWorker(ctx, &wg, "backup", w.Run)
	}

	// 10. Start HTTP server in goroutine
	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	// 11. Block until signal received
	<-ctx.Done()
	slog.Info("shutdown initiated")

	// 12. Graceful shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	// 12a. Stop HTTP server (drains in-flight requests)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// 12b. Wait for workers to complete
	wg.Wait()

	// 12c. Close store
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
