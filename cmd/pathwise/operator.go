package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/hyperengineering/pathwise/internal/config"
	"github.com/hyperengineering/pathwise/internal/store"
	"github.com/hyperengineering/pathwise/internal/validation"
)

var (
	jsonOutput bool
	userFlag   string
	planFlag   string
)

// operatorEnv is what offline commands run against.
type operatorEnv struct {
	cfg    *config.Config
	store  *store.SQLiteStore
	engine *engine
}

func (e *operatorEnv) Close() error {
	return e.store.Close()
}

// openOperatorEnv loads configuration without requiring the service key,
// applies --db and opens the store. Log output goes to logOut.
func openOperatorEnv(logOut io.Writer) (*operatorEnv, error) {
	cfg, err := config.LoadOperator()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPathOverride != "" {
		cfg.Database.Path = dbPathOverride
	}
	configureCLILogger(logOut, cfg.Log)

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	eng, err := newEngine(cfg, db, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &operatorEnv{cfg: cfg, store: db, engine: eng}, nil
}

// configureCLILogger sends logs to stderr so stdout stays machine-readable.
func configureCLILogger(w io.Writer, cfg config.LogConfig) {
	if cfg.Level == "" || cfg.Level == "info" {
		cfg.Level = "warn"
	}
	slog.SetDefault(newLogger(w, cfg))
}

// requireUser validates --user the same way the HTTP header is validated.
func requireUser() error {
	if errs := validation.ValidateUserID(userFlag); len(errs) > 0 {
		return fmt.Errorf("--user: %s", errs[0].Message)
	}
	return nil
}

// requirePlan validates --plan as a ULID.
func requirePlan() error {
	if err := validation.ValidateULID("plan_id", planFlag); err != nil {
		return fmt.Errorf("--plan: %s", err.Message)
	}
	return nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
