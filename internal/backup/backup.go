package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Snapshotter writes a consistent copy of the database to destPath.
type Snapshotter interface {
	Backup(ctx context.Context, destPath string) error
}

// Result describes a completed backup.
type Result struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	ObjectKey string `json:"object_key,omitempty"`
	Duration  string `json:"duration"`
}

// Run copies the database to destPath and uploads the copy. An unconfigured
// uploader leaves the copy local and is not an error.
func Run(ctx context.Context, s Snapshotter, u Uploader, destPath string) (*Result, error) {
	start := time.Now()

	if err := s.Backup(ctx, destPath); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	info, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	result := &Result{Path: destPath, SizeBytes: info.Size()}

	key, err := u.Upload(ctx, destPath)
	switch {
	case errors.Is(err, ErrNotConfigured):
		slog.Info("backup storage not configured, keeping local copy",
			"component", "backup",
			"path", destPath,
		)
	case err != nil:
		return nil, err
	default:
		result.ObjectKey = key
	}

	result.Duration = time.Since(start).String()
	slog.Info("backup complete",
		"component", "backup",
		"path", destPath,
		"size_bytes", result.SizeBytes,
		"object_key", result.ObjectKey,
	)
	return result, nil
}
