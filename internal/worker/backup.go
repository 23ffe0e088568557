package worker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperengineering/pathwise/internal/backup"
)

// BackupWorker takes periodic database backups.
type BackupWorker struct {
	snapshotter backup.Snapshotter
	uploader    backup.Uploader
	dir         string
	interval    time.Duration
	now         func() time.Time
}

// NewBackupWorker creates a worker writing copies into dir every interval.
func NewBackupWorker(s backup.Snapshotter, u backup.Uploader, dir string, interval time.Duration) *BackupWorker {
	return &BackupWorker{
		snapshotter: s,
		uploader:    u,
		dir:         dir,
		interval:    interval,
		now:         time.Now,
	}
}

// Run starts the worker loop. Takes a backup immediately on start,
// then on each interval. Respects context cancellation for graceful shutdown.
func (w *BackupWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("backup worker stopping",
				"component", "worker",
				"worker", "backup",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce takes one backup and logs any errors. Uploaded copies are removed
// locally; local-only copies are kept in dir.
func (w *BackupWorker) runOnce(ctx context.Context) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		slog.Warn("backup directory unavailable",
			"component", "worker",
			"path", w.dir,
			"error", err,
		)
		return
	}

	dest := filepath.Join(w.dir, backup.FileName(w.now()))
	result, err := backup.Run(ctx, w.snapshotter, w.uploader, dest)
	if err != nil {
		// Shutdown mid-backup is not a failure
		if ctx.Err() != nil {
			return
		}
		slog.Warn("scheduled backup failed",
			"component", "worker",
			"action", "backup_failed",
			"error", err,
		)
		return
	}

	if result.ObjectKey != "" {
		if err := os.Remove(result.Path); err != nil {
			slog.Warn("failed to remove uploaded backup copy",
				"component", "worker",
				"path", result.Path,
				"error", err,
			)
		}
	}
}
