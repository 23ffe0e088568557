package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/pathwise/internal/backup"
)

var backupOut string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a consistent copy of the database",
	Long: "Copy the database with VACUUM INTO and upload the copy when backup " +
		"storage is configured. Without a bucket the copy stays local.",
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupOut, "out", "",
		"Destination file (default: backup.dir/pathwise-<timestamp>.db)")
	backupCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func runBackup(cmd *cobra.Command, args []string) error {
	env, err := openOperatorEnv(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.Close()

	dest := backupOut
	if dest == "" {
		dest = filepath.Join(env.cfg.Backup.Dir, backup.FileName(time.Now()))
	}
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
	}

	uploader, err := backup.NewUploader(env.cfg.Backup)
	if err != nil {
		return err
	}

	result, err := backup.Run(cmd.Context(), env.store, uploader, dest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, result)
	}
	fmt.Fprintf(out, "Backup written to %s (%s)\n", result.Path, formatSize(result.SizeBytes))
	if result.ObjectKey != "" {
		fmt.Fprintf(out, "Uploaded to %s/%s\n", env.cfg.Backup.Bucket, result.ObjectKey)
	}
	return nil
}
