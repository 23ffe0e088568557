// Package backup takes consistent copies of the pathwise database and ships
// them to S3-compatible storage. When no bucket is configured the
// NoopUploader is used and copies stay local.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/pathwise/internal/config"
)

// ErrNotConfigured is returned when backup storage is not configured.
var ErrNotConfigured = errors.New("backup storage not configured")

// Uploader ships a local backup file to remote storage.
type Uploader interface {
	// Upload stores the file at filePath and returns the object key it was
	// written under.
	Upload(ctx context.Context, filePath string) (string, error)
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
}

// minioClientWrapper adapts *minio.Client to s3Client.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: "application/vnd.sqlite3",
	})
	return err
}

// S3Uploader uploads backups to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
	prefix string
	now    func() time.Time
}

// Upload writes filePath under a timestamped key.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) (string, error) {
	key := objectKey(u.prefix, u.now())
	if err := u.client.FPutObject(ctx, u.bucket, key, filePath); err != nil {
		return "", fmt.Errorf("upload backup to S3: %w", err)
	}
	return key, nil
}

// NoopUploader is used when backup storage is not configured.
type NoopUploader struct{}

// Upload returns ErrNotConfigured without touching the file.
func (u *NoopUploader) Upload(ctx context.Context, filePath string) (string, error) {
	return "", ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

// stripScheme removes an http:// or https:// prefix from endpoint, which
// minio rejects, and lets the scheme decide ssl.
func stripScheme(endpoint string, ssl *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*ssl = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*ssl = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// FileName returns the base name of a backup taken at t.
func FileName(t time.Time) string {
	return "pathwise-" + t.UTC().Format("20060102T150405Z") + ".db"
}

// objectKey returns the object key for a backup taken at t.
// Convention: {prefix}/pathwise-{UTC timestamp}.db
func objectKey(prefix string, t time.Time) string {
	name := FileName(t)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
