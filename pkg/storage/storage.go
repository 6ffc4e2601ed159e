package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/storage/local"
	"github.com/ymu4/document-processor/pkg/storage/minio"
	"github.com/ymu4/document-processor/pkg/storage/s3"
)

// StorageType selects a staging backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage stages uploaded files between receipt and parsing.
type Storage interface {
	// Store writes the reader under key and returns the key to read it back with.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes objects last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage creates the backend named by cfg.Storage.Type.
func NewStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (Storage, error) {
	switch StorageType(cfg.Storage.Type) {
	case StorageTypeLocal, "":
		return local.New(cfg.Storage.TempDir, log)
	case StorageTypeS3:
		return s3.New(ctx, &cfg.S3, log)
	case StorageTypeMinio:
		return minio.New(ctx, &cfg.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// RunJanitor removes staged objects older than retention every interval until ctx is done.
func RunJanitor(ctx context.Context, s Storage, retention, interval time.Duration, log logger.Logger) {
	if interval <= 0 || retention <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			threshold := now.Add(-retention)
			if err := s.CleanupBefore(ctx, threshold); err != nil {
				log.Warn("Staging cleanup failed", logger.Time("threshold", threshold), logger.Error(err))
				continue
			}
			log.Debug("Staging cleanup completed", logger.Time("threshold", threshold))
		}
	}
}
