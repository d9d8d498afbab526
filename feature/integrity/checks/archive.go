package checks

import (
	"context"
	"fmt"

	"exercise-sync/core/storage"

	"go.uber.org/zap"
)

// ArchiveTarget locates archived runs.
type ArchiveTarget struct {
	Bucket string
	Region string
	Prefix string
}

// ArchiveReport is the state of the run archive bucket.
type ArchiveReport struct {
	Enabled bool   `json:"enabled"`
	Bucket  string `json:"bucket,omitempty"`
	Exists  bool   `json:"exists"`
	// Runs counts archived run objects under the prefix.
	Runs int `json:"runs"`
}

// CheckArchive reports whether the archive bucket exists and how many runs it
// holds. A nil client means archiving is disabled.
func CheckArchive(ctx context.Context, client storage.Client, target ArchiveTarget) (*ArchiveReport, error) {
	if client == nil {
		return &ArchiveReport{}, nil
	}

	exists, err := client.BucketExists(ctx, target.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report := &ArchiveReport{Enabled: true, Bucket: target.Bucket, Exists: exists}
	if !exists {
		return report, nil
	}

	report.Runs, err = storage.CountObjects(ctx, client, target.Bucket, target.Prefix)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// FixArchive creates the archive bucket.
func FixArchive(ctx context.Context, client storage.Client, target ArchiveTarget, logger *zap.Logger) error {
	if client == nil {
		return fmt.Errorf("archiving is disabled")
	}
	if err := storage.EnsureBucket(ctx, client, target.Bucket, target.Region); err != nil {
		logger.Error("Failed to create archive bucket", zap.String("bucket", target.Bucket), zap.Error(err))
		return err
	}
	logger.Info("Archive bucket ready", zap.String("bucket", target.Bucket))
	return nil
}
