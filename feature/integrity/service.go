package integrity

import (
	"context"

	"exercise-sync/core/audit"
	"exercise-sync/core/storage"
	"exercise-sync/feature/exercises/models"
	"exercise-sync/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db      *gorm.DB
	client  storage.Client
	archive checks.ArchiveTarget
	logger  *zap.Logger
}

// NewService creates a new integrity service. client may be nil when run
// archiving is disabled.
func NewService(db *gorm.DB, client storage.Client, archive checks.ArchiveTarget, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		client:  client,
		archive: archive,
		logger:  logger,
	}
}

// CheckSchema compares the exercise and audit tables with their models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, &models.Exercise{}, &audit.Run{}, &audit.Item{})
}

// CheckRecords inspects the local exercise rows.
func (s *Service) CheckRecords(ctx context.Context) (*checks.RecordsReport, error) {
	return checks.CheckRecords(ctx, s.db)
}

// FixUnlinked resets synced exercises without a remote id to pending.
func (s *Service) FixUnlinked(ctx context.Context, ids []uint) (int64, error) {
	return checks.FixUnlinked(ctx, s.db, ids)
}

// CheckArchive reports the state of the run archive bucket.
func (s *Service) CheckArchive(ctx context.Context) (*checks.ArchiveReport, error) {
	return checks.CheckArchive(ctx, s.client, s.archive)
}

// FixArchive creates the run archive bucket.
func (s *Service) FixArchive(ctx context.Context) error {
	return checks.FixArchive(ctx, s.client, s.archive, s.logger)
}
