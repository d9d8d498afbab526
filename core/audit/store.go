package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrRunNotFound is returned for unknown run ids.
	ErrRunNotFound = errors.New("sync run not found")
	// ErrRunClosed is returned when a run is completed a second time.
	ErrRunClosed = errors.New("sync run already completed")
)

// Store persists runs and items.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	// CloseRun moves a started run to a terminal status. It returns ErrRunClosed
	// when the run is no longer started.
	CloseRun(ctx context.Context, id string, status RunStatus, counts Counts, errMsg string, at time.Time) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	CreateItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, runID string) ([]Item, error)
	// FailAbandoned fails every started run not owned by instanceID.
	FailAbandoned(ctx context.Context, instanceID string, at time.Time) (int64, error)
}

// GormStore is a Store backed by gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the store and migrates its tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Run{}, &Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateRun(ctx context.Context, run *Run) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) CloseRun(ctx context.Context, id string, status RunStatus, counts Counts, errMsg string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&Run{}).
		Where("id = ? AND status = ?", id, StatusStarted).
		Updates(map[string]any{
			"status":          status,
			"completed_at":    at,
			"count_processed": counts.Processed,
			"count_created":   counts.Created,
			"count_updated":   counts.Updated,
			"count_deleted":   counts.Deleted,
			"count_failed":    counts.Failed,
			"error_message":   errMsg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing updated: either unknown or already closed
	if _, err := s.GetRun(ctx, id); err != nil {
		return err
	}
	return ErrRunClosed
}

func (s *GormStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *GormStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	q := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *GormStore) CreateItem(ctx context.Context, item *Item) error {
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *GormStore) ListItems(ctx context.Context, runID string) ([]Item, error) {
	var items []Item
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormStore) FailAbandoned(ctx context.Context, instanceID string, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&Run{}).
		Where("status = ? AND instance_id <> ?", StatusStarted, instanceID).
		Updates(map[string]any{
			"status":        StatusFailed,
			"completed_at":  at,
			"error_message": AbandonedMessage,
		})
	return res.RowsAffected, res.Error
}
