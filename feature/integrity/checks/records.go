package checks

import (
	"context"
	"fmt"

	"exercise-sync/core/record"
	"exercise-sync/feature/exercises/models"

	"gorm.io/gorm"
)

// maxListed bounds the ids listed per finding.
const maxListed = 100

// RecordsReport summarizes the health of the local exercise rows.
type RecordsReport struct {
	// ByStatus counts exercises per sync status.
	ByStatus map[string]int64 `json:"by_status"`
	// Unlinked lists synced exercises without a remote id.
	Unlinked []uint `json:"unlinked"`
	// Errored lists exercises whose last sync attempt failed.
	Errored []ErroredRecord `json:"errored"`
	// DuplicateNames lists names shared by more than one synced exercise.
	DuplicateNames []string `json:"duplicate_names"`
}

// ErroredRecord is one exercise in error state.
type ErroredRecord struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	SyncError string `json:"sync_error"`
}

// Healthy reports whether nothing needs attention.
func (r *RecordsReport) Healthy() bool {
	return len(r.Unlinked) == 0 && len(r.Errored) == 0 && len(r.DuplicateNames) == 0
}

// CheckRecords inspects the exercises table.
func CheckRecords(ctx context.Context, db *gorm.DB) (*RecordsReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	q := db.WithContext(ctx).Model(&models.Exercise{})

	report := &RecordsReport{
		ByStatus:       make(map[string]int64),
		Unlinked:       []uint{},
		Errored:        []ErroredRecord{},
		DuplicateNames: []string{},
	}

	var counts []struct {
		SyncStatus string
		Total      int64
	}
	if err := q.Session(&gorm.Session{}).Select("sync_status, COUNT(*) AS total").Group("sync_status").Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count exercises: %w", err)
	}
	for _, c := range counts {
		report.ByStatus[c.SyncStatus] = c.Total
	}

	if err := q.Session(&gorm.Session{}).
		Where("sync_status = ? AND (external_id IS NULL OR external_id = '')", record.StatusSynced).
		Order("id").Limit(maxListed).
		Pluck("id", &report.Unlinked).Error; err != nil {
		return nil, fmt.Errorf("failed to find unlinked exercises: %w", err)
	}

	if err := q.Session(&gorm.Session{}).
		Select("id, name, sync_error").
		Where("sync_status = ?", record.StatusError).
		Order("id").Limit(maxListed).
		Scan(&report.Errored).Error; err != nil {
		return nil, fmt.Errorf("failed to find errored exercises: %w", err)
	}

	if err := q.Session(&gorm.Session{}).
		Select("LOWER(TRIM(name)) AS name_key").
		Where("sync_status = ?", record.StatusSynced).
		Group("name_key").
		Having("COUNT(*) > 1").
		Order("name_key").Limit(maxListed).
		Pluck("name_key", &report.DuplicateNames).Error; err != nil {
		return nil, fmt.Errorf("failed to find duplicate names: %w", err)
	}

	return report, nil
}

// FixUnlinked moves synced exercises without a remote id back to pending so the
// next push creates them.
func FixUnlinked(ctx context.Context, db *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Model(&models.Exercise{}).
		Where("id IN ? AND sync_status = ? AND (external_id IS NULL OR external_id = '')", ids, record.StatusSynced).
		Updates(map[string]any{"sync_status": string(record.StatusPending), "synced_at": nil})
	return res.RowsAffected, res.Error
}
