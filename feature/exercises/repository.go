package exercises

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"exercise-sync/core/record"
	"exercise-sync/feature/exercises/models"

	"gorm.io/gorm"
)

// ListPageSize is the page size ListAll reads with.
const ListPageSize = 500

var (
	// ErrNotFound is returned for unknown primary keys.
	ErrNotFound = errors.New("exercise not found")
	// ErrUnknownColumn is returned for filters on columns that do not exist.
	ErrUnknownColumn = errors.New("unknown exercise column")
)

// Filter selects exercises. Map keys are column names.
type Filter struct {
	// Equals matches columns exactly.
	Equals map[string]any
	// Contains matches columns containing the value. % and _ keep their LIKE meaning.
	Contains map[string]string
	// ILike matches columns against a case-insensitive LIKE pattern.
	ILike map[string]string
	Limit  int
	Offset int
	// Order is a column name, prefixed with "-" for descending. Defaults to id.
	Order string
}

// Repository is the gorm-backed exercise store.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Migrate creates or updates the exercises table.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.Exercise{})
}

// Find returns the exercises matching f.
func (r *Repository) Find(ctx context.Context, f Filter) ([]record.LocalRecord, error) {
	q, err := applyFilter(r.db.WithContext(ctx).Model(&models.Exercise{}), f)
	if err != nil {
		return nil, err
	}

	var rows []models.Exercise
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	return toRecords(rows), nil
}

// ListAll returns every exercise, reading in pages of ListPageSize.
func (r *Repository) ListAll(ctx context.Context) ([]record.LocalRecord, error) {
	var out []record.LocalRecord
	for offset := 0; ; offset += ListPageSize {
		page, err := r.Find(ctx, Filter{Limit: ListPageSize, Offset: offset, Order: "id"})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < ListPageSize {
			return out, nil
		}
	}
}

// Get returns one exercise by primary key.
func (r *Repository) Get(ctx context.Context, id uint) (*record.LocalRecord, error) {
	e, err := r.load(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	rec := e.ToRecord()
	return &rec, nil
}

// UpsertByExternalID inserts or updates the exercise linked to externalID and marks it synced.
func (r *Repository) UpsertByExternalID(ctx context.Context, externalID string, fields record.Fields) (*record.LocalRecord, error) {
	if externalID == "" {
		return nil, errors.New("upsert requires an external id")
	}

	var saved models.Exercise
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("external_id = ?", externalID).First(&saved).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			saved = models.Exercise{ExternalID: record.StringPtr(externalID)}
		}

		saved.Apply(fields)
		r.markSynced(&saved)
		return tx.Save(&saved).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert exercise %s: %w", externalID, err)
	}

	rec := saved.ToRecord()
	return &rec, nil
}

// UpdateByID applies fields to the exercise with the given primary key and marks it synced.
func (r *Repository) UpdateByID(ctx context.Context, id uint, fields record.Fields) (*record.LocalRecord, error) {
	var saved *models.Exercise
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := r.load(tx, id)
		if err != nil {
			return err
		}
		e.Apply(fields)
		r.markSynced(e)
		saved = e
		return tx.Save(e).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update exercise %d: %w", id, err)
	}

	rec := saved.ToRecord()
	return &rec, nil
}

// Insert stores a new exercise.
func (r *Repository) Insert(ctx context.Context, rec record.LocalRecord) (*record.LocalRecord, error) {
	e := models.FromRecord(rec)
	e.ID = 0
	if err := r.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, fmt.Errorf("failed to insert exercise %q: %w", rec.Name, err)
	}
	out := e.ToRecord()
	return &out, nil
}

// FindSyncedByName returns a synced exercise with the same case-insensitive name,
// other than excludeID, or nil.
func (r *Repository) FindSyncedByName(ctx context.Context, name string, excludeID uint) (*record.LocalRecord, error) {
	var e models.Exercise
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = ? AND sync_status = ? AND id <> ?", record.NameKey(name), record.StatusSynced, excludeID).
		Order("id").
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := e.ToRecord()
	return &rec, nil
}

// MarkSynced links the exercise to its remote id.
func (r *Repository) MarkSynced(ctx context.Context, id uint, externalID string) error {
	return r.updateColumns(ctx, id, map[string]any{
		"external_id": externalID,
		"sync_status": string(record.StatusSynced),
		"synced_at":   r.now(),
		"sync_error":  "",
	})
}

// MarkError records a failed sync attempt.
func (r *Repository) MarkError(ctx context.Context, id uint, message string) error {
	return r.updateColumns(ctx, id, map[string]any{
		"sync_status": string(record.StatusError),
		"sync_error":  message,
	})
}

func (r *Repository) updateColumns(ctx context.Context, id uint, values map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Exercise{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) load(db *gorm.DB, id uint) (*models.Exercise, error) {
	var e models.Exercise
	err := db.First(&e, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) markSynced(e *models.Exercise) {
	now := r.now()
	e.SyncStatus = string(record.StatusSynced)
	e.SyncedAt = &now
	e.SyncError = ""
}

func applyFilter(q *gorm.DB, f Filter) (*gorm.DB, error) {
	for _, col := range sortedKeys(f.Equals) {
		if err := checkColumn(col); err != nil {
			return nil, err
		}
		q = q.Where(col+" = ?", f.Equals[col])
	}
	for _, col := range sortedKeys(f.Contains) {
		if err := checkColumn(col); err != nil {
			return nil, err
		}
		q = q.Where(col+" LIKE ?", "%"+f.Contains[col]+"%")
	}
	for _, col := range sortedKeys(f.ILike) {
		if err := checkColumn(col); err != nil {
			return nil, err
		}
		q = q.Where("LOWER("+col+") LIKE ?", strings.ToLower(f.ILike[col]))
	}

	order := f.Order
	if order == "" {
		order = "id"
	}
	direction := " ASC"
	if strings.HasPrefix(order, "-") {
		order = strings.TrimPrefix(order, "-")
		direction = " DESC"
	}
	if err := checkColumn(order); err != nil {
		return nil, err
	}
	q = q.Order(order + direction)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	return q, nil
}

func checkColumn(col string) error {
	if _, ok := models.Columns[col]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toRecords(rows []models.Exercise) []record.LocalRecord {
	out := make([]record.LocalRecord, 0, len(rows))
	for _, e := range rows {
		out = append(out, e.ToRecord())
	}
	return out
}
