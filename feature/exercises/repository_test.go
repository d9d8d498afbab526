package exercises

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"exercise-sync/core/record"
	"exercise-sync/feature/exercises/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)

func setupRepository(t *testing.T) *Repository {
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	repo := NewRepository(db)
	repo.now = func() time.Time { return fixedNow }
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func insert(t *testing.T, repo *Repository, rec record.LocalRecord) record.LocalRecord {
	saved, err := repo.Insert(context.Background(), rec)
	require.NoError(t, err)
	return *saved
}

func TestRepository_UpsertByExternalID(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	created, err := repo.UpsertByExternalID(ctx, "r1", record.Fields{
		record.FieldName:         "Squat",
		record.FieldCategory:     "strength",
		record.FieldMuscleGroups: []string{"quads", "glutes"},
		record.FieldExtra:        record.Fields{"popularity": 9.5},
	})
	require.NoError(t, err)
	assert.Equal(t, "Squat", created.Name)
	assert.Equal(t, record.StatusSynced, created.SyncStatus)
	require.NotNil(t, created.SyncedAt)

	updated, err := repo.UpsertByExternalID(ctx, "r1", record.Fields{
		record.FieldName:        "Squat",
		record.FieldDescription: "Back squat",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID, "same external id must update the same row")
	assert.Equal(t, "Back squat", updated.Fields[record.FieldDescription])
	assert.Equal(t, "strength", updated.Fields[record.FieldCategory], "absent fields stay untouched")

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"quads", "glutes"}, all[0].Fields[record.FieldMuscleGroups])
	assert.Equal(t, 9.5, all[0].Fields[record.FieldExtra].(record.Fields)["popularity"])

	_, err = repo.UpsertByExternalID(ctx, "", record.Fields{})
	assert.Error(t, err)
}

func TestRepository_UpsertKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	createdAt := fixedNow.Add(-72 * time.Hour)

	first, err := repo.UpsertByExternalID(ctx, "r1", record.Fields{record.FieldName: "Row", record.FieldCreatedAt: createdAt})
	require.NoError(t, err)
	assert.True(t, first.CreatedAt.Equal(createdAt))

	second, err := repo.UpsertByExternalID(ctx, "r1", record.Fields{record.FieldName: "Row", record.FieldUpdatedAt: fixedNow})
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.Equal(createdAt))
}

func TestRepository_UpdateByID(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	saved := insert(t, repo, record.LocalRecord{Name: "Plank", SyncStatus: record.StatusPending})

	updated, err := repo.UpdateByID(ctx, saved.ID, record.Fields{record.FieldDifficulty: "beginner"})
	require.NoError(t, err)
	assert.Equal(t, "beginner", updated.Fields[record.FieldDifficulty])
	assert.Equal(t, "Plank", updated.Name)
	assert.Equal(t, record.StatusSynced, updated.SyncStatus)

	_, err = repo.UpdateByID(ctx, 999, record.Fields{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_InsertDefaultsToPending(t *testing.T) {
	repo := setupRepository(t)
	saved := insert(t, repo, record.LocalRecord{Name: "Burpee"})

	assert.NotZero(t, saved.ID)
	assert.Equal(t, record.StatusPending, saved.SyncStatus)
	assert.False(t, saved.HasExternalID())
}

func TestRepository_FindSyncedByName(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	synced := insert(t, repo, record.LocalRecord{Name: "Push-ups", ExternalID: record.StringPtr("r1"), SyncStatus: record.StatusSynced})
	pending := insert(t, repo, record.LocalRecord{Name: "Lunge", SyncStatus: record.StatusPending})

	tests := []struct {
		name      string
		query     string
		excludeID uint
		wantID    uint
	}{
		{"Case insensitive hit", "push-ups", 0, synced.ID},
		{"Whitespace ignored", "  PUSH-UPS ", 0, synced.ID},
		{"Self excluded", "Push-ups", synced.ID, 0},
		{"Pending never matches", "lunge", 0, 0},
		{"No match", "squat", pending.ID, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindSyncedByName(ctx, tt.query, tt.excludeID)
			require.NoError(t, err)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestRepository_MarkSyncedAndError(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)
	saved := insert(t, repo, record.LocalRecord{Name: "Dip"})

	require.NoError(t, repo.MarkError(ctx, saved.ID, "422 name too short"))
	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusError, got.SyncStatus)

	require.NoError(t, repo.MarkSynced(ctx, saved.ID, "r55"))
	got, err = repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusSynced, got.SyncStatus)
	require.True(t, got.HasExternalID())
	assert.Equal(t, "r55", *got.ExternalID)
	require.NotNil(t, got.SyncedAt)
	assert.True(t, got.SyncedAt.Equal(fixedNow))

	assert.ErrorIs(t, repo.MarkSynced(ctx, 999, "r56"), ErrNotFound)
	assert.ErrorIs(t, repo.MarkError(ctx, 999, "x"), ErrNotFound)
}

func TestRepository_Find(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	insert(t, repo, record.LocalRecord{Name: "Back Squat", Fields: record.Fields{record.FieldCategory: "strength"}, SyncStatus: record.StatusSynced})
	insert(t, repo, record.LocalRecord{Name: "Front Squat", Fields: record.Fields{record.FieldCategory: "strength"}})
	insert(t, repo, record.LocalRecord{Name: "Jumping Jacks", Fields: record.Fields{record.FieldCategory: "cardio"}})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"All", Filter{}, []string{"Back Squat", "Front Squat", "Jumping Jacks"}},
		{"Equals", Filter{Equals: map[string]any{"category": "strength"}}, []string{"Back Squat", "Front Squat"}},
		{"Equals status", Filter{Equals: map[string]any{"sync_status": "synced"}}, []string{"Back Squat"}},
		{"Contains", Filter{Contains: map[string]string{"name": "Squat"}}, []string{"Back Squat", "Front Squat"}},
		{"ILike", Filter{ILike: map[string]string{"name": "jump%"}}, []string{"Jumping Jacks"}},
		{"Order desc", Filter{Order: "-name"}, []string{"Jumping Jacks", "Front Squat", "Back Squat"}},
		{"Limit offset", Filter{Limit: 1, Offset: 1, Order: "name"}, []string{"Front Squat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Find(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}

	t.Run("Unknown column", func(t *testing.T) {
		_, err := repo.Find(ctx, Filter{Equals: map[string]any{"name; DROP TABLE exercises": 1}})
		assert.ErrorIs(t, err, ErrUnknownColumn)

		_, err = repo.Find(ctx, Filter{Order: "-password"})
		assert.ErrorIs(t, err, ErrUnknownColumn)
	})
}

func TestRepository_ListAllPages(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	rows := make([]models.Exercise, 0, ListPageSize+3)
	for i := 0; i < ListPageSize+3; i++ {
		rows = append(rows, models.Exercise{Name: fmt.Sprintf("Exercise %04d", i), SyncStatus: "pending"})
	}
	require.NoError(t, repo.db.CreateInBatches(rows, 100).Error)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, ListPageSize+3)
	assert.Equal(t, "Exercise 0000", all[0].Name)
	assert.Equal(t, fmt.Sprintf("Exercise %04d", ListPageSize+2), all[len(all)-1].Name)
}

func names(recs []record.LocalRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}
