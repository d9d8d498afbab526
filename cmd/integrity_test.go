package cmd

import (
	"context"
	"testing"

	"exercise-sync/core/audit"
	"exercise-sync/core/database"
	"exercise-sync/core/record"
	"exercise-sync/feature/exercises"
	"exercise-sync/feature/integrity"
	"exercise-sync/feature/integrity/checks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func integrityFixture(t *testing.T) (*integrity.Service, *exercises.Repository, *observer.ObservedLogs, *zap.Logger) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	repo := exercises.NewRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	_, err = audit.NewGormStore(db)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	logg := zap.New(core)
	return integrity.NewService(db, nil, checks.ArchiveTarget{Bucket: "archive"}, logg), repo, logs, logg
}

func TestRunIntegrity_Healthy(t *testing.T) {
	svc, repo, logs, logg := integrityFixture(t)
	_, err := repo.Insert(context.Background(), record.LocalRecord{Name: "Squat", ExternalID: record.StringPtr("r1"), SyncStatus: record.StatusSynced})
	require.NoError(t, err)

	require.NoError(t, runIntegrity(context.Background(), svc, logg, "", false))
	assert.Equal(t, 1, logs.FilterMessage("Schema matches the models.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Exercise records are consistent.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Run archiving is disabled.").Len())
}

func TestRunIntegrity_Records(t *testing.T) {
	ctx := context.Background()
	svc, repo, logs, logg := integrityFixture(t)
	unlinked, err := repo.Insert(ctx, record.LocalRecord{Name: "Lunge", SyncStatus: record.StatusSynced})
	require.NoError(t, err)

	err = runIntegrity(ctx, svc, logg, checkRecords, false)
	assert.ErrorContains(t, err, "integrity issues found")
	assert.Equal(t, 1, logs.FilterMessage("Synced exercises without a remote id").Len())
	assert.Zero(t, logs.FilterMessage("Checking database schema...").Len(), "only the selected check runs")

	require.NoError(t, runIntegrity(ctx, svc, logg, checkRecords, true))
	got, err := repo.Get(ctx, unlinked.ID)
	require.NoError(t, err)
	assert.Equal(t, record.StatusPending, got.SyncStatus)

	require.NoError(t, runIntegrity(ctx, svc, logg, checkRecords, false))
}

func TestRunIntegrity_ArchiveDisabled(t *testing.T) {
	svc, _, _, logg := integrityFixture(t)

	// Disabled archiving is not an issue, so there is nothing to fix
	assert.NoError(t, runIntegrity(context.Background(), svc, logg, checkArchive, true))
}

func TestIntegrityCmd_Args(t *testing.T) {
	assert.NoError(t, integrityCmd.Args(integrityCmd, nil))
	assert.NoError(t, integrityCmd.Args(integrityCmd, []string{checkArchive}))
	assert.Error(t, integrityCmd.Args(integrityCmd, []string{"bundle"}))
	assert.Error(t, integrityCmd.Args(integrityCmd, []string{checkSchema, checkRecords}))
}
