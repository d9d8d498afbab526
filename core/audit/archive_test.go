package audit

import (
	"context"
	"errors"
	"io"
	"testing"

	"exercise-sync/core/storage/mocks"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStorageArchiver_Archive(t *testing.T) {
	client := new(mocks.Client)
	archiver := NewStorageArchiver(client, "sync-bucket", "")

	var uploaded []byte
	client.On("PutObject", mock.Anything, "sync-bucket", "runs/run-1.json", mock.Anything, mock.AnythingOfType("int64"),
		minio.PutObjectOptions{ContentType: "application/json"}).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{}, nil)

	run := &Run{ID: "run-1", RunType: RunTypePush, Status: StatusCompleted, Counts: Counts{Processed: 1, Created: 1}}
	err := archiver.Archive(context.Background(), run, []Item{{RunID: "run-1", ItemID: "1", Outcome: "successful"}})
	require.NoError(t, err)

	var decoded struct {
		Run   Run    `json:"run"`
		Items []Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(uploaded, &decoded))
	assert.Equal(t, "run-1", decoded.Run.ID)
	assert.Equal(t, 1, decoded.Run.Counts.Created)
	assert.Len(t, decoded.Items, 1)
	client.AssertExpectations(t)
}

func TestLog_ArchivesCompletedRuns(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, "sync-bucket", mock.AnythingOfType("string"), mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil).Once()

	log := New(setupSQLite(t), WithArchiver(NewStorageArchiver(client, "sync-bucket", "runs")))
	runID, err := log.StartRun(ctx, RunTypePull, nil)
	require.NoError(t, err)
	require.NoError(t, log.CompleteRun(ctx, runID, StatusCompleted, Counts{}, ""))

	client.AssertCalled(t, "PutObject", mock.Anything, "sync-bucket", "runs/"+runID+".json", mock.Anything, mock.Anything, mock.Anything)
}

func TestLog_ArchiveFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("bucket missing"))

	core, logs := observer.New(zapcore.WarnLevel)
	log := New(setupSQLite(t), WithLogger(zap.New(core)), WithArchiver(NewStorageArchiver(client, "sync-bucket", "runs")))

	runID, err := log.StartRun(ctx, RunTypePull, nil)
	require.NoError(t, err)
	assert.NoError(t, log.CompleteRun(ctx, runID, StatusCompleted, Counts{}, ""))
	assert.Equal(t, 1, logs.FilterMessage("Failed to archive run").Len())
}
