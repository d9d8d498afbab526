package audit

import (
	"context"
	"fmt"

	"exercise-sync/core/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *zap.Logger) Option {
	return func(a *Log) { a.logger = l }
}

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(a *Log) { a.clock = c }
}

// WithArchiver uploads every completed run.
func WithArchiver(ar Archiver) Option {
	return func(a *Log) { a.archiver = ar }
}

// WithInstanceID overrides the generated process instance id.
func WithInstanceID(id string) Option {
	return func(a *Log) { a.instanceID = id }
}

// Log records sync runs.
type Log struct {
	store      Store
	instanceID string
	clock      clock.Clock
	logger     *zap.Logger
	archiver   Archiver
}

// New creates an audit log over store.
func New(store Store, opts ...Option) *Log {
	a := &Log{
		store:      store,
		instanceID: uuid.NewString(),
		clock:      clock.Real(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// InstanceID returns the id stamped on runs started by this process.
func (a *Log) InstanceID() string {
	return a.instanceID
}

// StartRun opens a run and returns its id.
func (a *Log) StartRun(ctx context.Context, runType string, metadata map[string]any) (string, error) {
	run := &Run{
		ID:         uuid.NewString(),
		RunType:    runType,
		Status:     StatusStarted,
		StartedAt:  a.clock.Now(),
		Metadata:   metadata,
		InstanceID: a.instanceID,
	}
	if err := a.store.CreateRun(ctx, run); err != nil {
		return "", fmt.Errorf("failed to start %s run: %w", runType, err)
	}
	return run.ID, nil
}

// CompleteRun closes a run. It may be called once per run; later calls return
// ErrRunClosed.
func (a *Log) CompleteRun(ctx context.Context, runID string, status RunStatus, counts Counts, errMsg string) error {
	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	if err := a.store.CloseRun(ctx, runID, status, counts, errMsg, a.clock.Now()); err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}

	if a.archiver != nil {
		a.archive(ctx, runID)
	}
	return nil
}

func (a *Log) archive(ctx context.Context, runID string) {
	run, err := a.store.GetRun(ctx, runID)
	if err != nil {
		a.logger.Warn("Failed to load run for archive", zap.String("run_id", runID), zap.Error(err))
		return
	}
	items, err := a.store.ListItems(ctx, runID)
	if err != nil {
		a.logger.Warn("Failed to load run items for archive", zap.String("run_id", runID), zap.Error(err))
		return
	}
	if err := a.archiver.Archive(ctx, run, items); err != nil {
		a.logger.Warn("Failed to archive run", zap.String("run_id", runID), zap.Error(err))
	}
}

// LogItem records one item. Failures are logged and never returned.
func (a *Log) LogItem(ctx context.Context, runID string, entry ItemEntry) {
	item := &Item{
		RunID:     runID,
		ItemID:    entry.ItemID,
		Name:      entry.Name,
		Outcome:   entry.Outcome,
		Message:   entry.Message,
		CreatedAt: a.clock.Now(),
	}
	if err := a.store.CreateItem(ctx, item); err != nil {
		a.logger.Warn("Failed to log run item",
			zap.String("run_id", runID),
			zap.String("item_id", entry.ItemID),
			zap.Error(err),
		)
	}
}

// GetRun returns a run as readers should see it.
func (a *Log) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := a.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	a.resolve(run)
	return run, nil
}

// ListRuns returns the most recent runs as readers should see them.
func (a *Log) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	runs, err := a.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		a.resolve(&runs[i])
	}
	return runs, nil
}

// Items returns the logged items of a run.
func (a *Log) Items(ctx context.Context, runID string) ([]Item, error) {
	return a.store.ListItems(ctx, runID)
}

// RecoverAbandoned persists the failed status of runs left open by other processes.
func (a *Log) RecoverAbandoned(ctx context.Context) (int64, error) {
	n, err := a.store.FailAbandoned(ctx, a.instanceID, a.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to recover abandoned runs: %w", err)
	}
	if n > 0 {
		a.logger.Warn("Marked abandoned runs as failed", zap.Int64("count", n))
	}
	return n, nil
}

// resolve reports a run left started by another process as failed.
func (a *Log) resolve(run *Run) {
	if run.Status == StatusStarted && run.InstanceID != a.instanceID {
		run.Status = StatusFailed
		if run.ErrorMessage == "" {
			run.ErrorMessage = AbandonedMessage
		}
	}
}
