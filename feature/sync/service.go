package sync

import (
	"context"
	"fmt"

	"exercise-sync/core/audit"
	"exercise-sync/core/bulk"
	"exercise-sync/core/clock"
	"exercise-sync/core/config"
	"exercise-sync/core/logger"
	"exercise-sync/core/mapper"
	"exercise-sync/core/reconcile"
	"exercise-sync/core/record"

	"go.uber.org/zap"
)

// LocalStore is the local exercise storage the service needs.
type LocalStore interface {
	bulk.LocalWriter
	ListAll(ctx context.Context) ([]record.LocalRecord, error)
}

// RemoteStore is the remote exercise API the service needs.
type RemoteStore interface {
	reconcile.RemoteSource
	bulk.RemoteWriter
}

// Options holds the collaborators of a Service.
type Options struct {
	Config config.SyncConfig
	Local  LocalStore
	Remote RemoteStore
	Mapper *mapper.Mapper
	Audit  *audit.Log
	Logger *zap.Logger
	Clock  clock.Clock
}

// PushOptions overrides the configured push behavior for one run. Nil keeps the
// configured value.
type PushOptions struct {
	SkipExisting       *bool `json:"skipExisting,omitempty"`
	CheckForDuplicates *bool `json:"checkForDuplicates,omitempty"`
}

// RunDetail is one audit run with its items.
type RunDetail struct {
	Run   *audit.Run   `json:"run"`
	Items []audit.Item `json:"items"`
}

// Service orchestrates sync runs.
type Service struct {
	cfg         config.SyncConfig
	local       LocalStore
	remote      RemoteStore
	mapper      *mapper.Mapper
	engine      *reconcile.Engine
	snapshot    *reconcile.SnapshotCache
	coordinator *bulk.Coordinator
	audit       *audit.Log
	logger      *zap.Logger
}

// NewService creates a sync service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Service{
		cfg:    opts.Config,
		local:  opts.Local,
		remote: opts.Remote,
		mapper: opts.Mapper,
		engine: reconcile.NewEngine(opts.Mapper, reconcile.Options{
			ConflictFields: opts.Config.ConflictFields,
			Clock:          clk,
		}),
		snapshot: reconcile.NewSnapshotCache(opts.Remote, opts.Config.CacheTTL()).WithClock(clk),
		coordinator: bulk.NewCoordinator(bulk.Options{
			BatchSize:  opts.Config.BatchSize,
			BatchPause: opts.Config.BatchPause(),
			Clock:      clk,
			Logger:     logger.Named("bulk"),
		}),
		audit:  opts.Audit,
		logger: logger,
	}
}

// Logger returns the service logger.
func (s *Service) Logger() *zap.Logger {
	return s.logger
}

// Plan reconciles the remote snapshot against local storage.
func (s *Service) Plan(ctx context.Context) (*reconcile.Plan, error) {
	return s.engine.Plan(ctx, s.snapshot, reconcile.LocalSourceFunc(s.local.ListAll))
}

// Pull plans and applies the resulting create and update operations locally.
// The returned plan is the one being applied. The run is opened before planning
// so a setup failure is recorded as a failed run.
func (s *Service) Pull(ctx context.Context) (*reconcile.Plan, <-chan bulk.ProgressEvent, error) {
	runID, err := s.audit.StartRun(ctx, audit.RunTypePull, nil)
	if err != nil {
		return nil, nil, err
	}

	plan, err := s.Plan(ctx)
	if err != nil {
		return nil, nil, s.abort(ctx, runID, audit.RunTypePull, err)
	}

	kinds := make(map[string]reconcile.Kind, len(plan.Operations))
	for _, op := range plan.Operations {
		kinds[op.Remote.ExternalID] = op.Kind
	}

	s.logger.Info("Pull started",
		zap.String("run_id", runID),
		zap.Int("total", plan.Summary.Total),
		zap.Int("creates", plan.Summary.Creates),
		zap.Int("updates", plan.Summary.Updates),
		zap.Int("conflicts", plan.Summary.Conflicts),
		zap.Int("skipped", plan.Summary.Skipped),
	)

	events := s.coordinator.Apply(ctx, plan.Operations, s.local)
	return plan, s.track(ctx, runID, audit.RunTypePull, events, func(d bulk.ItemDetail) bool {
		return kinds[d.ExternalID] == reconcile.KindCreate
	}), nil
}

// abort closes a run that failed before its batch started and returns err.
func (s *Service) abort(ctx context.Context, runID, runType string, err error) error {
	l := logger.WithRun(s.logger, runID, runType)
	if cerr := s.audit.CompleteRun(context.WithoutCancel(ctx), runID, audit.StatusFailed, audit.Counts{}, err.Error()); cerr != nil {
		l.Error("Failed to complete sync run", zap.Error(cerr))
	}
	l.Warn("Sync run failed during setup", zap.Error(err))
	return err
}

// PushCandidates returns the local exercises a push would consider: every
// record that is not soft-deleted.
func (s *Service) PushCandidates(ctx context.Context) ([]record.LocalRecord, error) {
	all, err := s.local.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load local records: %w", err)
	}

	out := make([]record.LocalRecord, 0, len(all))
	for _, rec := range all {
		if rec.SyncStatus == record.StatusDeleted {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ResolvePush merges per-run overrides into the configured push behavior.
func (s *Service) ResolvePush(o PushOptions) bulk.PushOptions {
	out := bulk.PushOptions{
		SkipExisting:       s.cfg.SkipExisting,
		CheckForDuplicates: s.cfg.CheckForDuplicates,
	}
	if o.SkipExisting != nil {
		out.SkipExisting = *o.SkipExisting
	}
	if o.CheckForDuplicates != nil {
		out.CheckForDuplicates = *o.CheckForDuplicates
	}
	return out
}

// Push creates local exercises on the remote side, and updates the linked ones
// when SkipExisting is off.
func (s *Service) Push(ctx context.Context, o PushOptions) (<-chan bulk.ProgressEvent, error) {
	opts := s.ResolvePush(o)

	runID, err := s.audit.StartRun(ctx, audit.RunTypePush, map[string]any{
		"skip_existing":        opts.SkipExisting,
		"check_for_duplicates": opts.CheckForDuplicates,
	})
	if err != nil {
		return nil, err
	}

	records, err := s.PushCandidates(ctx)
	if err != nil {
		return nil, s.abort(ctx, runID, audit.RunTypePush, err)
	}

	s.logger.Info("Push started", zap.String("run_id", runID), zap.Int("total", len(records)))

	events := s.coordinator.Push(ctx, records, s.local, s.remote, s.mapper, opts)
	return s.track(ctx, runID, audit.RunTypePush, events, func(d bulk.ItemDetail) bool { return !d.Updated }), nil
}

// Runs lists the most recent audit runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]audit.Run, error) {
	return s.audit.ListRuns(ctx, limit)
}

// Run returns one audit run with its items.
func (s *Service) Run(ctx context.Context, id string) (*RunDetail, error) {
	run, err := s.audit.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.audit.Items(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RunDetail{Run: run, Items: items}, nil
}
