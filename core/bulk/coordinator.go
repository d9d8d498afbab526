package bulk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"exercise-sync/core/clock"
	"exercise-sync/core/gateway"
	"exercise-sync/core/reconcile"
	"exercise-sync/core/record"

	"go.uber.org/zap"
)

// ErrMissingCollaborator is reported through an error event when a run is started
// without the writers it needs.
var ErrMissingCollaborator = errors.New("bulk run is missing a collaborator")

// Coordinator runs bulk operations sequentially.
type Coordinator struct {
	batchSize  int
	batchPause time.Duration
	clock      clock.Clock
	logger     *zap.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// run owns the event channel of one bulk run.
type run struct {
	events chan ProgressEvent
	result *Result
	total  int
}

func newRun() *run {
	return &run{
		events: make(chan ProgressEvent, 1),
		result: &Result{},
	}
}

func (r *run) emit(ev ProgressEvent) {
	r.events <- ev
}

func (r *run) progress(current int, id string) {
	r.emit(ProgressEvent{Phase: PhaseProgress, Current: current, Total: r.total, Payload: id})
}

func (r *run) complete() {
	r.emit(ProgressEvent{Phase: PhaseComplete, Current: r.result.Processed(), Total: r.total, Result: r.result})
	close(r.events)
}

func (r *run) fail(err error) {
	r.emit(ProgressEvent{Phase: PhaseError, Current: r.result.Processed(), Total: r.total, Message: err.Error(), Result: r.result})
	close(r.events)
}

// Apply writes create and update operations to local storage. Skip and conflict
// operations are counted as skipped and never written.
func (c *Coordinator) Apply(ctx context.Context, ops []reconcile.SyncOperation, local LocalWriter) <-chan ProgressEvent {
	r := newRun()

	go func() {
		if local == nil {
			r.emit(ProgressEvent{Phase: PhaseStart})
			r.fail(fmt.Errorf("%w: local writer", ErrMissingCollaborator))
			return
		}

		var pending []reconcile.SyncOperation
		for _, op := range ops {
			switch op.Kind {
			case reconcile.KindCreate, reconcile.KindUpdate:
				pending = append(pending, op)
			default:
				r.result.skip(skipDetail(op))
			}
		}
		r.total = len(pending)

		r.emit(ProgressEvent{Phase: PhaseStart, Total: r.total, Message: fmt.Sprintf("applying %d operations", r.total)})

		for i, op := range pending {
			if ctx.Err() != nil {
				r.result.Cancelled = true
				break
			}

			// The in-flight item always finishes
			itemCtx := context.WithoutCancel(ctx)
			saved, err := c.applyOne(itemCtx, op, local)
			detail := ItemDetail{ID: op.Remote.ExternalID, Name: op.Remote.Name, ExternalID: op.Remote.ExternalID}
			if err != nil {
				c.logger.Warn("Failed to apply operation",
					zap.String("kind", string(op.Kind)),
					zap.String("external_id", op.Remote.ExternalID),
					zap.Error(err),
				)
				detail.Error = err.Error()
				r.result.failure(detail)
			} else {
				r.result.success(detail)
				r.emit(ProgressEvent{Phase: PhaseExerciseSaved, Current: i + 1, Total: r.total, Payload: saved})
			}
			r.progress(i+1, op.Remote.ExternalID)
		}

		r.complete()
	}()

	return r.events
}

func (c *Coordinator) applyOne(ctx context.Context, op reconcile.SyncOperation, local LocalWriter) (*record.LocalRecord, error) {
	fields := op.Mapped.Fields.Clone()
	if len(op.Mapped.Extra) > 0 {
		fields[record.FieldExtra] = op.Mapped.Extra.Clone()
	}
	if op.Kind == reconcile.KindUpdate {
		if op.Local == nil {
			return nil, errors.New("update without a local record")
		}
		return local.UpdateByID(ctx, op.Local.ID, fields)
	}
	return local.UpsertByExternalID(ctx, op.Remote.ExternalID, fields)
}

func skipDetail(op reconcile.SyncOperation) ItemDetail {
	d := ItemDetail{ID: op.Remote.ExternalID, Name: op.Remote.Name, ExternalID: op.Remote.ExternalID, Reason: string(op.Kind)}
	switch {
	case op.Reason != "":
		d.Reason = op.Reason
	case len(op.ConflictFields) > 0:
		d.Reason = fmt.Sprintf("conflict: %v", op.ConflictFields)
	}
	return d
}

// Push writes local records to the remote side. Unlinked records are created and
// linked ones are updated in place unless opts.SkipExisting is set. Each pushed
// record is marked synced with its external id; a failed one is marked as error.
// Only unlinked records go through the duplicate check. A fatal remote
// error (bad credentials) stops the run with an error event.
func (c *Coordinator) Push(ctx context.Context, records []record.LocalRecord, local LocalWriter, remote RemoteWriter, m RemoteMapper, opts PushOptions) <-chan ProgressEvent {
	r := newRun()
	r.total = len(records)

	go func() {
		r.emit(ProgressEvent{Phase: PhaseStart, Total: r.total, Message: fmt.Sprintf("pushing %d exercises", r.total)})

		switch {
		case local == nil:
			r.fail(fmt.Errorf("%w: local writer", ErrMissingCollaborator))
			return
		case remote == nil:
			r.fail(fmt.Errorf("%w: remote writer", ErrMissingCollaborator))
			return
		case m == nil:
			r.fail(fmt.Errorf("%w: mapper", ErrMissingCollaborator))
			return
		}

		for i, rec := range records {
			if ctx.Err() != nil {
				r.result.Cancelled = true
				break
			}

			itemCtx := context.WithoutCancel(ctx)
			fatal := c.pushOne(itemCtx, r, i, rec, local, remote, m, opts)
			r.progress(i+1, strconv.FormatUint(uint64(rec.ID), 10))

			if fatal != nil {
				r.fail(fatal)
				return
			}

			if (i+1)%c.batchSize == 0 && i+1 < len(records) && c.batchPause > 0 {
				c.logger.Debug("Pausing between batches", zap.Int("processed", i+1))
				if err := c.clock.Sleep(ctx, c.batchPause); err != nil {
					r.result.Cancelled = true
					break
				}
			}
		}

		r.complete()
	}()

	return r.events
}

// pushOne handles one record and returns a non-nil error only when the run must stop.
func (c *Coordinator) pushOne(ctx context.Context, r *run, index int, rec record.LocalRecord, local LocalWriter, remote RemoteWriter, m RemoteMapper, opts PushOptions) error {
	detail := ItemDetail{ID: strconv.FormatUint(uint64(rec.ID), 10), Name: rec.Name}

	if opts.SkipExisting && rec.HasExternalID() {
		detail.ExternalID = *rec.ExternalID
		detail.Reason = "already linked to a remote exercise"
		r.result.skip(detail)
		return nil
	}

	if opts.CheckForDuplicates && !rec.HasExternalID() {
		dup, err := local.FindSyncedByName(ctx, rec.Name, rec.ID)
		if err != nil {
			detail.Error = fmt.Sprintf("duplicate check failed: %v", err)
			r.result.failure(detail)
			return nil
		}
		if dup != nil {
			if dup.ExternalID != nil {
				detail.ExternalID = *dup.ExternalID
			}
			detail.Reason = fmt.Sprintf("duplicate of synced exercise %d", dup.ID)
			r.result.duplicate(detail)
			return nil
		}
	}

	fields := rec.Fields.Clone()
	fields[record.FieldName] = rec.Name
	payload, tags := m.ToRemote(fields), m.BuildTags(fields)

	externalID, err := c.write(ctx, rec, remote, payload, tags, &detail)
	if err != nil {
		c.logger.Warn("Failed to push exercise", zap.Uint("id", rec.ID), zap.String("name", rec.Name), zap.Error(err))
		if markErr := local.MarkError(ctx, rec.ID, err.Error()); markErr != nil {
			c.logger.Warn("Failed to mark exercise as errored", zap.Uint("id", rec.ID), zap.Error(markErr))
		}
		detail.Error = err.Error()
		r.result.failure(detail)
		if gateway.IsFatal(err) {
			return err
		}
		return nil
	}

	detail.ExternalID = externalID
	if err := local.MarkSynced(ctx, rec.ID, externalID); err != nil {
		detail.Error = fmt.Sprintf("pushed remotely but failed to mark synced: %v", err)
		r.result.failure(detail)
		return nil
	}

	r.result.success(detail)

	saved := rec
	saved.ExternalID = record.StringPtr(externalID)
	saved.SyncStatus = record.StatusSynced
	r.emit(ProgressEvent{Phase: PhaseExerciseSaved, Current: index + 1, Total: r.total, Payload: &saved})
	return nil
}

// write updates a linked record in place and creates everything else. A linked
// record whose remote copy is gone is created again and relinked.
func (c *Coordinator) write(ctx context.Context, rec record.LocalRecord, remote RemoteWriter, payload record.Fields, tags []record.Tag, detail *ItemDetail) (string, error) {
	if rec.HasExternalID() {
		err := remote.Update(ctx, *rec.ExternalID, payload, tags)
		if err == nil {
			detail.Updated = true
			return *rec.ExternalID, nil
		}
		if !errors.Is(err, gateway.ErrNotFound) {
			return "", err
		}
		c.logger.Info("Linked remote exercise is gone, creating it again",
			zap.Uint("id", rec.ID), zap.String("external_id", *rec.ExternalID))
		detail.Reason = "remote copy missing, recreated"
	}
	return remote.Create(ctx, payload, tags)
}
