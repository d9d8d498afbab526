package sync

import (
	"context"
	"fmt"

	"exercise-sync/core/audit"
	"exercise-sync/core/bulk"
	"exercise-sync/core/logger"

	"go.uber.org/zap"
)

// Item outcomes recorded in the audit log.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeDuplicate = "duplicate"
)

// track forwards events and closes the audit run when the terminal event passes.
// The run is closed before the terminal event is forwarded.
func (s *Service) track(ctx context.Context, runID, runType string, events <-chan bulk.ProgressEvent, created func(bulk.ItemDetail) bool) <-chan bulk.ProgressEvent {
	out := make(chan bulk.ProgressEvent, 1)
	l := logger.WithRun(s.logger, runID, runType)

	go func() {
		defer close(out)
		for ev := range events {
			if ev.Phase.Terminal() {
				s.finish(context.WithoutCancel(ctx), l, runID, runType, ev, created)
			}
			out <- ev
		}
	}()

	return out
}

func (s *Service) finish(ctx context.Context, l *zap.Logger, runID, runType string, ev bulk.ProgressEvent, created func(bulk.ItemDetail) bool) {
	result := ev.Result
	if result == nil {
		result = &bulk.Result{}
	}

	s.logItems(ctx, runID, OutcomeSuccess, result.Details.Successful)
	s.logItems(ctx, runID, OutcomeFailed, result.Details.Failed)
	s.logItems(ctx, runID, OutcomeSkipped, result.Details.Skipped)
	s.logItems(ctx, runID, OutcomeDuplicate, result.Details.Duplicates)

	counts := audit.Counts{Processed: result.Processed(), Failed: result.Failed}
	for _, d := range result.Details.Successful {
		if created(d) {
			counts.Created++
		} else {
			counts.Updated++
		}
	}

	status, msg := audit.StatusCompleted, ""
	switch {
	case ev.Phase == bulk.PhaseError:
		status, msg = audit.StatusFailed, ev.Message
	case result.Cancelled:
		status, msg = audit.StatusFailed, fmt.Sprintf("cancelled after %d of %d items", result.Processed(), ev.Total)
	}

	if err := s.audit.CompleteRun(ctx, runID, status, counts, msg); err != nil {
		l.Error("Failed to complete sync run", zap.Error(err))
	}

	if runType == audit.RunTypePush && result.Successful > 0 {
		s.snapshot.Invalidate()
	}

	l.Info("Sync run finished",
		zap.String("status", string(status)),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("duplicates", result.Duplicates),
		zap.Bool("cancelled", result.Cancelled),
	)
}

func (s *Service) logItems(ctx context.Context, runID, outcome string, details []bulk.ItemDetail) {
	for _, d := range details {
		msg := d.Error
		if msg == "" {
			msg = d.Reason
		}
		s.audit.LogItem(ctx, runID, audit.ItemEntry{
			ItemID:  d.ID,
			Name:    d.Name,
			Outcome: outcome,
			Message: msg,
		})
	}
}
