package bulk

import (
	"context"
	"time"

	"exercise-sync/core/clock"
	"exercise-sync/core/record"

	"go.uber.org/zap"
)

// Phase identifies a progress event.
type Phase string

const (
	PhaseStart         Phase = "start"
	PhaseProgress      Phase = "progress"
	PhaseExerciseSaved Phase = "exercise_saved"
	PhaseComplete      Phase = "complete"
	PhaseError         Phase = "error"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// ProgressEvent is one step of a bulk run.
type ProgressEvent struct {
	Phase   Phase  `json:"phase"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
	// Result is set on terminal events.
	Result *Result `json:"result,omitempty"`
}

// ItemDetail describes the outcome of one item.
type ItemDetail struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	// Updated is set when a push updated an existing remote record.
	Updated bool `json:"updated,omitempty"`
}

// Details lists items per outcome bucket.
type Details struct {
	Successful []ItemDetail `json:"successful"`
	Failed     []ItemDetail `json:"failed"`
	Skipped    []ItemDetail `json:"skipped"`
	Duplicates []ItemDetail `json:"duplicates"`
}

// Result is the final tally of a run.
type Result struct {
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Skipped    int     `json:"skipped"`
	Duplicates int     `json:"duplicates"`
	Details    Details `json:"details"`
	// Cancelled is set when the run stopped before processing every item.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Succeeded reports whether no item failed. Writes already applied are never
// rolled back either way.
func (r *Result) Succeeded() bool {
	return r.Failed == 0
}

// Processed returns the number of items with an outcome.
func (r *Result) Processed() int {
	return r.Successful + r.Failed + r.Skipped + r.Duplicates
}

func (r *Result) success(d ItemDetail) {
	r.Successful++
	r.Details.Successful = append(r.Details.Successful, d)
}

func (r *Result) failure(d ItemDetail) {
	r.Failed++
	r.Details.Failed = append(r.Details.Failed, d)
}

func (r *Result) skip(d ItemDetail) {
	r.Skipped++
	r.Details.Skipped = append(r.Details.Skipped, d)
}

func (r *Result) duplicate(d ItemDetail) {
	r.Duplicates++
	r.Details.Duplicates = append(r.Details.Duplicates, d)
}

// LocalWriter is the local storage capability the coordinator needs.
type LocalWriter interface {
	// UpsertByExternalID inserts or updates the record linked to externalID.
	UpsertByExternalID(ctx context.Context, externalID string, fields record.Fields) (*record.LocalRecord, error)
	// UpdateByID updates the record with the given primary key.
	UpdateByID(ctx context.Context, id uint, fields record.Fields) (*record.LocalRecord, error)
	// FindSyncedByName returns a synced record with the same case-insensitive name,
	// other than excludeID, or nil.
	FindSyncedByName(ctx context.Context, name string, excludeID uint) (*record.LocalRecord, error)
	// MarkSynced links the record to its remote id.
	MarkSynced(ctx context.Context, id uint, externalID string) error
	// MarkError flags the record's last sync attempt as failed.
	MarkError(ctx context.Context, id uint, message string) error
}

// RemoteWriter writes records on the remote side. Update returns an error
// wrapping gateway.ErrNotFound when the remote record no longer exists.
type RemoteWriter interface {
	Create(ctx context.Context, fields record.Fields, tags []record.Tag) (string, error)
	Update(ctx context.Context, externalID string, fields record.Fields, tags []record.Tag) error
}

// RemoteMapper converts local fields to the remote shape.
type RemoteMapper interface {
	ToRemote(local record.Fields) record.Fields
	BuildTags(local record.Fields) []record.Tag
}

// Options configures a Coordinator.
type Options struct {
	// BatchSize is the number of pushed items between pauses. Defaults to 5.
	BatchSize int
	// BatchPause is the pause after each batch.
	BatchPause time.Duration
	Clock      clock.Clock
	Logger     *zap.Logger
}

// PushOptions configures one push run.
type PushOptions struct {
	// SkipExisting skips records that already have an external id.
	SkipExisting bool
	// CheckForDuplicates skips unlinked records whose name matches a synced record.
	CheckForDuplicates bool
}

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 5
