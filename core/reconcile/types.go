package reconcile

import (
	"exercise-sync/core/clock"
	"exercise-sync/core/record"
)

// Kind is the classification of one remote record.
type Kind string

const (
	// KindCreate inserts the remote record locally.
	KindCreate Kind = "create"
	// KindUpdate overwrites the linked local record with the mapped remote fields.
	KindUpdate Kind = "update"
	// KindSkip means both sides already agree.
	KindSkip Kind = "skip"
	// KindConflict needs human resolution and is never applied automatically.
	KindConflict Kind = "conflict"
)

// ReasonNameCollision is the conflict reason for a name match without an id match.
const ReasonNameCollision = "name collision, potential duplicate"

// DefaultConflictFields are compared when Options.ConflictFields is empty.
var DefaultConflictFields = []string{record.FieldName, record.FieldDescription, record.FieldCategory}

// SyncOperation is one planned change for a remote record.
type SyncOperation struct {
	// ID is stable for the same kind and external id across passes.
	ID string `json:"id"`

	Kind Kind `json:"kind"`

	Remote record.RemoteRecord `json:"remote"`

	// Local is the matched local record, if any.
	Local *record.LocalRecord `json:"local,omitempty"`

	// Mapped is the remote record in local shape, timestamps included.
	Mapped record.MappedRecord `json:"mapped"`

	// ConflictFields lists differing fields as "field: old → new".
	ConflictFields []string `json:"conflictFields,omitempty"`

	// Reason explains conflicts that are not field differences.
	Reason string `json:"reason,omitempty"`
}

// Summary provides aggregate counts for a plan.
type Summary struct {
	// Total is the number of remote records classified.
	Total     int `json:"total"`
	Creates   int `json:"creates"`
	Updates   int `json:"updates"`
	Conflicts int `json:"conflicts"`
	// Skipped counts skips even when they are left out of Operations.
	Skipped int `json:"skipped"`
}

// Options controls engine behavior.
type Options struct {
	// ConflictFields are the significant fields. Defaults to DefaultConflictFields.
	ConflictFields []string

	// IncludeSkips keeps skip operations in Plan.Operations.
	IncludeSkips bool

	// Clock stamps mapped records. Defaults to the system clock.
	Clock clock.Clock
}

// FieldDiff is one differing significant field.
type FieldDiff struct {
	Field string
	Old   string
	New   string
}

// String renders the diff as "field: old → new".
func (d FieldDiff) String() string {
	return d.Field + ": " + d.Old + " → " + d.New
}
