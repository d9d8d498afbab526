package reconcile

import (
	"context"
	"fmt"
	"time"

	"exercise-sync/core/clock"
	"exercise-sync/core/mapper"
	"exercise-sync/core/record"
	"exercise-sync/core/utils"

	"github.com/google/uuid"
)

// opNamespace seeds deterministic operation ids.
var opNamespace = uuid.MustParse("6f1c1b1e-2f55-4c84-9a51-2d1fbb0e7a10")

// Engine classifies remote records against local records.
type Engine struct {
	mapper         *mapper.Mapper
	conflictFields []string
	includeSkips   bool
	clock          clock.Clock
}

// NewEngine creates an engine over the given mapper.
func NewEngine(m *mapper.Mapper, opts Options) *Engine {
	fields := opts.ConflictFields
	if len(fields) == 0 {
		fields = DefaultConflictFields
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Engine{
		mapper:         m,
		conflictFields: append([]string(nil), fields...),
		includeSkips:   opts.IncludeSkips,
		clock:          clk,
	}
}

// Plan loads both snapshots and classifies them. Remote is loaded first.
func (e *Engine) Plan(ctx context.Context, remote RemoteSource, local LocalSource) (*Plan, error) {
	remoteRecords, err := remote.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load remote records: %w", err)
	}

	localRecords, err := local.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load local records: %w", err)
	}

	return e.Classify(remoteRecords, localRecords), nil
}

// Classify builds the plan for two snapshots. It performs no I/O, and the same
// inputs always produce the same operations.
func (e *Engine) Classify(remote []record.RemoteRecord, local []record.LocalRecord) *Plan {
	byExternalID := make(map[string]*record.LocalRecord, len(local))
	byName := make(map[string]*record.LocalRecord, len(local))
	for i := range local {
		l := &local[i]
		if l.HasExternalID() {
			byExternalID[*l.ExternalID] = l
		}
		if key := l.NameKey(); key != "" {
			if _, taken := byName[key]; !taken {
				byName[key] = l
			}
		}
	}

	now := e.clock.Now()
	plan := &Plan{Operations: make([]SyncOperation, 0, len(remote))}

	for _, r := range remote {
		op := e.classify(r, byExternalID, byName, now)
		plan.Summary.add(op.Kind)
		if op.Kind == KindSkip && !e.includeSkips {
			continue
		}
		plan.Operations = append(plan.Operations, op)
	}

	return plan
}

func (e *Engine) classify(r record.RemoteRecord, byExternalID, byName map[string]*record.LocalRecord, now time.Time) SyncOperation {
	mapped := e.mapper.ToLocal(r.Fields)
	if mapped.Fields == nil {
		mapped.Fields = record.Fields{}
	}
	if !mapped.Fields.Has(record.FieldName) && r.Name != "" {
		mapped.Fields[record.FieldName] = r.Name
	}

	op := SyncOperation{Remote: r}

	if existing, ok := byExternalID[r.ExternalID]; ok && r.ExternalID != "" {
		op.Local = existing
		current := localFields(existing)

		if diffs := DetectConflicts(current, mapped.Fields, e.conflictFields); len(diffs) > 0 {
			op.Kind = KindConflict
			for _, d := range diffs {
				op.ConflictFields = append(op.ConflictFields, d.String())
			}
		} else if existing.SyncStatus == record.StatusSynced && sameValues(mapped.Fields, current) {
			op.Kind = KindSkip
		} else {
			op.Kind = KindUpdate
		}
	} else if existing, ok := byName[record.NameKey(r.Name)]; ok && r.Name != "" {
		op.Local = existing
		op.Kind = KindConflict
		op.Reason = ReasonNameCollision
	} else {
		op.Kind = KindCreate
	}

	stamp(mapped.Fields, op.Local, now)
	op.Mapped = mapped
	op.ID = uuid.NewSHA1(opNamespace, []byte(string(op.Kind)+"|"+r.ExternalID+"|"+r.Name)).String()
	return op
}

// localFields returns the comparable view of a local record.
func localFields(l *record.LocalRecord) record.Fields {
	f := l.Fields.Clone()
	f[record.FieldName] = l.Name
	return f
}

// sameValues reports whether every mapped field already holds the same value locally.
func sameValues(mapped, current record.Fields) bool {
	for k, v := range mapped {
		if !utils.SameValue(v, current[k]) {
			return false
		}
	}
	return true
}

// stamp refreshes updated_at and sets created_at only when the local record has none.
func stamp(f record.Fields, existing *record.LocalRecord, now time.Time) {
	f[record.FieldUpdatedAt] = now
	if existing == nil || existing.CreatedAt.IsZero() {
		f[record.FieldCreatedAt] = now
	}
}

// DetectConflicts compares the significant fields of a and b. Lists compare
// element by element and nil equals the empty string, so swapping a and b
// reports the same fields with Old and New swapped.
func DetectConflicts(a, b record.Fields, fields []string) []FieldDiff {
	var diffs []FieldDiff
	for _, f := range fields {
		if utils.SameValue(a[f], b[f]) {
			continue
		}
		diffs = append(diffs, FieldDiff{Field: f, Old: utils.FormatValue(a[f]), New: utils.FormatValue(b[f])})
	}
	return diffs
}
