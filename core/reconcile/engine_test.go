package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"exercise-sync/core/clock"
	"exercise-sync/core/mapper"
	"exercise-sync/core/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testMapper() *mapper.Mapper {
	return mapper.New([]mapper.FieldMapping{
		{Local: record.FieldName, Remote: "name", ToLocal: mapper.AsString},
		{Local: record.FieldDescription, Remote: "description", ToLocal: mapper.AsString},
		{Local: record.FieldCategory, Remote: "category", ToLocal: mapper.Lower},
		{Local: record.FieldMuscleGroups, Remote: "muscles", ToLocal: mapper.AsList},
	})
}

func testEngine(opts Options) *Engine {
	opts.Clock = clock.NewFake(testNow)
	return NewEngine(testMapper(), opts)
}

func remoteSquat() record.RemoteRecord {
	return record.RemoteRecord{
		ExternalID: "r1",
		Name:       "Squat",
		Fields:     record.Fields{"name": "Squat"},
	}
}

func TestClassify_CreateThenSettle(t *testing.T) {
	engine := testEngine(Options{})
	remote := []record.RemoteRecord{remoteSquat()}

	first := engine.Classify(remote, nil)
	require.Len(t, first.Operations, 1)
	assert.Equal(t, KindCreate, first.Operations[0].Kind)
	assert.Equal(t, "Squat", first.Operations[0].Mapped.Fields[record.FieldName])
	assert.Equal(t, Summary{Total: 1, Creates: 1}, first.Summary)

	// The create landed and was marked synced
	local := []record.LocalRecord{{
		ID:         1,
		ExternalID: record.StringPtr("r1"),
		Name:       "Squat",
		Fields:     record.Fields{},
		SyncStatus: record.StatusSynced,
		CreatedAt:  testNow,
	}}

	second := engine.Classify(remote, local)
	assert.Empty(t, second.Operations)
	assert.Equal(t, Summary{Total: 1, Skipped: 1}, second.Summary)
	assert.True(t, second.Settled())
}

func TestClassify_Idempotent(t *testing.T) {
	engine := testEngine(Options{IncludeSkips: true})

	remote := []record.RemoteRecord{
		remoteSquat(),
		{ExternalID: "r2", Name: "Deadlift", Fields: record.Fields{"name": "Deadlift", "description": "hinge"}},
		{ExternalID: "r3", Name: "Push-ups", Fields: record.Fields{"name": "Push-ups"}},
		{ExternalID: "r4", Name: "Plank", Fields: record.Fields{"name": "Plank", "muscles": "core"}},
	}
	local := []record.LocalRecord{
		{ID: 1, ExternalID: record.StringPtr("r2"), Name: "Deadlift", Fields: record.Fields{"description": "pull"}, SyncStatus: record.StatusSynced},
		{ID: 2, Name: "push-ups", SyncStatus: record.StatusPending},
		{ID: 3, ExternalID: record.StringPtr("r4"), Name: "Plank", SyncStatus: record.StatusSynced},
	}

	first := engine.Classify(remote, local)
	second := engine.Classify(remote, local)

	assert.Equal(t, first, second)
	assert.Equal(t, []Kind{KindCreate, KindConflict, KindConflict, KindUpdate}, kinds(first))
}

func TestClassify_FieldConflict(t *testing.T) {
	engine := testEngine(Options{})
	remote := []record.RemoteRecord{{
		ExternalID: "r1",
		Name:       "Squat",
		Fields:     record.Fields{"name": "Squat", "description": "Back squat", "category": "Strength"},
	}}
	local := []record.LocalRecord{{
		ID:         7,
		ExternalID: record.StringPtr("r1"),
		Name:       "Squat",
		Fields:     record.Fields{record.FieldDescription: "Front squat", record.FieldCategory: "strength"},
		SyncStatus: record.StatusSynced,
	}}

	plan := engine.Classify(remote, local)

	require.Len(t, plan.Operations, 1)
	op := plan.Operations[0]
	assert.Equal(t, KindConflict, op.Kind)
	assert.Equal(t, []string{"description: Front squat → Back squat"}, op.ConflictFields)
	assert.Empty(t, op.Reason)
	require.NotNil(t, op.Local)
	assert.Equal(t, uint(7), op.Local.ID)
	assert.Len(t, plan.Conflicts(), 1)
	assert.Empty(t, plan.Actionable())
}

func TestClassify_Update(t *testing.T) {
	tests := []struct {
		name   string
		local  record.LocalRecord
		remote record.RemoteRecord
	}{
		{
			name: "Non significant field differs",
			local: record.LocalRecord{
				ID: 1, ExternalID: record.StringPtr("r1"), Name: "Squat",
				Fields:     record.Fields{record.FieldMuscleGroups: []string{"quads"}},
				SyncStatus: record.StatusSynced,
			},
			remote: record.RemoteRecord{ExternalID: "r1", Name: "Squat", Fields: record.Fields{"name": "Squat", "muscles": []any{"quads", "glutes"}}},
		},
		{
			name: "Equal but never synced",
			local: record.LocalRecord{
				ID: 1, ExternalID: record.StringPtr("r1"), Name: "Squat",
				SyncStatus: record.StatusPending,
			},
			remote: remoteSquat(),
		},
		{
			name: "Equal but last sync failed",
			local: record.LocalRecord{
				ID: 1, ExternalID: record.StringPtr("r1"), Name: "Squat",
				SyncStatus: record.StatusError,
			},
			remote: remoteSquat(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testEngine(Options{}).Classify([]record.RemoteRecord{tt.remote}, []record.LocalRecord{tt.local})
			require.Len(t, plan.Operations, 1)
			assert.Equal(t, KindUpdate, plan.Operations[0].Kind)
			assert.Equal(t, 1, plan.Summary.Updates)
			assert.Len(t, plan.Actionable(), 1)
		})
	}
}

func TestClassify_NameCollision(t *testing.T) {
	engine := testEngine(Options{})
	remote := []record.RemoteRecord{{ExternalID: "r9", Name: "Squat", Fields: record.Fields{"name": "Squat"}}}
	local := []record.LocalRecord{
		{ID: 3, ExternalID: record.StringPtr("other"), Name: "  SQUAT ", SyncStatus: record.StatusSynced},
	}

	plan := engine.Classify(remote, local)

	require.Len(t, plan.Operations, 1)
	op := plan.Operations[0]
	assert.Equal(t, KindConflict, op.Kind)
	assert.Equal(t, ReasonNameCollision, op.Reason)
	assert.Empty(t, op.ConflictFields)
	assert.Equal(t, uint(3), op.Local.ID)
}

func TestClassify_ExternalIDMatchWinsOverName(t *testing.T) {
	engine := testEngine(Options{})
	remote := []record.RemoteRecord{remoteSquat()}
	local := []record.LocalRecord{
		{ID: 1, Name: "Squat", SyncStatus: record.StatusPending},
		{ID: 2, ExternalID: record.StringPtr("r1"), Name: "Squat", SyncStatus: record.StatusSynced},
	}

	plan := engine.Classify(remote, local)
	assert.Empty(t, plan.Operations)
	assert.Equal(t, 1, plan.Summary.Skipped)
}

func TestClassify_Timestamps(t *testing.T) {
	engine := testEngine(Options{})
	created := testNow.Add(-48 * time.Hour)

	remote := []record.RemoteRecord{
		remoteSquat(),
		{ExternalID: "r2", Name: "Lunge", Fields: record.Fields{"name": "Lunge"}},
	}
	local := []record.LocalRecord{{
		ID: 1, ExternalID: record.StringPtr("r2"), Name: "Lunge",
		SyncStatus: record.StatusPending, CreatedAt: created,
	}}

	plan := engine.Classify(remote, local)
	require.Len(t, plan.Operations, 2)

	create := plan.Operations[0].Mapped.Fields
	assert.Equal(t, testNow, create[record.FieldCreatedAt])
	assert.Equal(t, testNow, create[record.FieldUpdatedAt])

	update := plan.Operations[1].Mapped.Fields
	assert.NotContains(t, update, record.FieldCreatedAt)
	assert.Equal(t, testNow, update[record.FieldUpdatedAt])
}

func TestClassify_IncludeSkips(t *testing.T) {
	engine := testEngine(Options{IncludeSkips: true})
	local := []record.LocalRecord{{ID: 1, ExternalID: record.StringPtr("r1"), Name: "Squat", SyncStatus: record.StatusSynced}}

	plan := engine.Classify([]record.RemoteRecord{remoteSquat()}, local)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, KindSkip, plan.Operations[0].Kind)
	assert.Empty(t, plan.Actionable())
}

func TestClassify_CustomConflictFields(t *testing.T) {
	engine := testEngine(Options{ConflictFields: []string{record.FieldName}})
	remote := []record.RemoteRecord{{ExternalID: "r1", Name: "Squat", Fields: record.Fields{"name": "Squat", "description": "new"}}}
	local := []record.LocalRecord{{ID: 1, ExternalID: record.StringPtr("r1"), Name: "Squat", Fields: record.Fields{"description": "old"}, SyncStatus: record.StatusSynced}}

	plan := engine.Classify(remote, local)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, KindUpdate, plan.Operations[0].Kind)
}

func TestDetectConflicts_Symmetric(t *testing.T) {
	tests := []struct {
		name  string
		a, b  record.Fields
		wants []string
	}{
		{"Equal", record.Fields{"name": "Squat"}, record.Fields{"name": "Squat"}, nil},
		{"Nil equals empty", record.Fields{"description": nil}, record.Fields{"description": ""}, nil},
		{"Missing equals empty", record.Fields{}, record.Fields{"category": ""}, nil},
		{"Number normalized", record.Fields{"name": 3}, record.Fields{"name": float64(3)}, nil},
		{"One differs", record.Fields{"name": "Squat", "category": "legs"}, record.Fields{"name": "Squat", "category": "strength"}, []string{"category"}},
		{"Missing vs value", record.Fields{"name": "Squat"}, record.Fields{"name": "Squat", "description": "deep"}, []string{"description"}},
		{"All differ", record.Fields{"name": "a", "description": "b", "category": "c"}, record.Fields{"name": "x", "description": "y", "category": "z"}, []string{"name", "description", "category"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := DetectConflicts(tt.a, tt.b, DefaultConflictFields)
			ba := DetectConflicts(tt.b, tt.a, DefaultConflictFields)

			assert.Equal(t, tt.wants, diffFields(ab))
			assert.Equal(t, diffFields(ab), diffFields(ba))
			for i := range ab {
				assert.Equal(t, ab[i].Old, ba[i].New)
				assert.Equal(t, ab[i].New, ba[i].Old)
			}
		})
	}
}

func TestDetectConflicts_Lists(t *testing.T) {
	fields := []string{record.FieldMuscleGroups}

	diffs := DetectConflicts(
		record.Fields{record.FieldMuscleGroups: []string{"a,b"}},
		record.Fields{record.FieldMuscleGroups: []any{"a", "b"}},
		fields,
	)
	require.Len(t, diffs, 1)
	assert.Equal(t, `["a,b"]`, diffs[0].Old)
	assert.Equal(t, `["a" "b"]`, diffs[0].New)

	assert.Empty(t, DetectConflicts(
		record.Fields{record.FieldMuscleGroups: []string{"a", "b"}},
		record.Fields{record.FieldMuscleGroups: []any{"a", "b"}},
		fields,
	))
}

func TestClassify_ListBoundaryChangeIsUpdate(t *testing.T) {
	engine := testEngine(Options{})
	remote := []record.RemoteRecord{{ExternalID: "r1", Name: "Squat", Fields: record.Fields{"name": "Squat", "muscles": []any{"quads", "glutes"}}}}
	local := []record.LocalRecord{{
		ID:         1,
		ExternalID: record.StringPtr("r1"),
		Name:       "Squat",
		Fields:     record.Fields{record.FieldName: "Squat", record.FieldMuscleGroups: []string{"quads,glutes"}},
		SyncStatus: record.StatusSynced,
	}}

	plan := engine.Classify(remote, local)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, KindUpdate, plan.Operations[0].Kind)
}

func TestFieldDiff_String(t *testing.T) {
	d := FieldDiff{Field: "name", Old: "Squat", New: "Back Squat"}
	assert.Equal(t, "name: Squat → Back Squat", d.String())
}

func TestEngine_Plan(t *testing.T) {
	ctx := context.Background()
	engine := testEngine(Options{})

	t.Run("Loads both sides", func(t *testing.T) {
		var order []string
		remote := RemoteSourceFunc(func(ctx context.Context) ([]record.RemoteRecord, error) {
			order = append(order, "remote")
			return []record.RemoteRecord{remoteSquat()}, nil
		})
		local := LocalSourceFunc(func(ctx context.Context) ([]record.LocalRecord, error) {
			order = append(order, "local")
			return nil, nil
		})

		plan, err := engine.Plan(ctx, remote, local)
		require.NoError(t, err)
		assert.Equal(t, []string{"remote", "local"}, order)
		assert.Equal(t, 1, plan.Summary.Creates)
	})

	t.Run("Remote error", func(t *testing.T) {
		boom := errors.New("unauthorized")
		remote := RemoteSourceFunc(func(ctx context.Context) ([]record.RemoteRecord, error) { return nil, boom })
		local := LocalSourceFunc(func(ctx context.Context) ([]record.LocalRecord, error) {
			t.Fatal("local must not load after a remote failure")
			return nil, nil
		})

		_, err := engine.Plan(ctx, remote, local)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "remote")
	})

	t.Run("Local error", func(t *testing.T) {
		boom := errors.New("db down")
		remote := RemoteSourceFunc(func(ctx context.Context) ([]record.RemoteRecord, error) { return nil, nil })
		local := LocalSourceFunc(func(ctx context.Context) ([]record.LocalRecord, error) { return nil, boom })

		_, err := engine.Plan(ctx, remote, local)
		assert.ErrorIs(t, err, boom)
		assert.ErrorContains(t, err, "local")
	})
}

func kinds(p *Plan) []Kind {
	out := make([]Kind, 0, len(p.Operations))
	for _, op := range p.Operations {
		out = append(out, op.Kind)
	}
	return out
}

func diffFields(diffs []FieldDiff) []string {
	var out []string
	for _, d := range diffs {
		out = append(out, d.Field)
	}
	return out
}
