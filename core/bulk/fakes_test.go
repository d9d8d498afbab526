package bulk

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"exercise-sync/core/record"

	"github.com/stretchr/testify/mock"
)

var errWriteFailed = errors.New("write failed")

// memoryStore is an in-memory LocalWriter.
type memoryStore struct {
	mu      sync.Mutex
	rows    map[uint]*record.LocalRecord
	nextID  uint
	failOn  map[string]bool
	onWrite func()
	ctxErrs []error
}

func newMemoryStore(rows ...record.LocalRecord) *memoryStore {
	s := &memoryStore{rows: make(map[uint]*record.LocalRecord), failOn: make(map[string]bool)}
	for i := range rows {
		r := rows[i]
		s.rows[r.ID] = &r
		if r.ID > s.nextID {
			s.nextID = r.ID
		}
	}
	return s
}

func (s *memoryStore) write(ctx context.Context, key string) error {
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.onWrite != nil {
		s.onWrite()
	}
	if s.failOn[key] {
		return errWriteFailed
	}
	return nil
}

func (s *memoryStore) UpsertByExternalID(ctx context.Context, externalID string, fields record.Fields) (*record.LocalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(ctx, externalID); err != nil {
		return nil, err
	}

	var row *record.LocalRecord
	for _, r := range s.rows {
		if r.HasExternalID() && *r.ExternalID == externalID {
			row = r
		}
	}
	if row == nil {
		s.nextID++
		row = &record.LocalRecord{ID: s.nextID, ExternalID: record.StringPtr(externalID), Fields: record.Fields{}}
		s.rows[row.ID] = row
	}
	for k, v := range fields {
		row.Fields[k] = v
	}
	row.Name, _ = fields[record.FieldName].(string)
	row.SyncStatus = record.StatusSynced
	out := *row
	return &out, nil
}

func (s *memoryStore) UpdateByID(ctx context.Context, id uint, fields record.Fields) (*record.LocalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, errors.New("not found")
	}
	if err := s.write(ctx, row.Name); err != nil {
		return nil, err
	}
	if row.Fields == nil {
		row.Fields = record.Fields{}
	}
	for k, v := range fields {
		row.Fields[k] = v
	}
	if name, ok := fields[record.FieldName].(string); ok {
		row.Name = name
	}
	row.SyncStatus = record.StatusSynced
	out := *row
	return &out, nil
}

func (s *memoryStore) FindSyncedByName(ctx context.Context, name string, excludeID uint) (*record.LocalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.sorted() {
		if r.ID != excludeID && r.SyncStatus == record.StatusSynced && r.NameKey() == record.NameKey(name) {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) MarkSynced(ctx context.Context, id uint, externalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return errors.New("not found")
	}
	now := time.Now()
	row.ExternalID = record.StringPtr(externalID)
	row.SyncStatus = record.StatusSynced
	row.SyncedAt = &now
	return nil
}

func (s *memoryStore) MarkError(ctx context.Context, id uint, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return errors.New("not found")
	}
	row.SyncStatus = record.StatusError
	return nil
}

func (s *memoryStore) get(id uint) record.LocalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.rows[id]
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *memoryStore) sorted() []*record.LocalRecord {
	out := make([]*record.LocalRecord, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// mockRemote is a testify mock for RemoteWriter.
type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Create(ctx context.Context, fields record.Fields, tags []record.Tag) (string, error) {
	args := m.Called(ctx, fields, tags)
	return args.String(0), args.Error(1)
}

func (m *mockRemote) Update(ctx context.Context, externalID string, fields record.Fields, tags []record.Tag) error {
	return m.Called(ctx, externalID, fields, tags).Error(0)
}

func drain(ch <-chan ProgressEvent) []ProgressEvent {
	var out []ProgressEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func phases(events []ProgressEvent) []Phase {
	out := make([]Phase, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Phase)
	}
	return out
}
