package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	gosync "sync"
	"testing"

	"exercise-sync/core/audit"
	"exercise-sync/core/config"
	"exercise-sync/core/database"
	"exercise-sync/core/gateway"
	"exercise-sync/core/mapper"
	"exercise-sync/core/record"
	"exercise-sync/core/remote"
	"exercise-sync/feature/exercises"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeRemote is an in-memory fitness platform API.
type fakeRemote struct {
	mu      gosync.Mutex
	items   []map[string]any
	nextID  int
	creates int
	updates int
	// status, when set, answers every call with that status.
	status int
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	switch r.URL.Path {
	case remote.EndpointList:
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{"items": f.items, "hasMore": false}})
	case remote.EndpointCreate:
		f.nextID++
		f.creates++
		id := fmt.Sprintf("r%d", f.nextID)
		body["id"] = id
		f.items = append(f.items, body)
		writeJSON(w, map[string]any{"code": 0, "data": map[string]any{"id": id}})
	case remote.EndpointUpdate:
		for i, item := range f.items {
			if item["id"] == body["id"] {
				f.updates++
				f.items[i] = body
				writeJSON(w, map[string]any{"code": 0})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeRemote) add(item map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

func (f *fakeRemote) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeRemote) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeRemote) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	repo   *exercises.Repository
	remote *fakeRemote
	app    *fiber.App
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		SkipExisting:       true,
		CheckForDuplicates: true,
		BatchSize:          5,
		ConflictFields:     []string{record.FieldName, record.FieldDescription, record.FieldCategory},
		CacheTTLSeconds:    60,
		PageSize:           50,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)

	repo := exercises.NewRepository(db)
	require.NoError(t, repo.Migrate(ctx))

	store, err := audit.NewGormStore(db)
	require.NoError(t, err)

	fr := &fakeRemote{}
	srv := httptest.NewServer(fr)
	t.Cleanup(srv.Close)

	gw, err := gateway.New(gateway.Config{
		BaseURL:           srv.URL,
		GroupID:           "group",
		Token:             "token",
		RequestsPerSecond: 1000,
		MaxRetries:        1,
		RetryDelayMs:      1,
	})
	require.NoError(t, err)
	t.Cleanup(gw.Close)

	cfg := testSyncConfig()
	svc := NewService(Options{
		Config: cfg,
		Local:  repo,
		Remote: remote.NewClient(gw, cfg.PageSize, nil),
		Mapper: mapper.New(exercises.DefaultMappings()),
		Audit:  audit.New(store),
		Logger: zap.NewNop(),
	})

	app := fiber.New()
	require.NoError(t, NewFeature(svc).Load(app))

	return &fixture{db: db, svc: svc, repo: repo, remote: fr, app: app}
}

func (f *fixture) insert(t *testing.T, rec record.LocalRecord) record.LocalRecord {
	t.Helper()
	saved, err := f.repo.Insert(context.Background(), rec)
	require.NoError(t, err)
	return *saved
}
