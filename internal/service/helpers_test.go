package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/events"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/phrazzld/hierconf/internal/service"
	"github.com/phrazzld/hierconf/internal/testdb"
	"github.com/stretchr/testify/require"
)

var (
	p4m      = domain.ProgramScope("P4M")
	portland = domain.ClinicScope("P4M", "CLN-PDX")
	west     = domain.LocationScope("P4M", "CLN-PDX", "LOC-W")
	east     = domain.LocationScope("P4M", "CLN-PDX", "LOC-E")
	salem    = domain.ClinicScope("P4M", "CLN-SLM")
)

func strPtr(s string) *string { return &s }

type eventLog struct {
	mu     sync.Mutex
	events []*events.ConfigChangedEvent
}

func (l *eventLog) HandleEvent(_ context.Context, e *events.ConfigChangedEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) snapshot() []*events.ConfigChangedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*events.ConfigChangedEvent(nil), l.events...)
}

type fixture struct {
	ctx       context.Context
	handle    *testdb.Handle
	stores    service.Stores
	registry  service.Registry
	values    service.Values
	resolver  service.Resolver
	recorder  service.Recorder
	hierarchy service.HierarchyService
	providers service.Providers
	events    *eventLog
}

// backends runs fn against SQLite always and PostgreSQL when configured.
func backends(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		fn(t, newFixture(t, testdb.NewSQLite(t), 100))
	})
	t.Run("postgres", func(t *testing.T) {
		t.Parallel()
		fn(t, newFixture(t, testdb.NewPostgres(t), 100))
	})
}

func newFixture(t *testing.T, h *testdb.Handle, pageSize int) *fixture {
	t.Helper()

	ctx, log, _ := logger.NewTestLogger(t)
	s := h.Stores()
	stores := service.Stores{
		Definitions: s.Definitions,
		Values:      s.Values,
		History:     s.History,
		Hierarchy:   s.Hierarchy,
		Providers:   s.Providers,
	}

	emitter := events.NewInMemoryEventEmitter(log)
	evLog := &eventLog{}
	emitter.RegisterHandler(evLog)

	registry, err := service.NewRegistry(h.DB, stores.Definitions, log)
	require.NoError(t, err)
	recorder, err := service.NewRecorder(stores.History, pageSize, log)
	require.NoError(t, err)
	values, err := service.NewValues(h.DB, stores, recorder, emitter, log)
	require.NoError(t, err)
	resolver, err := service.NewResolver(stores, nil, log)
	require.NoError(t, err)
	hierarchy, err := service.NewHierarchyService(stores.Hierarchy, log)
	require.NoError(t, err)
	providers, err := service.NewProviders(stores.Providers, stores.Hierarchy, log)
	require.NoError(t, err)

	return &fixture{
		ctx:       ctx,
		handle:    h,
		stores:    stores,
		registry:  registry,
		values:    values,
		resolver:  resolver,
		recorder:  recorder,
		hierarchy: hierarchy,
		providers: providers,
		events:    evLog,
	}
}

// seed creates P4M with Portland (West active, East inactive) and Salem
// without locations.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	require.NoError(t, f.hierarchy.CreateProgram(f.ctx, &domain.Program{ID: "P4M", Name: "Prevention4ME", Prefix: "P4M"}))
	require.NoError(t, f.hierarchy.CreateClinic(f.ctx, &domain.Clinic{ID: "CLN-PDX", ProgramID: "P4M", Name: "Portland"}))
	require.NoError(t, f.hierarchy.CreateClinic(f.ctx, &domain.Clinic{ID: "CLN-SLM", ProgramID: "P4M", Name: "Salem"}))
	require.NoError(t, f.hierarchy.CreateLocation(f.ctx, &domain.Location{ID: "LOC-W", ClinicID: "CLN-PDX", Name: "West"}))
	require.NoError(t, f.hierarchy.CreateLocation(f.ctx, &domain.Location{ID: "LOC-E", ClinicID: "CLN-PDX", Name: "East"}))
	require.NoError(t, f.hierarchy.SetLocationActive(f.ctx, "LOC-E", false))
}

func (f *fixture) define(t *testing.T, def *domain.Definition) *domain.Definition {
	t.Helper()
	if def.Category == "" {
		def.Category = "general"
	}
	if def.DataType == "" {
		def.DataType = domain.DataTypeText
	}
	if def.AppliesTo == "" {
		def.AppliesTo = domain.AppliesToAll
	}
	require.NoError(t, f.registry.Define(f.ctx, def))
	return def
}

func (f *fixture) set(t *testing.T, key string, scope domain.Scope, value string) *domain.ConfigValue {
	t.Helper()
	row, err := f.values.Set(f.ctx, service.SetRequest{Key: key, Scope: scope, Value: value, Actor: "tester"})
	require.NoError(t, err)
	return row
}

func (f *fixture) resolve(t *testing.T, key string, scope domain.Scope) (*string, domain.Level, bool) {
	t.Helper()
	r, err := f.resolver.Resolve(f.ctx, key, scope)
	require.NoError(t, err)
	return r.Value, r.Level, r.IsOverride
}

func (f *fixture) history(t *testing.T, key string, scope domain.Scope) []domain.HistoryEntry {
	t.Helper()
	var out []domain.HistoryEntry
	for entry, err := range f.recorder.History(f.ctx, key, scope, time.Time{}) {
		require.NoError(t, err)
		out = append(out, entry)
	}
	return out
}
