package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/hierconf/internal/config"
	"github.com/phrazzld/hierconf/internal/events"
	"github.com/phrazzld/hierconf/internal/platform/metrics"
	"github.com/phrazzld/hierconf/internal/platform/postgres"
	"github.com/phrazzld/hierconf/internal/platform/sqlite"
	"github.com/phrazzld/hierconf/internal/platform/sqlstore"
	"github.com/phrazzld/hierconf/internal/redact"
	"github.com/phrazzld/hierconf/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "hierconf"

// application holds the wired dependencies a command runs against.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	migrations sqlstore.MigrationSource
	registry   *prometheus.Registry

	definitions service.Registry
	hierarchy   service.HierarchyService
	providers   service.Providers
	recorder    service.Recorder
	values      service.Values
	resolver    service.Resolver
}

// newApplication opens the configured database and builds the services over
// it. The caller owns the returned application and must close it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, dialect, migrations, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Debug("database connection established",
		slog.String("driver", cfg.Database.Driver),
		slog.String("url", redact.String(cfg.Database.URL)))

	app := &application{
		config:     cfg,
		logger:     logger,
		db:         db,
		migrations: migrations,
		registry:   prometheus.NewRegistry(),
	}
	if err := app.wire(dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func (a *application) wire(dialect sqlstore.Dialect) error {
	sqlStores := sqlstore.New(a.db, dialect, a.logger)
	stores := service.Stores{
		Definitions: sqlStores.Definitions,
		Values:      sqlStores.Values,
		History:     sqlStores.History,
		Hierarchy:   sqlStores.Hierarchy,
		Providers:   sqlStores.Providers,
	}

	prom := metrics.NewProm(metricsNamespace, a.registry)
	emitter := events.NewInMemoryEventEmitter(a.logger)
	emitter.RegisterHandler(events.MetricsHandler{Metrics: prom})

	var err error
	if a.definitions, err = service.NewRegistry(a.db, stores.Definitions, a.logger); err != nil {
		return fmt.Errorf("failed to create definition registry: %w", err)
	}
	if a.hierarchy, err = service.NewHierarchyService(stores.Hierarchy, a.logger); err != nil {
		return fmt.Errorf("failed to create hierarchy service: %w", err)
	}
	if a.providers, err = service.NewProviders(stores.Providers, stores.Hierarchy, a.logger); err != nil {
		return fmt.Errorf("failed to create provider service: %w", err)
	}
	if a.recorder, err = service.NewRecorder(stores.History, a.config.History.PageSize, a.logger); err != nil {
		return fmt.Errorf("failed to create history recorder: %w", err)
	}
	if a.values, err = service.NewValues(a.db, stores, a.recorder, emitter, a.logger); err != nil {
		return fmt.Errorf("failed to create value service: %w", err)
	}
	if a.resolver, err = service.NewResolver(stores, prom, a.logger); err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}
	return nil
}

// migrate runs a goose command against the application database.
func (a *application) migrate(ctx context.Context, command string) error {
	return sqlstore.Migrate(ctx, a.db, a.migrations, command, a.logger)
}

// writeMetrics dumps the registry in the Prometheus text format.
func (a *application) writeMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func (a *application) close() error {
	return a.db.Close()
}

// openDatabase connects to the configured engine and returns the dialect
// and migrations that belong to it.
func openDatabase(
	ctx context.Context,
	cfg config.DatabaseConfig,
) (*sql.DB, sqlstore.Dialect, sqlstore.MigrationSource, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.URL)
		if err != nil {
			return nil, nil, sqlstore.MigrationSource{}, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, sqlite.Dialect{}, sqlite.Migrations(), nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.URL, cfg.MaxOpenConns)
		if err != nil {
			// pgx errors can echo the connection string back.
			return nil, nil, sqlstore.MigrationSource{}, fmt.Errorf("failed to open postgres database: %s", redact.Error(err))
		}
		return db, postgres.Dialect{}, postgres.Migrations(), nil
	default:
		return nil, nil, sqlstore.MigrationSource{}, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
