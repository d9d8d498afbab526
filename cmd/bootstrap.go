package cmd

import (
	"context"
	"fmt"

	"exercise-sync/core/audit"
	"exercise-sync/core/config"
	"exercise-sync/core/database"
	"exercise-sync/core/gateway"
	"exercise-sync/core/logger"
	"exercise-sync/core/mapper"
	"exercise-sync/core/remote"
	"exercise-sync/core/storage"
	"exercise-sync/feature/exercises"
	"exercise-sync/feature/exercises/models"
	syncfeature "exercise-sync/feature/sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime holds everything a command needs to run sync operations.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	gateway *gateway.Gateway
	audit   *audit.Log
	// storage is nil unless run archiving is enabled.
	storage storage.Client
	service *syncfeature.Service
}

// Close stops the gateway worker, closes the database and flushes the logger.
func (r *runtime) Close() {
	r.gateway.Close()
	if err := database.Close(r.db); err != nil {
		r.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// bootstrap loads configuration and the logger, then wires the runtime.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return wire(ctx, cfg, l)
}

// connectDB opens the database. Tests replace it.
var connectDB = database.Connect

// wire builds the runtime from loaded configuration. The database is closed
// again when a later step fails.
func wire(ctx context.Context, cfg *config.Config, l *zap.Logger) (*runtime, error) {
	db, err := connectDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	ready := false
	defer func() {
		if !ready {
			_ = database.Close(db)
		}
	}()

	repo := exercises.NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate exercises: %w", err)
	}

	table := negotiateMappings(l, db)

	store, err := audit.NewGormStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate audit tables: %w", err)
	}

	var client storage.Client
	auditOpts := []audit.Option{audit.WithLogger(l.Named("audit"))}
	if cfg.Audit.Archive {
		client, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return nil, err
		}
		auditOpts = append(auditOpts, audit.WithArchiver(audit.NewStorageArchiver(client, cfg.Storage.Bucket, cfg.Audit.Prefix)))
		l.Info("Archiving sync runs", zap.String("bucket", cfg.Storage.Bucket), zap.String("prefix", cfg.Audit.Prefix))
	}
	auditLog := audit.New(store, auditOpts...)

	gw, err := gateway.New(cfg.Remote, gateway.WithLogger(l.Named("gateway")))
	if err != nil {
		return nil, fmt.Errorf("invalid remote configuration: %w", err)
	}

	svc := syncfeature.NewService(syncfeature.Options{
		Config: cfg.Sync,
		Local:  repo,
		Remote: remote.NewClient(gw, cfg.Sync.PageSize, l.Named("remote")),
		Mapper: mapper.New(table),
		Audit:  auditLog,
		Logger: l.Named("sync"),
	})

	ready = true
	return &runtime{
		cfg:     cfg,
		logger:  l,
		db:      db,
		gateway: gw,
		audit:   auditLog,
		storage: client,
		service: svc,
	}, nil
}

// negotiateMappings drops mappings whose column is missing from the live table.
func negotiateMappings(l *zap.Logger, db *gorm.DB) []mapper.FieldMapping {
	table := exercises.DefaultMappings()

	columns, err := database.GetTableColumns(db, models.Exercise{}.TableName())
	if err != nil {
		l.Warn("Could not inspect exercises table, using the full mapping table", zap.Error(err))
		return table
	}

	kept, dropped := mapper.Negotiate(table, columns)
	if len(dropped) > 0 {
		l.Warn("Mapped fields without a column are ignored", zap.Strings("fields", dropped))
	}
	return kept
}
