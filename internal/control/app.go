package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idcvault/idcvault/internal/backup"
	"github.com/idcvault/idcvault/internal/collector/identitycenter"
	"github.com/idcvault/idcvault/internal/core/config"
	redisclient "github.com/idcvault/idcvault/internal/infra/redis"
	"github.com/idcvault/idcvault/internal/infra/storage"
	"github.com/idcvault/idcvault/internal/infra/storage/memory"
	"github.com/idcvault/idcvault/internal/infra/storage/postgres"
	"github.com/idcvault/idcvault/internal/resilience"
)

// App wires the collector, storage, report store, and operation registry
// into the backup and restore workflows.
type App struct {
	cfg       *config.AppConfig
	collector *identitycenter.Client
	store     storage.Engine
	reports   redisclient.ReportStore
	registry  *resilience.Registry

	db          *postgres.DB
	redisClient *redisclient.Client
	server      *Server
	log         *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	collector, err := identitycenter.New(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to init identity center client: %w", err)
	}

	// Snapshot storage: postgres when configured, in-memory otherwise.
	var store storage.Engine
	var db *postgres.DB
	if cfg.Database.URL != "" {
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			return nil, err
		}
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		store = postgres.NewSnapshotRepo(db)
		slog.Info("Using PostgreSQL snapshot storage")
	} else {
		store = memory.NewStore()
		slog.Info("Using in-memory snapshot storage")
	}

	// Report store: redis when configured, in-memory otherwise.
	var reports redisclient.ReportStore
	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, reports kept in memory", "error", err)
			reports = redisclient.NewMemoryReportStore()
		} else {
			reports = redisClient
		}
	} else {
		reports = redisclient.NewMemoryReportStore()
	}

	registry := resilience.NewRegistry(cfg.Operation.RetentionPeriod)

	app := &App{
		cfg:         cfg,
		collector:   collector,
		store:       store,
		reports:     reports,
		registry:    registry,
		db:          db,
		redisClient: redisClient,
		log:         slog.Default(),
	}
	app.server = NewServer(app, cfg.Server.Port)
	return app, nil
}

// Start launches the background pieces: the operation-state reaper and the
// health and metrics server.
func (a *App) Start(ctx context.Context) {
	go a.registry.StartReaper(ctx)
	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()
}

// Stop shuts everything down.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping idcvault...")

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
	return a.server.Stop(ctx)
}

func (a *App) options() backup.Options {
	return backup.Options{
		Policy:            a.cfg.Retry.Policy(),
		ReportTTL:         a.cfg.Operation.RetentionPeriod,
		RollbackOnFailure: !a.cfg.Operation.DisableRollback,
	}
}

// Backup runs a full backup of the configured identity store.
func (a *App) Backup(ctx context.Context) *backup.OperationResult {
	o := backup.NewOrchestrator(a.collector, a.store, backup.NewSnapshotValidator(), a.reports, a.registry, a.options())
	return o.Run(ctx, a.cfg.AWS.IdentityStoreID, a.cfg.AWS.InstanceArn)
}

// Restore applies a stored snapshot back onto the directory.
func (a *App) Restore(ctx context.Context, snapshotID string, dryRun bool) *backup.OperationResult {
	opts := a.options()
	opts.DryRun = dryRun
	o := backup.NewRestoreOrchestrator(a.store, a.collector, backup.NewSnapshotValidator(), a.reports, a.registry, opts)
	return o.Run(ctx, snapshotID)
}

// Snapshots lists stored snapshots, newest first.
func (a *App) Snapshots(ctx context.Context) ([]storage.SnapshotInfo, error) {
	return a.store.List(ctx)
}

// Operations returns the tracked operation states.
func (a *App) Operations() []*resilience.OperationState {
	return a.registry.List()
}

// Report looks up a persisted error report by id.
func (a *App) Report(ctx context.Context, reportID string) (*resilience.Report, error) {
	return a.reports.Load(ctx, reportID)
}
