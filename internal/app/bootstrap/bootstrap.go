package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	distributionengine "profitshare/contexts/finance-core/distribution-engine"
	postgresadapter "profitshare/contexts/finance-core/distribution-engine/adapters/postgres"
	prometheusadapter "profitshare/contexts/finance-core/distribution-engine/adapters/prometheus"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/internal/platform/config"
	"profitshare/internal/platform/db"
	"profitshare/internal/platform/httpserver"
	"profitshare/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const eventDedupTTL = 7 * 24 * time.Hour

// Engine is the distribution module wired against the configured database.
// The operator CLI drives it directly; the API and worker wrap it.
type Engine struct {
	Config     config.Config
	Module     distributionengine.Module
	Repository *postgresadapter.Repository
	Database   *db.Database
	Bus        *messaging.Kafka
	Logger     *slog.Logger
}

type APIApp struct {
	server *httpserver.Server
	engine *Engine
	logger *slog.Logger
}

type WorkerApp struct {
	engine       *Engine
	cfg          config.Config
	pollInterval time.Duration
	logger       *slog.Logger
}

// BuildEngine loads configuration, connects the database and wires the
// module. Schema migration and seeding follow AUTO_MIGRATE and SETTINGS_SEED_FILE.
func BuildEngine(ctx context.Context, process string) (*Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", process)
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	database, err := db.Connect(cfg.DatabaseDriver, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgresadapter.AutoMigrate(database.DB); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	qualifying, err := parseTriggerEvents(cfg.ReferralQualifyingEvents)
	if err != nil {
		_ = database.Close()
		return nil, err
	}

	repo := postgresadapter.NewRepository(database.DB, logger)
	var metrics *prometheusadapter.Metrics
	if cfg.EnableMetrics {
		metrics = prometheusadapter.Default()
	}
	module := distributionengine.NewModule(distributionengine.Dependencies{
		Settings:         repo,
		Accounts:         repo,
		Ledger:           repo,
		Reader:           repo,
		Audit:            repo,
		Holds:            repo,
		Consistency:      repo,
		Outbox:           repo,
		Dedup:            repo,
		Publisher:        bus,
		Subscriber:       bus,
		Clock:            postgresadapter.SystemClock{},
		IDGenerator:      postgresadapter.UUIDGenerator{},
		Metrics:          metrics,
		Concurrency:      cfg.DistributionConcurrency,
		PageSize:         cfg.DistributionPageSize,
		CreditsPerSecond: cfg.DistributionCreditsPerSecond,
		QualifyingEvents: qualifying,
		OutboxBatchSize:  100,
		DedupTTL:         eventDedupTTL,
		Logger:           logger,
	})

	engine := &Engine{
		Config:     cfg,
		Module:     module,
		Repository: repo,
		Database:   database,
		Bus:        bus,
		Logger:     logger,
	}
	if cfg.SettingsSeedFile != "" {
		if err := engine.applySeed(ctx, cfg.SettingsSeedFile); err != nil {
			_ = database.Close()
			return nil, err
		}
	}
	return engine, nil
}

func (e *Engine) Close() error {
	if e == nil || e.Database == nil {
		return nil
	}
	return e.Database.Close()
}

func BuildAPI() (*APIApp, error) {
	engine, err := BuildEngine(context.Background(), "api")
	if err != nil {
		return nil, err
	}

	server := httpserver.New(engine.Module, httpserver.Options{
		Addr:          normalizeAddr(engine.Config.HTTPPort),
		EnableMetrics: engine.Config.EnableMetrics,
		Logger:        engine.Logger,
	})
	return &APIApp{
		server: server,
		engine: engine,
		logger: engine.Logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	engine, err := BuildEngine(context.Background(), "worker")
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		engine:       engine,
		cfg:          engine.Config,
		pollInterval: engine.Config.SchedulerPollInterval,
		logger:       engine.Logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	return a.engine.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	workers := w.engine.Module.Workers
	if err := workers.NotificationDispatcher.Start(ctx); err != nil {
		return err
	}
	if w.cfg.EnableReferralConsumer {
		if err := workers.ReferralConsumer.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"scheduler", w.cfg.EnableDistributionScheduler,
		"referral_consumer", w.cfg.EnableReferralConsumer,
		"ledger_auditor", w.cfg.EnableLedgerAuditor,
	)

	for {
		w.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs one pass of every polling worker. A failing worker is logged and
// retried on the next tick; it never stops the others.
func (w *WorkerApp) tick(ctx context.Context) {
	workers := w.engine.Module.Workers
	if w.cfg.EnableLedgerAuditor {
		if err := workers.LedgerAuditor.RunOnce(ctx); err != nil {
			w.logTickFailure("ledger_auditor", err)
		}
	}
	if w.cfg.EnableDistributionScheduler {
		if err := workers.Scheduler.RunOnce(ctx); err != nil {
			w.logTickFailure("distribution_scheduler", err)
		}
	}
	if err := workers.OutboxRelay.RunOnce(ctx); err != nil {
		w.logTickFailure("outbox_relay", err)
	}
}

func (w *WorkerApp) logTickFailure(worker string, err error) {
	w.logger.Error("worker tick failed",
		"event", "bootstrap_worker_tick_failed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"worker", worker,
		"error", err.Error(),
	)
}

func (w *WorkerApp) Close() error {
	return w.engine.Close()
}

func parseTriggerEvents(raw []string) ([]entities.TriggerEvent, error) {
	events := make([]entities.TriggerEvent, 0, len(raw))
	for _, item := range raw {
		event, err := entities.ParseTriggerEvent(item)
		if err != nil {
			return nil, fmt.Errorf("REFERRAL_QUALIFYING_EVENTS: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
