// Package main - точка входа фоновых процессов (Worker) EduPulse Student Insight Hub.
//
// Worker отвечает за периодические задачи:
// - Синхронизация фич студентов из хранилища (PostgreSQL)
// - Периодический пересчёт всей популяции
// - Сканирование когорты на аномалии и публикация алертов
//
// Worker держит собственную копию популяции: он скорит свежие батчи
// из хранилища и поднимает алерты независимо от API-сервера.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Application layer
	"github.com/edupulse/student-insight-hub/internal/application/command"
	"github.com/edupulse/student-insight-hub/internal/application/eventhandler"
	"github.com/edupulse/student-insight-hub/internal/application/query"

	// Domain layer
	"github.com/edupulse/student-insight-hub/internal/domain/scoring"
	"github.com/edupulse/student-insight-hub/internal/domain/shared"

	// Infrastructure layer
	"github.com/edupulse/student-insight-hub/internal/infrastructure/external/lms"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/messaging"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/notify"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/persistence/postgres"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/scheduler"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/scheduler/jobs"
	"github.com/edupulse/student-insight-hub/internal/population"

	// Packages
	"github.com/edupulse/student-insight-hub/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting EduPulse Insight Worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"feature_source", cfg.Source.Kind,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИСТОЧНИК ФИЧ (PostgreSQL warehouse или LMS export API)
	// ─────────────────────────────────────────────────────────────────────────
	var featureSource jobs.FeatureSource
	var syncAuditor jobs.SyncAuditor

	switch cfg.Source.Kind {
	case config.SourceWarehouse:
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when FEATURE_SOURCE=warehouse")
		}

		log.Info("connecting to feature warehouse...")
		dbConn, connErr := postgres.NewConnectionFromURL(ctx, cfg.Database.URL, postgres.PoolTuning{
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			QueryTimeout:    cfg.Database.QueryTimeout,
		})
		if connErr != nil {
			return fmt.Errorf("failed to connect to database: %w", connErr)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if pingErr := dbConn.Ping(ctx); pingErr != nil {
			return fmt.Errorf("database ping failed: %w", pingErr)
		}
		log.Info("database connection established")

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if migErr := migrator.Migrate(ctx); migErr != nil {
			return fmt.Errorf("failed to run migrations: %w", migErr)
		}
		log.Info("migrations completed")

		featureRepo := postgres.NewFeatureRepository(dbConn)
		featureSource = featureRepo
		syncAuditor = featureRepo

	case config.SourceLMS:
		lmsConfig := lms.DefaultClientConfig(cfg.Source.LMSBaseURL)
		lmsConfig.APIKey = cfg.Source.LMSAPIKey
		lmsConfig.Program = cfg.Source.LMSProgram
		lmsConfig.PageSize = cfg.Source.LMSPageSize
		lmsConfig.Logger = log
		lmsConfig.Debug = cfg.App.Debug

		featureSource = lms.NewClient(lmsConfig)
		log.Info("using LMS export API as feature source", "base_url", cfg.Source.LMSBaseURL)

	default:
		return fmt.Errorf("unknown feature source %q", cfg.Source.Kind)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. СКОРИНГОВЫЙ ДВИЖОК И ПОПУЛЯЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	profile, err := config.LoadProfile(cfg.Scoring.ProfilePath)
	if err != nil {
		return fmt.Errorf("failed to load scoring profile: %w", err)
	}
	log.Info("scoring profile loaded", "profile", profile.Name)

	scanCfg, err := config.LoadScanConfig(cfg.Scoring.ProfilePath)
	if err != nil {
		return fmt.Errorf("failed to load alert thresholds: %w", err)
	}
	log.Info("alert thresholds loaded",
		"inactivity_days", scanCfg.InactivityDays,
		"drop_delta", scanCfg.DropDelta,
	)

	engine, err := scoring.NewEngine(profile)
	if err != nil {
		return fmt.Errorf("failed to build scoring engine: %w", err)
	}

	store := population.NewStore(engine, scoring.DefaultStrategy())

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS И ОБРАБОТЧИКИ
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultInMemoryEventBusConfig()
	busConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer eventBus.Close()

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Bus:    eventBus,
		Logger: log,
	})

	var alertNotifier eventhandler.AlertNotifier
	if cfg.Notify.AlertWebhookURL != "" {
		webhookConfig := notify.DefaultWebhookConfig(cfg.Notify.AlertWebhookURL)
		webhookConfig.Logger = log
		alertNotifier = notify.NewWebhookNotifier(webhookConfig)
		log.Info("alert webhook configured")
	}

	alertHandler := eventhandler.NewOnAlertRaisedHandler(alertNotifier, log, eventhandler.DefaultAlertRaisedConfig())
	if err := dispatcher.Register(shared.EventAlertRaised, "on_alert_raised", alertHandler.Handle); err != nil {
		return fmt.Errorf("failed to register alert handler: %w", err)
	}

	ingestedHandler := eventhandler.NewOnPopulationIngestedHandler(log, eventhandler.DefaultPopulationIngestedConfig())
	if err := dispatcher.Register(shared.EventPopulationIngested, "on_population_ingested", ingestedHandler.Handle); err != nil {
		return fmt.Errorf("failed to register ingest handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	ingestCmd := command.NewIngestFeaturesHandler(store, eventBus, nil)
	rescoreCmd := command.NewRescorePopulationHandler(store, eventBus, nil)
	alertsQuery := query.NewGetAlertsHandler(store, nil, scanCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER И ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled, nothing for the worker to do")
	}

	sched := scheduler.NewScheduler(log)
	sched.OnJobComplete(func(result scheduler.JobResult) {
		if result.Success {
			log.Info("job completed",
				"job", result.JobName,
				"duration", result.Duration,
			)
			return
		}
		log.Error("job failed",
			"job", result.JobName,
			"duration", result.Duration,
			"error", result.Error,
		)
	})

	if cfg.Features.IsEnabled(config.FeatureWarehouseSync) {
		syncJob := jobs.NewSyncFeaturesJob(featureSource, syncAuditor, ingestCmd, eventBus, log)
		if err := sched.Register(syncJob, scheduler.NewIntervalSchedule(cfg.Scheduler.SyncFeaturesInterval)); err != nil {
			return fmt.Errorf("failed to register sync job: %w", err)
		}
	}

	if cfg.Features.IsEnabled(config.FeatureAlertScanJob) {
		scanJob := jobs.NewScanAlertsJob(alertsQuery, eventBus, log)
		if err := sched.Register(scanJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ScanAlertsInterval)); err != nil {
			return fmt.Errorf("failed to register alert scan job: %w", err)
		}
	}

	if cfg.Features.IsEnabled(config.FeatureScheduledRescore) {
		rescoreJob := jobs.NewRescorePopulationJob(rescoreCmd, log)
		if err := sched.Register(rescoreJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RescoreInterval)); err != nil {
			return fmt.Errorf("failed to register rescore job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Первый sync запускаем сразу, чтобы не ждать целый интервал
	// с пустой популяцией.
	if cfg.Features.IsEnabled(config.FeatureWarehouseSync) {
		if _, err := sched.RunNow(ctx, "sync_features"); err != nil {
			log.Warn("initial feature sync failed", "error", err)
		}
	}

	log.Info("EduPulse Insight Worker is running",
		"jobs", len(sched.ListJobs()),
		"population_size", store.Size(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("stopping scheduler...")
	sched.Stop()

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
