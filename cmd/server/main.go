// Package main - точка входа HTTP API сервера EduPulse Student Insight Hub.
//
// Сервер держит скоринговую популяцию в памяти и отдаёт дашборду
// отфильтрованные списки студентов, KPI когорты и алерты. Мутации
// (загрузка батчей, пересчёт, смена профиля) идут через command handlers
// и публикуют доменные события.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: скоринг, когорта, студенты — без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: Redis-кеш, event bus, синтетический генератор
// - Interface: HTTP handlers
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
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
	"github.com/edupulse/student-insight-hub/internal/infrastructure/messaging"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/notify"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/persistence/redis"
	"github.com/edupulse/student-insight-hub/internal/infrastructure/synthetic"
	"github.com/edupulse/student-insight-hub/internal/population"

	// Interface layer
	httpserver "github.com/edupulse/student-insight-hub/internal/interface/http"
	"github.com/edupulse/student-insight-hub/internal/interface/http/handlers"

	// Packages
	"github.com/edupulse/student-insight-hub/config"
	"github.com/edupulse/student-insight-hub/pkg/logger"
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
	log.Info("starting EduPulse Student Insight Hub",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. СКОРИНГОВЫЙ ДВИЖОК И ПОПУЛЯЦИЯ
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
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var insightCache *redis.InsightCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCache, err = redis.NewCache(redisCacheConfig(cfg))
		if err != nil {
			log.Warn("failed to connect to Redis, memoization disabled", "error", err)
		} else {
			defer redisCache.Close()
			if cfg.Features.IsEnabled(config.FeatureInsightCache) {
				insightCache = redis.NewInsightCache(redisCache)
			}
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

	localBusConfig := messaging.DefaultInMemoryEventBusConfig()
	localBusConfig.Logger = log

	var eventBus shared.EventBus
	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureRedisEventFanout) {
		redisBus, busErr := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			LocalBusConfig: localBusConfig,
			Logger:         log,
		})
		if busErr != nil {
			return fmt.Errorf("failed to create redis event bus: %w", busErr)
		}
		defer redisBus.Close()
		eventBus = redisBus
		log.Info("event bus mode: redis fan-out")
	} else {
		memBus := messaging.NewInMemoryEventBus(localBusConfig)
		defer memBus.Close()
		eventBus = memBus
		log.Info("event bus mode: in-memory")
	}

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Bus:    eventBus,
		Logger: log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	filterQuery := query.NewFilterStudentsHandler(store)
	studentQuery := query.NewGetStudentHandler(store)

	// InsightCache может быть nil - handlers считают инсайты заново.
	var kpiCache query.KPICache
	var alertCache query.AlertCache
	var invalidator command.InsightInvalidator
	if insightCache != nil {
		kpiCache = insightCache
		alertCache = insightCache
		invalidator = insightCache
	}

	kpiQuery := query.NewGetKPIMetricsHandler(store, kpiCache)
	alertsQuery := query.NewGetAlertsHandler(store, alertCache, scanCfg)

	ingestCmd := command.NewIngestFeaturesHandler(store, eventBus, invalidator)
	rescoreCmd := command.NewRescorePopulationHandler(store, eventBus, invalidator)
	reloadCmd := command.NewReloadProfileHandler(store, rescoreCmd, eventBus)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

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
	// 8. SYNTHETIC SEED (development)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Features.IsEnabled(config.FeatureSyntheticSeed) || cfg.Scoring.SyntheticSeedCount > 0 {
		seedCfg := synthetic.DefaultConfig()
		if cfg.Scoring.SyntheticSeedCount > 0 {
			seedCfg.Count = cfg.Scoring.SyntheticSeedCount
		}

		batch := synthetic.Generate(seedCfg)
		result, seedErr := ingestCmd.Handle(ctx, command.IngestFeaturesCommand{
			Records: batch,
			Source:  "synthetic",
		})
		if seedErr != nil {
			return fmt.Errorf("failed to seed synthetic population: %w", seedErr)
		}
		log.Info("synthetic population seeded",
			"requested", seedCfg.Count,
			"ingested", result.Report.Accepted,
			"rejected", len(result.Report.Rejected),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("population", handlers.NewPopulationCheck(store))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.Server.Host
	httpConfig.Port = cfg.Server.Port
	httpConfig.ReadTimeout = cfg.Server.ReadTimeout
	httpConfig.WriteTimeout = cfg.Server.WriteTimeout
	httpConfig.IdleTimeout = cfg.Server.IdleTimeout
	httpConfig.RequestTimeout = cfg.Server.RequestTimeout
	httpConfig.RateLimitPerMinute = cfg.Server.RateLimitPerMinute
	httpConfig.EnableCORS = cfg.Server.EnableCORS
	httpConfig.AllowedOrigins = cfg.Server.AllowedOrigins
	httpConfig.APIKeyHeader = cfg.Server.APIKeyHeader
	httpConfig.APIKeys = cfg.Server.APIKeys
	httpConfig.MaxIngestBytes = cfg.Server.MaxIngestBytes

	httpDeps := httpserver.Dependencies{
		FilterStudentsHandler:    filterQuery,
		GetStudentHandler:        studentQuery,
		GetKPIMetricsHandler:     kpiQuery,
		GetAlertsHandler:         alertsQuery,
		IngestFeaturesHandler:    ingestCmd,
		RescorePopulationHandler: rescoreCmd,
		ReloadProfileHandler:     reloadCmd,
		ActiveProfile:            func() scoring.Profile { return engine.Profile() },
		Logger:                   logger.Default(),
		HealthChecker:            healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if serveErr := httpServer.Start(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", serveErr)
		}
	}()

	log.Info("EduPulse Student Insight Hub is running",
		"http_address", httpServer.Address(),
		"population_size", store.Size(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

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

// redisCacheConfig собирает redis.Config из конфигурации приложения.
// REDIS_URL имеет приоритет над отдельными полями.
func redisCacheConfig(cfg *config.Config) redis.Config {
	if cfg.Redis.URL != "" {
		if parsed, err := redis.ConfigFromURL(cfg.Redis.URL); err == nil {
			return parsed
		}
	}

	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	rc.PoolSize = cfg.Redis.PoolSize
	rc.MinIdleConns = cfg.Redis.MinIdleConns
	rc.DialTimeout = cfg.Redis.DialTimeout
	rc.ReadTimeout = cfg.Redis.ReadTimeout
	rc.WriteTimeout = cfg.Redis.WriteTimeout
	return rc
}
