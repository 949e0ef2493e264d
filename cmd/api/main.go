package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/analysis"
	httptransport "github.com/spec-kit/grievance-service/internal/api/http"
	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/channel"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/persistence"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	"github.com/spec-kit/grievance-service/internal/store"
	"github.com/spec-kit/grievance-service/internal/worker"
	"github.com/spec-kit/grievance-service/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persister, err := store.NewFilePersister(cfg.Snapshot.Path)
	if err != nil {
		logger.Fatal("failed to prepare snapshot path", zap.Error(err))
	}
	recordStore := store.NewRecordStore(persister, logger)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	provider := analysis.NewGeminiClient(cfg.Analysis)
	gateway := channel.NewMailGateway(cfg.Channel)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	engine := workflow.NewEngine(workflow.Dependencies{
		Store:      recordStore,
		Provider:   provider,
		Channel:    gateway,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	sessionService, err := service.NewSessionService(cfg.Auth, recordStore, redis, logger)
	if err != nil {
		logger.Fatal("failed to init session service", zap.Error(err))
	}

	if pool := pg.PoolHandle(); pool != nil {
		archiveRepo := repository.NewArchiveRepository(pool)
		archiveService := service.NewArchiveService(recordStore, archiveRepo, logger)
		worker.StartArchiveWorker(archiveService, dispatcher)
	}

	authMiddleware := auth.NewAuthMiddleware(sessionService.TokenManager())

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Snapshot.Path, pg, redis)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	complaintsHandler := handlers.NewComplaintsHandler(engine, recordStore, logger)
	recordsHandler := handlers.NewRecordsHandler(engine, recordStore)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Session:        sessionHandler,
		Complaints:     complaintsHandler,
		Records:        recordsHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
