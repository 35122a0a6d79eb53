package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/nxdesk/sla-service/internal/api/http"
	"github.com/nxdesk/sla-service/internal/api/http/handlers"
	"github.com/nxdesk/sla-service/internal/auth"
	"github.com/nxdesk/sla-service/internal/config"
	"github.com/nxdesk/sla-service/internal/events"
	"github.com/nxdesk/sla-service/internal/observability"
	"github.com/nxdesk/sla-service/internal/persistence"
	"github.com/nxdesk/sla-service/internal/repository"
	"github.com/nxdesk/sla-service/internal/service"
	"github.com/nxdesk/sla-service/internal/sla"
	"github.com/nxdesk/sla-service/internal/worker"
)

const (
	notificationWorkers = 4
	notificationQueue   = 256
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-secret" {
		hashSecret(os.Args[2:])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Logger.Service = cfg.App.Name + "-api"

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	policy, err := sla.LoadPolicy(cfg.SLA.PolicyPath)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	redis.Available(ctx)

	pool := pg.PoolHandle()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification, metrics)
	notificationPool := worker.NewPool(notificationWorkers, notificationQueue, logger)
	worker.StartNotificationWorker(ctx, notificationService, notificationPool)
	defer notificationPool.Stop()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repository.NewTicketRepository(pool),
		SLARepo:     repository.NewSLARepository(pool),
		HistoryRepo: repository.NewTicketHistoryRepository(pool),
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
		SLADuration: policy.Duration,
	})
	authService := service.NewAuthService(cfg.Auth)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.Logger.Service, cfg.App.Version, metrics,
		handlers.DependencyCheck{Name: "postgres", Pinger: pg},
		handlers.DependencyCheck{Name: "redis", Pinger: redis},
	)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Auth:           handlers.NewAuthHandler(authService),
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

// hashSecret prints the bcrypt hash for AUTH_CLIENT_SECRET_HASH.
func hashSecret(args []string) {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(os.Stderr, "usage: api hash-secret <client-secret>")
		os.Exit(2)
	}
	hash, err := auth.HashSecret(args[0], 0)
	if err != nil {
		log.Fatalf("hash secret: %v", err)
	}
	fmt.Println(hash)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
