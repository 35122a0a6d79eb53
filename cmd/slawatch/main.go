package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/nxdesk/sla-service/internal/api/http"
	"github.com/nxdesk/sla-service/internal/api/http/handlers"
	"github.com/nxdesk/sla-service/internal/auth"
	"github.com/nxdesk/sla-service/internal/client"
	"github.com/nxdesk/sla-service/internal/clock"
	"github.com/nxdesk/sla-service/internal/config"
	"github.com/nxdesk/sla-service/internal/observability"
	"github.com/nxdesk/sla-service/internal/persistence"
	"github.com/nxdesk/sla-service/internal/repository"
	"github.com/nxdesk/sla-service/internal/sla"
)

const serviceSubject = "slawatch"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Logger.Service = cfg.App.Name + "-slawatch"

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	policy, err := sla.LoadPolicy(cfg.SLA.PolicyPath)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	checks := []handlers.DependencyCheck{}
	var ledger sla.BreachLedger
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if redis.Available(pingCtx) {
		ledger = repository.NewRedisBreachLedger(redis.Client, cfg.SLA.LedgerKeyPrefix, cfg.SLA.LedgerTTL())
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
		logger.Info("breach ledger backed by redis")
	} else {
		ledger = repository.NewMemoryBreachLedger()
		logger.Warn("breach ledger is process local")
	}
	cancelPing()

	api := client.New(cfg.Backend.BaseURL, cfg.Backend.Timeout(), logger)
	fallback := fallbackCredentials(cfg)

	registry := sla.NewRegistry(func(ticketID string, creds sla.Credentials) (*sla.Engine, error) {
		return sla.NewEngine(sla.Options{
			TicketID:    ticketID,
			API:         api,
			Credentials: creds,
			Clock:       clock.Real{},
			Policy:      policy,
			Ledger:      ledger,
			Logger:      logger,
		})
	}, logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name + " slawatch"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterSlawatchRoutes(app, httptransport.SlawatchRouteConfig{
		Health:   handlers.NewHealthHandler(cfg.Logger.Service, cfg.App.Version, metrics, checks...),
		Sessions: handlers.NewSessionsHandler(registry, fallback, metrics),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	registry.Close()
}

// fallbackCredentials prefers a configured BACKEND_TOKEN and otherwise mints
// SERVICE tokens with the shared signing secret.
func fallbackCredentials(cfg *config.Config) auth.Provider {
	if strings.TrimSpace(cfg.Backend.Token) != "" {
		return auth.StaticCredentials(cfg.Backend.Token)
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	return auth.NewServiceCredentials(tokens, serviceSubject)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
