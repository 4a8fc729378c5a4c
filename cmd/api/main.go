package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/felipe-nonato/task-manager/internal/api/http"
	"github.com/felipe-nonato/task-manager/internal/api/http/handlers"
	"github.com/felipe-nonato/task-manager/internal/auth"
	"github.com/felipe-nonato/task-manager/internal/config"
	"github.com/felipe-nonato/task-manager/internal/events"
	"github.com/felipe-nonato/task-manager/internal/external"
	"github.com/felipe-nonato/task-manager/internal/observability"
	"github.com/felipe-nonato/task-manager/internal/persistence"
	"github.com/felipe-nonato/task-manager/internal/repository"
	"github.com/felipe-nonato/task-manager/internal/service"
	"github.com/felipe-nonato/task-manager/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	loginThrottle := auth.NewLoginThrottle(redis.Client, cfg.Auth.ThrottleMaxAttempts, cfg.Auth.ThrottleWindow())

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		LoginGate:  loginThrottle,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(cfg.Forwarder, service.TicketDependencies{
		TicketRepo: ticketRepo,
		Forwarder:  external.NewClient(cfg.Forwarder),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	atrService := service.NewATRService(ticketRepo, dispatcher, logger)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(pg, redis),
		Users:   handlers.NewUsersHandler(authService),
		Tickets: handlers.NewTicketsHandler(ticketService, atrService),
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
