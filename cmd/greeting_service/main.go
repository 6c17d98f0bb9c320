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
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	greetingapp "github.com/aradsms/greeting_services/internal/greeting_service/app"
	greetingdomain "github.com/aradsms/greeting_services/internal/greeting_service/domain"
	"github.com/aradsms/greeting_services/internal/platform/config"
	"github.com/aradsms/greeting_services/internal/platform/database"
	"github.com/aradsms/greeting_services/internal/platform/logger"
	"github.com/aradsms/greeting_services/internal/platform/messagebroker"
	"github.com/aradsms/greeting_services/internal/public_api_service/middleware"
	httptransport "github.com/aradsms/greeting_services/internal/public_api_service/transport/http"
)

const serviceName = "greeting_service"

func main() {
	_ = godotenv.Load()

	if handleCLICommand(os.Args[1:]) {
		return
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(exitConfig)
	}

	appLogger := logger.New(cfg.LogLevel).With("service", serviceName)
	if err := serve(cfg, appLogger); err != nil {
		appLogger.Error("Greeting service stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Greeting service shut down gracefully.")
}

func serve(cfg *config.Config, appLogger *slog.Logger) error {
	mainCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Greeting service starting...", "http_port", cfg.HTTPPort, "mail_provider", cfg.MailProvider)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL")

	// Events and triggers are optional; batches still run without NATS.
	var natsClient *messagebroker.NATSClient
	var publisher greetingdomain.EventPublisher
	natsClient, err = messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Warn("NATS unavailable; batch events and NATS triggers disabled", "error", err)
		natsClient = nil
	} else {
		defer natsClient.Close()
		publisher = natsClient
		appLogger.Info("Successfully connected to NATS")
	}

	svcs, err := buildServices(cfg, dbPool, publisher, appLogger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Services{
		Recipients: svcs.contacts,
		Occasions:  svcs.occasions,
		Composer:   svcs.composer,
		Batches:    svcs.orchestrator,
	}, httptransport.RouterConfig{
		RequestTimeout: cfg.HTTPTimeout,
		MetricsEnabled: cfg.MetricsEnabled,
		Auth:           middleware.JWTAuth([]byte(cfg.JWTSecret), appLogger),
	}, appLogger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating HTTP server graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.SchedulerEnabled {
		scheduler := greetingapp.NewDailyScheduler(svcs.orchestrator, appLogger, greetingapp.SchedulerConfig{
			PollingInterval: cfg.SchedulerPollingInterval,
			RunHour:         cfg.SchedulerRunHour,
		}, nil)
		g.Go(func() error { return scheduler.Start(groupCtx) })
	}

	if natsClient != nil {
		consumer := greetingapp.NewTriggerConsumer(natsClient, svcs.orchestrator, appLogger)
		g.Go(func() error {
			return consumer.StartConsuming(groupCtx, cfg.NATSBatchRequestedSubject, cfg.NATSBatchQueueGroup)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
