package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/community-site/internal/config"
	"github.com/hongminglow/community-site/internal/events"
	"github.com/hongminglow/community-site/internal/logging"
	"github.com/hongminglow/community-site/internal/obs"
	"github.com/hongminglow/community-site/internal/server"
	"github.com/hongminglow/community-site/internal/storage"
	"github.com/hongminglow/community-site/internal/storage/memory"
	postgres "github.com/hongminglow/community-site/internal/storage/postgres"
	"github.com/hongminglow/community-site/internal/upload"
)

const serviceName = "community-site"

var version = "dev"

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "text", "info").Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With("service", serviceName)

	ctx := context.Background()
	if envErr != nil {
		logger.Debug(ctx, "no .env file found; relying on existing environment")
	}

	shutdownTracer, err := obs.InitTracer(ctx, serviceName, version, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error(ctx, "init tracer", "error", err)
		os.Exit(1)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "init database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	uploads, err := upload.NewS3Delegate(ctx, cfg.S3, logger)
	if err != nil {
		logger.Error(ctx, "init upload delegate", "error", err)
		os.Exit(1)
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		logger.Error(ctx, "init event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	srv := server.New(cfg, server.Deps{
		Store:   store,
		Uploads: uploads,
		Events:  publisher,
		Logger:  logger,
	})

	go func() {
		logger.Info(ctx, "community site backend listening", "addr", cfg.HTTPAddress(), "memory_store", cfg.UsesMemoryStore())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Warn(ctx, "graceful shutdown error", "error", err)
	}
	if err := shutdownTracer(ctxShutdown); err != nil {
		logger.Warn(ctx, "tracer shutdown error", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.UsesMemoryStore() {
		return memory.New(), nil
	}
	return postgres.NewStore(ctx, cfg.DatabaseURL)
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	if cfg.RabbitURL == "" {
		return events.Noop{}, nil
	}
	return events.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange)
}
