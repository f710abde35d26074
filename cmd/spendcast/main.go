package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendcast/internal/amqp"
	"spendcast/internal/backend"
	"spendcast/internal/cli"
	apphttp "spendcast/internal/http"
	"spendcast/internal/log"
	"spendcast/internal/services"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	model := cli.LoadModelConfigOrExit(logger, cfg.ModelConfigFile)

	backendCfg, err := backend.FromAppConfig(cfg, model)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	b, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Asynchronous forecasts are optional: without AMQP the job endpoints answer 503.
	var publisher services.JobPublisher
	var amqpClient *amqp.Client
	if cfg.JobsEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, forecast jobs disabled", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewPredictionService(services.Config{
		Source:              b.Source,
		Writer:              b.Writer,
		Registry:            b.Registry,
		Store:               b.Store,
		Publisher:           publisher,
		InsightsConcurrency: cfg.InsightsConcurrency,
		Logger:              logger.WithComponent(log.ComponentForecast).Slog(),
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Service:           svc,
		Ready:             b.Ping,
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Version:           version,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := b.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting spendcast server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sequence_backend", cfg.SequenceBackend,
		"jobs_enabled", publisher != nil,
		"version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
