package main

import (
	"context"
	"errors"
	"os"
	"time"

	"spendcast/internal/amqp"
	"spendcast/internal/backend"
	"spendcast/internal/cli"
	"spendcast/internal/log"
	"spendcast/internal/services"
	"spendcast/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting forecast-worker", log.FieldOperation, log.OpStartup)

	if !cfg.JobsEnabled() {
		logger.Error("AMQP_URL is required by the forecast worker")
		os.Exit(1)
	}
	model := cli.LoadModelConfigOrExit(logger, cfg.ModelConfigFile)

	backendCfg, err := backend.FromAppConfig(cfg, model)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	backendCfg.ForecastStore = true

	b, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	svc := services.NewPredictionService(services.Config{
		Source:              b.Source,
		Registry:            b.Registry,
		InsightsConcurrency: cfg.InsightsConcurrency,
		Logger:              logger.WithComponent(log.ComponentForecast).Slog(),
	})
	forecastWorker := worker.NewForecastWorker(svc, b.Store, logger.Slog())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := b.Close(); err != nil {
			logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Consuming forecast requests", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeForecastRequests(ctx, forecastWorker.HandleForecastRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
