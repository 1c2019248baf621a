package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/diogoviieira/register-track-bot/internal/amqp"
	"github.com/diogoviieira/register-track-bot/internal/backend"
	"github.com/diogoviieira/register-track-bot/internal/cache"
	"github.com/diogoviieira/register-track-bot/internal/cli"
	"github.com/diogoviieira/register-track-bot/internal/log"
	"github.com/diogoviieira/register-track-bot/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting trackbot-worker")

	cfg := cli.MustConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize sheet mirror", log.FieldError, err)
		os.Exit(1)
	}

	// Initialize AMQP client for consuming messages
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mirrorWorker := worker.NewMirrorWorker(mirror)
	caches := cache.NewManager()
	caches.Register(mirrorWorker.Seen())
	caches.StartCleanup(10 * time.Minute)

	err = amqpClient.ConsumeEntryEvents(ctx, mirrorWorker.HandleEntryEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	logger.Info("Shutting down worker...")
	_ = cli.RunCleanup(logger, 30*time.Second,
		func(context.Context) error { caches.Stop(); return nil },
		func(context.Context) error { return amqpClient.Close() },
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}
