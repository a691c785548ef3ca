package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"job-ingest-go/internal/config"
	"job-ingest-go/internal/logging"
	"job-ingest-go/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	configFile := os.Getenv("JOBINGEST_CONFIG")
	if configFile == "" {
		configFile = "config.yaml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Printf("Configuration validation failed: %v", err)
		return 1
	}

	logger, err := logging.New(cfg.Monitoring.Development, cfg.Monitoring.LogLevel)
	if err != nil {
		log.Printf("Failed to setup logging: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, cancelling run", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	deps, cleanup, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize pipeline", zap.Error(err))
		return 1
	}
	defer cleanup()

	report, err := pipeline.Run(ctx, cfg, deps)
	if report != nil {
		report.WriteConsole(os.Stdout)
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, pipeline.ErrNoJobs):
		logger.Info("nothing to persist")
		return 0
	default:
		var pe *pipeline.Error
		if errors.As(err, &pe) {
			logger.Error("ingest failed",
				zap.String("kind", string(pe.Kind)),
				zap.Error(err),
				zap.ByteString("stack", pe.StackTrace()))
		} else {
			logger.Error("ingest failed", zap.Error(err))
		}
		return 1
	}
}
