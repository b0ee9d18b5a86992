package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"territory-planner/internal/cli"
	"territory-planner/internal/config"
	"territory-planner/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("TERRITORY_CONFIG")
	if configPath == "" {
		configPath = cli.DefaultConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Serve(ctx, &cli.CLIContext{Config: cfg, Logger: logger}, true)
}
