package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spyglass/internal/config"
	"spyglass/internal/daemon"
	"spyglass/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	d.Start(ctx)

	<-ctx.Done()
	logger.Info("spyglassd shutting down")
}
