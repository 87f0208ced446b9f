package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"tarmac/internal/config"
	"tarmac/internal/daemon"
	"tarmac/internal/logging"
	"tarmac/internal/scanstore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := scanstore.Open(cfg)
	if err != nil {
		logger.Error("open scan store", logging.Error(err))
		return
	}
	defer store.Close()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("tarmacd shutting down")
}
