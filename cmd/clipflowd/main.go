package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"clipflow/internal/config"
	"clipflow/internal/engine"
	"clipflow/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "clipflow.yml", "path to the daemon config")
	flag.Parse()

	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.LogLevel != "" || cfg.LogJSON {
		logging.Configure(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	}

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}
