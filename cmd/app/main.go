package main

import (
	"flag"
	"log"
	"os"

	"TradeDesk/internal/di"
	"TradeDesk/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s state=%s", cfg.Environment, cfg.Backend.BaseURL, cfg.State.Backend)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	app.OnShutdown(cleanup)

	if cfg.Audit.Enabled {
		log.Printf("kafka: audit brokers=%v topic=%s", cfg.Audit.Brokers, cfg.Audit.Topic)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
