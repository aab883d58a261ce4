package main

import (
	"flag"
	"log"
	"os"

	"nichescope/internal/di"
	"nichescope/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	envFile := flag.String("env", ".env", "optional dotenv file")
	check := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath, *envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("nichescope env=%s cache=%s trends=%s keepa=%t scraper=%t clickhouse=%t kafka=%t queue=%t/%s",
		cfg.Environment, cfg.Cache.Type, cfg.Trends.BaseURL, cfg.Keepa.APIKey != "", cfg.Scraper.Enabled,
		cfg.ClickHouse.Enabled, cfg.Kafka.Enabled, cfg.Queue.Enabled, cfg.Queue.Mode)
	if *check {
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("wiring: %v", err)
	}
	// blocks until SIGINT/SIGTERM or a component fails
	if err := app.Run(); err != nil {
		log.Printf("nichescope stopped: %v", err)
		os.Exit(1)
	}
}
