// Command app serves the forecast dashboard: the page, the JSON API and the
// websocket feed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ForecastDash/internal/di"
	"ForecastDash/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config; env vars such as PREDICTION_BASE_URL override it")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("forecast dashboard: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Printf("starting env=%s prediction=%s cache=%s events=%t",
		cfg.Environment, cfg.Prediction.BaseURL, cfg.Cache.Backend, cfg.Events.Enabled)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer cleanup()

	return app.Run()
}
