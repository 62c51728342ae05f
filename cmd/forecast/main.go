// Command forecast runs one prediction against the configured service and prints it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"ForecastDash/internal/domain/models"
	"ForecastDash/internal/service/predictor"
	"ForecastDash/internal/usecase"
	"ForecastDash/pkg/config"
	"ForecastDash/pkg/logger"
	"ForecastDash/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "ticker to forecast (default: first catalog entry)")
	confidence := flag.String("confidence", "0.95", "confidence level: 0.99, 0.95, 0.9 or 0.8")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	level, err := models.ParseConfidence(*confidence)
	if err != nil {
		log.Fatalf("%v", err)
	}

	l, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	client := predictor.New(cfg.Prediction.BaseURL, cfg.Prediction.Timeout, metrics.Noop{})
	loader := usecase.NewCatalogLoader(client, metrics.Noop{}, l, cfg.Prediction.Timeout)
	d := usecase.NewDashboard(client, loader, metrics.Noop{}, l, cfg.Prediction.Timeout)

	ctx := context.Background()
	d.LoadCatalog(ctx)

	if *symbol != "" {
		if _, err := d.Select(strings.ToUpper(*symbol)); err != nil {
			log.Fatalf("select %s: %v", *symbol, err)
		}
	}
	if _, err := d.SetConfidence(level); err != nil {
		log.Fatalf("confidence: %v", err)
	}

	view, err := d.Predict(ctx)
	if err != nil && !errors.Is(err, usecase.ErrPredictionFailed) {
		log.Fatalf("predict: %v", err)
	}
	if err := render(os.Stdout, view); err != nil {
		log.Fatalf("write: %v", err)
	}
	if view.Error != "" {
		os.Exit(1)
	}
}

func render(w io.Writer, v models.DashboardView) error {
	if v.Error != "" {
		_, err := fmt.Fprintln(w, v.Error)
		return err
	}
	if !v.HasResult() || v.Summary == nil {
		_, err := fmt.Fprintln(w, "no forecast")
		return err
	}

	s := v.Summary
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if v.Selected != nil {
		fmt.Fprintf(tw, "%s (%s)\n\n", v.Selected.Name, v.Selected.Symbol)
	}
	fmt.Fprintf(tw, "Current Price\t$%s\n", s.CurrentPrice)
	fmt.Fprintf(tw, "7-Day Avg Prediction\t$%s\n", s.AveragePrice)
	fmt.Fprintf(tw, "%s%% Confidence Interval\t$%s - $%s\n", s.ConfidencePercent, s.Range.Low, s.Range.High)
	fmt.Fprintf(tw, "Trend\t%s\n\n", s.TrendLabel)

	fmt.Fprintln(tw, "Date\tPredicted Price\tConfidence Interval")
	for _, r := range v.Rows {
		fmt.Fprintf(tw, "%s\t$%s\t$%s - $%s\n", r.Date, r.Price, r.Range.Low, r.Range.High)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	for _, line := range v.Disclaimer {
		fmt.Fprintln(w, line)
	}
	return nil
}
