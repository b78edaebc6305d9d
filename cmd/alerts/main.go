// Command alerts scans recent high-risk assessments and dispatches
// drought alerts to Kafka. With -dry-run it reports what would fire
// without persisting or publishing anything.
//
// Usage:
//
//	go run ./cmd/alerts
//	go run ./cmd/alerts -threshold 65 -window 3 -dry-run
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kilimoalert/drought-engine/internal/adapter/kafkaout"
	"github.com/kilimoalert/drought-engine/internal/alert"
	"github.com/kilimoalert/drought-engine/internal/config"
	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/observability"
	"github.com/kilimoalert/drought-engine/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("alert run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	threshold := flag.Float64("threshold", 0, "minimum risk score that fires an alert (default ALERT_THRESHOLD)")
	window := flag.Int("window", 0, "trailing days of assessments to scan (default ALERT_WINDOW_DAYS)")
	dryRun := flag.Bool("dry-run", false, "report without persisting or dispatching")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *threshold == 0 {
		*threshold = cfg.AlertThreshold
	}
	if *window == 0 {
		*window = cfg.AlertWindowDays
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetricsForTesting()

	if cfg.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	pg, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	defer pg.Close()

	writer := kafkaout.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
	defer writer.Close()

	trigger := alert.NewTrigger(pg, writer, logger, metrics)

	since := domain.Today().AddDate(0, 0, -(*window - 1))
	result, err := trigger.Run(context.Background(), since, *threshold, *dryRun)
	if err != nil {
		return err
	}

	for region, ferr := range result.Failed {
		logger.Warn("region alert failed", "region", region, "error", ferr)
	}
	logger.Info("alert run complete",
		"triggered", result.Triggered,
		"suppressed", result.Suppressed,
		"skipped", result.Skipped,
		"dry_run", *dryRun)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Alerts)
}
