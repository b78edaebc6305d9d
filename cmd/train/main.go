// Command train fits the drought risk forest and writes the model
// artifact to MODEL_PATH (or -out). With -synthetic it trains against
// generated observations instead of the configured Postgres store,
// which is useful for smoke-testing the training path end to end.
//
// Usage:
//
//	go run ./cmd/train
//	go run ./cmd/train -synthetic -days 180 -seed 42
//	go run ./cmd/train -test-size 0.3 -out /tmp/model.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kilimoalert/drought-engine/internal/config"
	"github.com/kilimoalert/drought-engine/internal/model"
	"github.com/kilimoalert/drought-engine/internal/observability"
	"github.com/kilimoalert/drought-engine/internal/storage"
	"github.com/kilimoalert/drought-engine/internal/synthetic"
)

func main() {
	if err := run(); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	testSize := flag.Float64("test-size", 0.2, "held-out fraction for evaluation")
	useSynthetic := flag.Bool("synthetic", false, "train on generated observations")
	days := flag.Int("days", 180, "days of synthetic history to generate")
	seed := flag.Int64("seed", 42, "training and synthetic data seed")
	out := flag.String("out", "", "artifact output path (default MODEL_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	var repo model.Repository
	var cleanup func()
	if *useSynthetic {
		mem := storage.NewMemoryStore()
		ds := synthetic.Generate(synthetic.Options{Days: *days, Seed: *seed})
		if err := synthetic.Load(ctx, mem, ds); err != nil {
			return fmt.Errorf("seeding synthetic data: %w", err)
		}
		logger.Info("seeded synthetic observations", "regions", len(ds.Regions), "days", *days)
		repo = mem
		cleanup = func() {}
	} else {
		if cfg.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required unless -synthetic is set")
		}
		pg, err := storage.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		repo = pg
		cleanup = func() { _ = pg.Close() }
	}
	defer cleanup()

	path := cfg.ModelPath
	if *out != "" {
		path = *out
	}

	predictor := model.NewPredictor(repo, model.NewFileStore(path), logger, observability.NewMetricsForTesting())
	report, err := predictor.Train(ctx, model.TrainOptions{
		TestFraction: *testSize,
		Seed:         *seed,
	})
	if err != nil {
		return err
	}

	logger.Info("model trained",
		"version", report.Version,
		"samples", report.Samples,
		"train_rmse", report.TrainMetrics.RMSE,
		"test_rmse", report.TestMetrics.RMSE,
		"test_r2", report.TestMetrics.R2,
		"cv_mean_rmse", report.CVMeanRMSE,
		"path", path)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
