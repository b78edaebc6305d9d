// Command assess runs a one-off drought risk assessment and prints the
// result as JSON. It scores a single region with -region, or every known
// region with -all.
//
// Usage:
//
//	go run ./cmd/assess -region machakos -date 2025-04-15
//	go run ./cmd/assess -all
//	go run ./cmd/assess -all -synthetic -days 60
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kilimoalert/drought-engine/internal/config"
	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/engine"
	"github.com/kilimoalert/drought-engine/internal/model"
	"github.com/kilimoalert/drought-engine/internal/observability"
	"github.com/kilimoalert/drought-engine/internal/storage"
	"github.com/kilimoalert/drought-engine/internal/synthetic"
)

type store interface {
	engine.Store
	model.Repository
	synthetic.Seeder
}

func main() {
	if err := run(); err != nil {
		slog.Error("assess failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	regionID := flag.String("region", "", "region to assess")
	dateStr := flag.String("date", "", "assessment date as YYYY-MM-DD (default today)")
	all := flag.Bool("all", false, "assess every known region")
	useSynthetic := flag.Bool("synthetic", false, "seed an in-memory store with generated observations")
	days := flag.Int("days", 60, "days of synthetic history to generate")
	seed := flag.Int64("seed", 7, "synthetic data seed")
	flag.Parse()

	if *regionID == "" && !*all {
		flag.Usage()
		return errors.New("either -region or -all is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetricsForTesting()

	ctx := context.Background()

	date := domain.Today()
	if *dateStr != "" {
		date, err = time.Parse(time.DateOnly, *dateStr)
		if err != nil {
			return fmt.Errorf("parsing -date: %w", err)
		}
	}

	st, cleanup, err := openStore(ctx, cfg, *useSynthetic, *days, *seed, date, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	predictor := model.NewPredictor(st, model.NewFileStore(cfg.ModelPath), logger, metrics)
	eng := engine.New(st, predictor, func(err error) bool {
		return errors.Is(err, storage.ErrNotFound)
	}, logger, metrics)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *all {
		result, err := eng.AssessAll(ctx, date)
		if err != nil {
			return err
		}
		for id, ferr := range result.Failed {
			logger.Warn("region failed", "region", id, "error", ferr)
		}
		assessments, err := recentAssessments(ctx, st, date)
		if err != nil {
			return err
		}
		return enc.Encode(assessments)
	}

	a, err := eng.Assess(ctx, *regionID, date)
	if err != nil {
		return err
	}
	return enc.Encode(a)
}

func openStore(ctx context.Context, cfg *config.Config, useSynthetic bool, days int, seed int64, date time.Time, logger *slog.Logger) (store, func(), error) {
	if useSynthetic {
		mem := storage.NewMemoryStore()
		ds := synthetic.Generate(synthetic.Options{Days: days, End: date, Seed: seed})
		if err := synthetic.Load(ctx, mem, ds); err != nil {
			return nil, nil, fmt.Errorf("seeding synthetic data: %w", err)
		}
		logger.Info("seeded synthetic observations", "regions", len(ds.Regions), "days", days)
		return mem, func() {}, nil
	}

	if cfg.PostgresDSN == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required unless -synthetic is set")
	}
	pg, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening postgres: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}

func recentAssessments(ctx context.Context, st store, date time.Time) ([]domain.Assessment, error) {
	regions, err := st.Regions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Assessment, 0, len(regions))
	for _, region := range regions {
		a, err := st.AssessmentOn(ctx, region.ID, date)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
