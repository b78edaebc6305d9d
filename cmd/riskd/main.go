// Command riskd is the drought early-warning daemon. On a fixed interval
// it tops up weather observations from NASA POWER (when enabled), scores
// every region, and triggers alerts for assessments above the configured
// risk threshold. Operational endpoints (/healthz, /readyz, /metrics) are
// served over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kilimoalert/drought-engine/internal/adapter/http"
	"github.com/kilimoalert/drought-engine/internal/adapter/kafkaout"
	"github.com/kilimoalert/drought-engine/internal/adapter/power"
	"github.com/kilimoalert/drought-engine/internal/alert"
	"github.com/kilimoalert/drought-engine/internal/config"
	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/engine"
	"github.com/kilimoalert/drought-engine/internal/model"
	"github.com/kilimoalert/drought-engine/internal/observability"
	"github.com/kilimoalert/drought-engine/internal/storage"
)

// store is the union of persistence surfaces the daemon needs.
type store interface {
	engine.Store
	model.Repository
	alert.Store
	InsertWeather(ctx context.Context, obs ...domain.WeatherObservation) error
}

// weatherLookback is how many trailing days the POWER top-up refreshes
// each cycle. It covers the widest component scoring window.
const weatherLookback = 14

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	var st store
	var closeStore func() error
	if cfg.PostgresDSN != "" {
		pg, err := storage.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			logger.Error("failed to open postgres", "error", err)
			os.Exit(1)
		}
		st = pg
		closeStore = pg.Close
		logger.Info("using postgres store")
	} else {
		st = storage.NewMemoryStore()
		closeStore = func() error { return nil }
		logger.Warn("POSTGRES_DSN not set, using in-memory store")
	}

	predictor := model.NewPredictor(st, model.NewFileStore(cfg.ModelPath), logger, metrics)
	eng := engine.New(st, predictor, isNotFound, logger, metrics)

	var trigger *alert.Trigger
	var dispatcher *kafkaout.Writer
	if cfg.AlertsEnabled {
		dispatcher = kafkaout.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		trigger = alert.NewTrigger(st, dispatcher, logger, metrics)
		logger.Info("alert dispatch enabled", "topic", cfg.KafkaAlertTopic, "threshold", cfg.AlertThreshold)
	} else {
		logger.Info("alert dispatch disabled")
	}

	// Weather ingestion is feature-flagged via POWER_ENABLED.
	var weather power.Source
	if cfg.PowerEnabled {
		client := power.NewClient(cfg.PowerTimeout, logger, metrics)
		weather = power.NewCachedSource(client, cfg.PowerCacheSize, metrics)
		logger.Info("nasa power ingestion enabled", "cache_size", cfg.PowerCacheSize, "timeout", cfg.PowerTimeout)
	} else {
		logger.Info("nasa power ingestion disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start assessment loop.
	go func() {
		runLoop(ctx, cfg, st, eng, trigger, weather, logger, metrics)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if dispatcher != nil {
		if err := dispatcher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := closeStore(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// runLoop executes one assessment cycle immediately, then on every tick
// until the context is cancelled.
func runLoop(ctx context.Context, cfg *config.Config, st store, eng *engine.Engine, trigger *alert.Trigger, weather power.Source, logger *slog.Logger, metrics *observability.Metrics) {
	metrics.EngineRunning.Set(1)
	defer metrics.EngineRunning.Set(0)

	runCycle(ctx, cfg, st, eng, trigger, weather, logger)

	ticker := time.NewTicker(cfg.AssessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCycle(ctx, cfg, st, eng, trigger, weather, logger)
		}
	}
}

func runCycle(ctx context.Context, cfg *config.Config, st store, eng *engine.Engine, trigger *alert.Trigger, weather power.Source, logger *slog.Logger) {
	today := domain.Today()
	logger.Info("assessment cycle starting", "date", today.Format(time.DateOnly))

	if weather != nil {
		topUpWeather(ctx, st, weather, today, logger)
	}

	result, err := eng.AssessAll(ctx, today)
	if err != nil {
		logger.Error("assessment cycle failed", "error", err)
		return
	}
	logger.Info("assessment cycle complete",
		"assessed", result.Assessed, "skipped", result.Skipped, "failed", len(result.Failed))

	if trigger == nil {
		return
	}
	since := today.AddDate(0, 0, -(cfg.AlertWindowDays - 1))
	alerts, err := trigger.Run(ctx, since, cfg.AlertThreshold, false)
	if err != nil {
		logger.Error("alert trigger failed", "error", err)
		return
	}
	logger.Info("alert trigger complete",
		"triggered", alerts.Triggered, "suppressed", alerts.Suppressed, "failed", len(alerts.Failed))
}

// topUpWeather refreshes the trailing observation window for every region.
// Failures are logged per region; a bad fetch never blocks scoring.
func topUpWeather(ctx context.Context, st store, weather power.Source, today time.Time, logger *slog.Logger) {
	regions, err := st.Regions(ctx)
	if err != nil {
		logger.Error("listing regions for weather top-up", "error", err)
		return
	}

	from := today.AddDate(0, 0, -(weatherLookback - 1))
	for _, region := range regions {
		obs, err := weather.FetchDaily(ctx, region, from, today)
		if err != nil {
			logger.Warn("weather fetch failed", "region", region.ID, "error", err)
			continue
		}
		if len(obs) == 0 {
			continue
		}
		if err := st.InsertWeather(ctx, obs...); err != nil {
			logger.Error("storing weather observations", "region", region.ID, "error", err)
			continue
		}
		logger.Debug("weather topped up", "region", region.ID, "observations", len(obs))
	}
}
