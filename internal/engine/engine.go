// Package engine orchestrates daily drought risk assessment: it scores a
// region with the trained model when one is available, falls back to the
// rule-based component scorers otherwise, and persists the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/model"
	"github.com/kilimoalert/drought-engine/internal/observability"
)

// ErrInsufficientData means neither the model path nor any component
// scorer had enough observations to produce a score.
var ErrInsufficientData = errors.New("insufficient data for assessment")

// Store is the persistence the engine needs.
type Store interface {
	Regions(ctx context.Context) ([]domain.Region, error)
	Region(ctx context.Context, id string) (domain.Region, error)
	NDVIRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.NDVIObservation, error)
	SoilMoistureRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.SoilMoistureObservation, error)
	WeatherRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.WeatherObservation, error)
	AssessmentOn(ctx context.Context, regionID string, date time.Time) (domain.Assessment, error)
	UpsertAssessment(ctx context.Context, a *domain.Assessment) error
}

// RiskPredictor is the model surface the engine consumes.
type RiskPredictor interface {
	Predict(ctx context.Context, region domain.Region, date time.Time) (*model.Prediction, error)
	Ready() bool
}

// NotFoundChecker lets the engine distinguish "no row" from real storage
// failures without importing the storage package.
type NotFoundChecker func(error) bool

// fallbackConfidence is reported when the rule-based path produced the
// score instead of the model.
const fallbackConfidence = 0.6

// fallbackModelVersion marks rule-based assessments.
const fallbackModelVersion = "rule-based"

// Engine runs assessments for one or all regions.
type Engine struct {
	store      Store
	predictor  RiskPredictor
	isNotFound NotFoundChecker
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	// retry tuning for AssessAll, overridable in tests
	retryAttempts int
	retryDelay    time.Duration
}

func New(store Store, predictor RiskPredictor, isNotFound NotFoundChecker, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:         store,
		predictor:     predictor,
		isNotFound:    isNotFound,
		logger:        logger,
		metrics:       metrics,
		retryAttempts: 3,
		retryDelay:    200 * time.Millisecond,
	}
}

// CheckReadiness returns nil once the engine has completed at least one
// assessment since startup.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("engine has not completed any assessments yet")
	}
	return nil
}

// Assess scores one region for the given date and writes the result,
// replacing any existing assessment for that (region, date).
func (e *Engine) Assess(ctx context.Context, regionID string, date time.Time) (domain.Assessment, error) {
	region, err := e.store.Region(ctx, regionID)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("loading region %s: %w", regionID, err)
	}
	return e.assess(ctx, region, date)
}

// AssessIfAbsent scores one region only when no assessment exists yet for
// the date. It returns the stored assessment either way, with created
// false when an existing row was kept.
func (e *Engine) AssessIfAbsent(ctx context.Context, regionID string, date time.Time) (domain.Assessment, bool, error) {
	existing, err := e.store.AssessmentOn(ctx, regionID, date)
	if err == nil {
		return existing, false, nil
	}
	if !e.isNotFound(err) {
		return domain.Assessment{}, false, fmt.Errorf("checking existing assessment: %w", err)
	}

	region, err := e.store.Region(ctx, regionID)
	if err != nil {
		return domain.Assessment{}, false, fmt.Errorf("loading region %s: %w", regionID, err)
	}
	a, err := e.assess(ctx, region, date)
	if err != nil {
		return domain.Assessment{}, false, err
	}
	return a, true, nil
}

func (e *Engine) assess(ctx context.Context, region domain.Region, date time.Time) (domain.Assessment, error) {
	start := time.Now()
	date = domain.DateOf(date)

	a, err := e.score(ctx, region, date)
	if err != nil {
		e.metrics.AssessmentErrors.Inc()
		return domain.Assessment{}, err
	}

	a.Normalize()
	if err := e.store.UpsertAssessment(ctx, &a); err != nil {
		e.metrics.AssessmentErrors.Inc()
		return domain.Assessment{}, fmt.Errorf("storing assessment: %w", err)
	}

	e.metrics.AssessmentDuration.Observe(time.Since(start).Seconds())
	e.ready.Store(true)
	e.logger.Info("assessment completed",
		"region", region.ID,
		"date", date.Format(time.DateOnly),
		"risk_score", a.RiskScore,
		"risk_level", a.RiskLevel,
		"model_version", a.ModelVersion,
	)
	return a, nil
}

// score tries the model first and falls back to the rule-based aggregate
// when the model is unavailable or the region lacks same-day data.
func (e *Engine) score(ctx context.Context, region domain.Region, date time.Time) (domain.Assessment, error) {
	pred, err := e.predictor.Predict(ctx, region, date)
	if err == nil {
		e.metrics.AssessmentsCompleted.WithLabelValues("model").Inc()
		return e.fromPrediction(region, date, pred), nil
	}
	if !errors.Is(err, model.ErrModelUnavailable) && !errors.Is(err, model.ErrRequiredDataMissing) {
		return domain.Assessment{}, fmt.Errorf("model prediction: %w", err)
	}
	e.logger.Debug("model path unavailable, using rule-based scoring",
		"region", region.ID, "reason", err)

	a, err := e.ruleBased(ctx, region, date)
	if err != nil {
		return domain.Assessment{}, err
	}
	e.metrics.AssessmentsCompleted.WithLabelValues("fallback").Inc()
	return a, nil
}

// fromPrediction maps a model output onto the stored assessment shape.
// Component scores on this path are display approximations derived from
// the feature vector rather than the trailing-window scorers.
func (e *Engine) fromPrediction(region domain.Region, date time.Time, pred *model.Prediction) domain.Assessment {
	fv := pred.Features
	ndviComp := clamp((1-fv.NDVIValue)*100, 0, 100)
	soilComp := clamp((50-fv.SoilMoisturePercent)*2, 0, 100)
	weatherComp := clamp(2*fv.TemperatureAvg+5*max(0, 14-fv.DaysSinceLastRain), 0, 100)

	risk7 := pred.Risk7Day
	risk30 := pred.Risk30Day
	return domain.Assessment{
		RegionID:              region.ID,
		Date:                  date,
		RiskScore:             pred.RiskScore,
		RiskLevel:             pred.RiskLevel,
		NDVIComponent:         ndviComp,
		SoilMoistureComponent: soilComp,
		WeatherComponent:      weatherComp,
		PredictedRisk7Day:     &risk7,
		PredictedRisk30Day:    &risk30,
		ConfidenceScore:       pred.Confidence,
		RecommendedActions:    domain.Recommendations(pred.RiskLevel, fv),
		ModelVersion:          pred.ModelVersion,
	}
}

// ruleBased aggregates whatever component scorers have data for. Missing
// components drop out of the weighting; ErrInsufficientData surfaces when
// none have data.
func (e *Engine) ruleBased(ctx context.Context, region domain.Region, date time.Time) (domain.Assessment, error) {
	from := date.AddDate(0, 0, -domain.LookbackDays)
	ndvi, err := e.store.NDVIRange(ctx, region.ID, from, date)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("loading ndvi: %w", err)
	}
	soil, err := e.store.SoilMoistureRange(ctx, region.ID, from, date)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("loading soil moisture: %w", err)
	}
	weather, err := e.store.WeatherRange(ctx, region.ID, from, date)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("loading weather: %w", err)
	}

	scores := make(map[domain.Component]float64)
	a := domain.Assessment{RegionID: region.ID, Date: date}
	if s, ok := domain.WeatherScore(weather); ok {
		scores[domain.ComponentWeather] = s
		a.WeatherComponent = s
	}
	if s, ok := domain.NDVIScore(ndvi); ok {
		scores[domain.ComponentNDVI] = s
		a.NDVIComponent = s
	}
	if s, ok := domain.SoilMoistureScore(soil); ok {
		scores[domain.ComponentSoil] = s
		a.SoilMoistureComponent = s
	}

	total, err := domain.AggregateRisk(scores)
	if err != nil {
		if errors.Is(err, domain.ErrNoValidScores) {
			return domain.Assessment{}, fmt.Errorf("%w: region %s on %s", ErrInsufficientData, region.ID, date.Format(time.DateOnly))
		}
		return domain.Assessment{}, err
	}

	a.RiskScore = total
	a.RiskLevel = domain.RiskLevelForScore(total)
	a.ConfidenceScore = fallbackConfidence
	a.ModelVersion = fallbackModelVersion
	a.RecommendedActions = domain.Recommendations(a.RiskLevel, fallbackFeatures(date, ndvi, soil, weather))
	return a, nil
}

// fallbackFeatures builds a best-effort vector for recommendation
// triggers when full extraction is not possible.
func fallbackFeatures(date time.Time, ndvi []domain.NDVIObservation, soil []domain.SoilMoistureObservation, weather []domain.WeatherObservation) domain.FeatureVector {
	var fv domain.FeatureVector
	if len(ndvi) > 0 {
		fv.NDVIValue = ndvi[len(ndvi)-1].Value
	}
	if len(soil) > 0 {
		fv.SoilMoisturePercent = soil[len(soil)-1].MoisturePercent
	} else {
		fv.SoilMoisturePercent = 100 // unknown moisture should not trip the low-moisture trigger
	}
	byDate := make(map[string]domain.WeatherObservation, len(weather))
	for _, w := range weather {
		byDate[w.Date.UTC().Format(time.DateOnly)] = w
	}
	fv.DaysSinceLastRain = float64(domain.DaysSinceLastRain(date, byDate))
	return fv
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
