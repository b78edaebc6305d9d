package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/model"
	"github.com/kilimoalert/drought-engine/internal/observability"
	"github.com/kilimoalert/drought-engine/internal/storage"
)

type stubPredictor struct {
	pred  *model.Prediction
	err   error
	calls int

	// failures makes the first N calls fail with err before succeeding.
	failures int
}

func (p *stubPredictor) Predict(ctx context.Context, region domain.Region, date time.Time) (*model.Prediction, error) {
	p.calls++
	if p.failures > 0 && p.calls <= p.failures {
		return nil, p.err
	}
	if p.pred == nil {
		return nil, p.err
	}
	return p.pred, nil
}

func (p *stubPredictor) Ready() bool { return p.pred != nil }

func isNotFound(err error) bool { return errors.Is(err, storage.ErrNotFound) }

func newTestEngine(predictor RiskPredictor) (*Engine, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	e := New(store, predictor, isNotFound, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	e.retryDelay = time.Millisecond
	return e, store
}

func seedObservations(t *testing.T, store *storage.MemoryStore, regionID string, end time.Time, days int, ndvi, moisture, temp, precip, humidity float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertRegion(ctx, domain.Region{ID: regionID, Name: regionID}))
	for i := days - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		require.NoError(t, store.InsertNDVI(ctx, domain.NDVIObservation{RegionID: regionID, Date: day, Value: ndvi}))
		require.NoError(t, store.InsertSoilMoisture(ctx, domain.SoilMoistureObservation{RegionID: regionID, Date: day, MoisturePercent: moisture}))
		require.NoError(t, store.InsertWeather(ctx, domain.WeatherObservation{
			RegionID: regionID, Date: day,
			TemperatureAvgC: temp, PrecipitationMM: precip, HumidityPercent: humidity,
		}))
	}
}

func TestAssessModelPath(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	pred := &model.Prediction{
		RiskScore:    72,
		RiskLevel:    domain.RiskVeryHigh,
		Risk7Day:     75,
		Risk30Day:    80,
		Confidence:   0.8,
		ModelVersion: "rf-test",
		Features: domain.FeatureVector{
			NDVIValue:           0.3,
			SoilMoisturePercent: 20,
			TemperatureAvg:      33,
			DaysSinceLastRain:   12,
		},
	}
	e, store := newTestEngine(&stubPredictor{pred: pred})
	require.NoError(t, store.UpsertRegion(context.Background(), domain.Region{ID: "kitui", Name: "Kitui"}))

	a, err := e.Assess(context.Background(), "kitui", day)
	require.NoError(t, err)

	assert.Equal(t, 72.0, a.RiskScore)
	assert.Equal(t, domain.RiskVeryHigh, a.RiskLevel)
	assert.Equal(t, "rf-test", a.ModelVersion)
	assert.Equal(t, 0.8, a.ConfidenceScore)
	require.NotNil(t, a.PredictedRisk7Day)
	assert.Equal(t, 75.0, *a.PredictedRisk7Day)
	require.NotNil(t, a.PredictedRisk30Day)
	assert.Equal(t, 80.0, *a.PredictedRisk30Day)

	// Display components derive from the feature vector.
	assert.InDelta(t, 70.0, a.NDVIComponent, 1e-9)         // (1-0.3)*100
	assert.InDelta(t, 60.0, a.SoilMoistureComponent, 1e-9) // (50-20)*2
	assert.InDelta(t, 76.0, a.WeatherComponent, 1e-9)      // 2*33 + 5*(14-12)
	assert.NotEmpty(t, a.RecommendedActions)

	stored, err := store.AssessmentOn(context.Background(), "kitui", day)
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
}

func TestAssessFallbackPath(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e, store := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})

	// Constant conditions with known component scores: weather 37.0,
	// ndvi 70.0 (value 0.5), soil 30.0 (45%).
	seedObservations(t, store, "machakos", day, 20, 0.5, 45, 25, 20.0/14.0, 60)

	a, err := e.Assess(context.Background(), "machakos", day)
	require.NoError(t, err)

	assert.InDelta(t, 44.8, a.RiskScore, 0.01)
	assert.Equal(t, domain.RiskModerate, a.RiskLevel)
	assert.Equal(t, fallbackModelVersion, a.ModelVersion)
	assert.Equal(t, fallbackConfidence, a.ConfidenceScore)
	assert.InDelta(t, 37.0, a.WeatherComponent, 0.01)
	assert.InDelta(t, 70.0, a.NDVIComponent, 0.01)
	assert.InDelta(t, 30.0, a.SoilMoistureComponent, 0.01)
	assert.Nil(t, a.PredictedRisk7Day)
}

func TestAssessFallbackPartialComponents(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e, store := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})
	ctx := context.Background()

	// Only NDVI data exists; its weight renormalizes to 1.
	require.NoError(t, store.UpsertRegion(ctx, domain.Region{ID: "embu", Name: "Embu"}))
	require.NoError(t, store.InsertNDVI(ctx, domain.NDVIObservation{RegionID: "embu", Date: day, Value: 0.5}))

	a, err := e.Assess(ctx, "embu", day)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, a.RiskScore, 0.01)
	assert.Equal(t, 0.0, a.WeatherComponent, "missing components store zero")
	assert.Equal(t, 0.0, a.SoilMoistureComponent)
}

func TestAssessInsufficientData(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e, store := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})
	require.NoError(t, store.UpsertRegion(context.Background(), domain.Region{ID: "empty", Name: "Empty"}))

	_, err := e.Assess(context.Background(), "empty", day)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAssessUnknownRegion(t *testing.T) {
	e, _ := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})
	_, err := e.Assess(context.Background(), "nowhere", time.Now())
	assert.Error(t, err)
}

func TestAssessReplacesExisting(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e, store := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})
	seedObservations(t, store, "machakos", day, 20, 0.5, 45, 28, 1, 60)

	first, err := e.Assess(context.Background(), "machakos", day)
	require.NoError(t, err)

	second, err := e.Assess(context.Background(), "machakos", day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-running one day replaces, never duplicates")
	assert.Equal(t, first.RiskScore, second.RiskScore)
}

func TestAssessIfAbsentSkipsExisting(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	stub := &stubPredictor{err: model.ErrModelUnavailable}
	e, store := newTestEngine(stub)
	seedObservations(t, store, "machakos", day, 20, 0.5, 45, 28, 1, 60)

	_, created, err := e.AssessIfAbsent(context.Background(), "machakos", day)
	require.NoError(t, err)
	assert.True(t, created)
	callsAfterFirst := stub.calls

	_, created, err = e.AssessIfAbsent(context.Background(), "machakos", day)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, callsAfterFirst, stub.calls, "existing assessment short-circuits scoring")
}

func TestAssessAll(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e, store := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})
	ctx := context.Background()

	seedObservations(t, store, "machakos", day, 20, 0.5, 45, 28, 1, 60)
	seedObservations(t, store, "kitui", day, 20, 0.25, 15, 34, 0, 30)
	require.NoError(t, store.UpsertRegion(ctx, domain.Region{ID: "bare", Name: "Bare"}))

	// Pre-assess one region so the batch skips it.
	_, err := e.Assess(ctx, "kitui", day)
	require.NoError(t, err)

	result, err := e.AssessAll(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Assessed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Failed, 1)
	assert.ErrorIs(t, result.Failed["bare"], ErrInsufficientData)
}

func TestAssessAllRetriesTransientFailures(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	stub := &stubPredictor{
		err:      errors.New("storage flaked"),
		failures: 2,
		pred: &model.Prediction{
			RiskScore:    40,
			RiskLevel:    domain.RiskModerate,
			Risk7Day:     40,
			Risk30Day:    40,
			Confidence:   0.8,
			ModelVersion: "rf-test",
		},
	}
	e, store := newTestEngine(stub)
	seedObservations(t, store, "machakos", day, 5, 0.5, 45, 28, 1, 60)

	result, err := e.AssessAll(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Assessed)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 3, stub.calls, "two failures then success")
}

func TestCheckReadiness(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	e, store := newTestEngine(&stubPredictor{err: model.ErrModelUnavailable})

	assert.Error(t, e.CheckReadiness(context.Background()))

	seedObservations(t, store, "machakos", day, 20, 0.5, 45, 28, 1, 60)
	_, err := e.Assess(context.Background(), "machakos", day)
	require.NoError(t, err)
	assert.NoError(t, e.CheckReadiness(context.Background()))
}
