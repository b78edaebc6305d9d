package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/observability"
)

var (
	// ErrModelUnavailable means no trained artifact could be loaded.
	ErrModelUnavailable = errors.New("no trained model available")
	// ErrRequiredDataMissing means the region lacks same-day observations.
	ErrRequiredDataMissing = errors.New("required observation data missing")
	// ErrTooFewSamples means the training window produced too little data.
	ErrTooFewSamples = errors.New("not enough training samples")
)

// minTrainingSamples is the floor below which a forest overfits badly
// enough that the rule-based fallback is the better estimator.
const minTrainingSamples = 50

// mlConfidence is reported on model-backed predictions; the rule-based
// path reports a lower figure.
const mlConfidence = 0.8

// TrainOptions tunes a training run. Zero values take defaults.
type TrainOptions struct {
	Config       ForestConfig
	TestFraction float64
	CVFolds      int
	Seed         int64
}

func (o *TrainOptions) fill() {
	if o.Config.Trees == 0 {
		o.Config = DefaultForestConfig()
	}
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = 0.2
	}
	if o.CVFolds == 0 {
		o.CVFolds = 5
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
}

// TrainingReport summarizes a completed training run.
type TrainingReport struct {
	Version      string             `json:"version"`
	TrainedAt    time.Time          `json:"trained_at"`
	Samples      int                `json:"samples"`
	TrainMetrics EvalMetrics        `json:"train_metrics"`
	TestMetrics  EvalMetrics        `json:"test_metrics"`
	CVScores     []float64          `json:"cv_rmse"`
	CVMeanRMSE   float64            `json:"cv_mean_rmse"`
	CVStdRMSE    float64            `json:"cv_std_rmse"`
	Importances  map[string]float64 `json:"feature_importances"`
}

// Prediction is one model output for a region and date.
type Prediction struct {
	RiskScore    float64
	RiskLevel    domain.RiskLevel
	Risk7Day     float64
	Risk30Day    float64
	Confidence   float64
	ModelVersion string
	Features     domain.FeatureVector
}

// Predictor trains and serves the drought risk forest.
type Predictor struct {
	repo    Repository
	store   ArtifactStore
	logger  *slog.Logger
	metrics *observability.Metrics

	artifact *Artifact
}

func NewPredictor(repo Repository, store ArtifactStore, logger *slog.Logger, metrics *observability.Metrics) *Predictor {
	return &Predictor{repo: repo, store: store, logger: logger, metrics: metrics}
}

// Train assembles the dataset, fits scaler and forest on the training
// split, evaluates both splits plus k-fold cross validation, and persists
// the artifact. The in-memory model is swapped only after the save
// succeeds.
func (p *Predictor) Train(ctx context.Context, opts TrainOptions) (*TrainingReport, error) {
	opts.fill()
	start := time.Now()

	samples, err := BuildDataset(ctx, p.repo, domain.Today())
	if err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}
	if len(samples) < minTrainingSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTooFewSamples, len(samples), minTrainingSamples)
	}
	p.logger.Info("training dataset assembled", "samples", len(samples))

	rows, labels := matrix(samples)
	trainRows, testRows, trainLabels, testLabels := splitTrainTest(rows, labels, opts.TestFraction, opts.Seed)

	// The scaler sees only the training split; held-out rows stay unseen
	// until evaluation.
	scaler, err := FitScaler(trainRows)
	if err != nil {
		return nil, fmt.Errorf("fitting scaler: %w", err)
	}

	forest, err := TrainForest(opts.Config, scaler.TransformAll(trainRows), trainLabels, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("training forest: %w", err)
	}

	trainMetrics := evaluateSplit(forest, scaler, trainRows, trainLabels)
	testMetrics := evaluateSplit(forest, scaler, testRows, testLabels)

	cvScores, err := CrossValidate(opts.Config, rows, labels, opts.CVFolds, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("cross validation: %w", err)
	}
	cvMean := stat.Mean(cvScores, nil)
	cvStd := stat.PopStdDev(cvScores, nil)

	trainedAt := domain.Now()
	artifact := &Artifact{
		Version:      versionStamp(trainedAt),
		TrainedAt:    trainedAt,
		FeatureNames: domain.FeatureNames(),
		Scaler:       scaler,
		Forest:       forest,
		Metrics:      testMetrics,
	}
	if err := p.store.Save(artifact); err != nil {
		return nil, fmt.Errorf("saving artifact: %w", err)
	}
	p.artifact = artifact

	importances := make(map[string]float64, len(forest.Importances))
	for i, name := range domain.FeatureNames() {
		importances[name] = forest.Importances[i]
	}

	p.metrics.ModelTrainingDuration.Observe(time.Since(start).Seconds())
	p.metrics.ModelTrainingSamples.Set(float64(len(samples)))
	p.metrics.ModelLoaded.Set(1)

	p.logger.Info("model trained",
		"version", artifact.Version,
		"samples", len(samples),
		"train_rmse", trainMetrics.RMSE,
		"test_rmse", testMetrics.RMSE,
		"test_r2", testMetrics.R2,
		"cv_mean_rmse", cvMean,
	)

	return &TrainingReport{
		Version:      artifact.Version,
		TrainedAt:    trainedAt,
		Samples:      len(samples),
		TrainMetrics: trainMetrics,
		TestMetrics:  testMetrics,
		CVScores:     cvScores,
		CVMeanRMSE:   cvMean,
		CVStdRMSE:    cvStd,
		Importances:  importances,
	}, nil
}

// evaluateSplit scores one raw split through the fitted scaler and forest.
func evaluateSplit(forest *Forest, scaler *Scaler, rows [][]float64, labels []float64) EvalMetrics {
	predicted := make([]float64, len(rows))
	for i, row := range rows {
		predicted[i] = forest.Predict(scaler.Transform(row))
	}
	return Evaluate(predicted, labels)
}

// Ready reports whether a trained model is loaded or loadable.
func (p *Predictor) Ready() bool {
	if p.artifact != nil {
		return true
	}
	return p.ensureLoaded() == nil
}

// Predict scores one region for the given date using the trained forest.
// Returns ErrModelUnavailable when no artifact exists and
// ErrRequiredDataMissing when the region has no same-day observations.
func (p *Predictor) Predict(ctx context.Context, region domain.Region, date time.Time) (*Prediction, error) {
	if err := p.ensureLoaded(); err != nil {
		return nil, err
	}

	from := date.AddDate(0, 0, -domain.LookbackDays)
	ndvi, err := p.repo.NDVIRange(ctx, region.ID, from, date)
	if err != nil {
		return nil, fmt.Errorf("loading ndvi: %w", err)
	}
	soil, err := p.repo.SoilMoistureRange(ctx, region.ID, from, date)
	if err != nil {
		return nil, fmt.Errorf("loading soil moisture: %w", err)
	}
	weather, err := p.repo.WeatherRange(ctx, region.ID, from, date)
	if err != nil {
		return nil, fmt.Errorf("loading weather: %w", err)
	}

	fv, err := domain.ExtractFeatures(region, date, ndvi, soil, weather)
	if err != nil {
		if domain.IsSameDayDataMissing(err) {
			return nil, fmt.Errorf("%w: %s", ErrRequiredDataMissing, err)
		}
		return nil, err
	}

	score := p.score(fv)
	pred := &Prediction{
		RiskScore:    score,
		RiskLevel:    domain.RiskLevelForScore(score),
		Risk7Day:     p.score(horizonFeatures(fv, date, 7)),
		Risk30Day:    p.score(horizonFeatures(fv, date, 30)),
		Confidence:   mlConfidence,
		ModelVersion: p.artifact.Version,
		Features:     fv,
	}
	return pred, nil
}

func (p *Predictor) score(fv domain.FeatureVector) float64 {
	raw := p.artifact.Forest.Predict(p.artifact.Scaler.Transform(fv.Slice()))
	return math.Min(100, math.Max(0, raw))
}

func (p *Predictor) ensureLoaded() error {
	if p.artifact != nil {
		return nil
	}
	artifact, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrModelUnavailable, err)
	}
	if artifact.Forest == nil || artifact.Scaler == nil {
		return fmt.Errorf("%w: artifact incomplete", ErrModelUnavailable)
	}
	p.artifact = artifact
	p.metrics.ModelLoaded.Set(1)
	return nil
}

// horizonFeatures projects the current vector forward: the seasonal phase
// moves to the target date and the dry spell lengthens assuming no rain,
// capped the same way extraction caps it. Slow-moving indicators keep
// their current values.
func horizonFeatures(fv domain.FeatureVector, date time.Time, days int) domain.FeatureVector {
	out := fv
	out.SeasonNumeric = domain.SeasonNumeric(date.AddDate(0, 0, days))
	out.DaysSinceLastRain = math.Min(30, fv.DaysSinceLastRain+float64(days))
	return out
}
