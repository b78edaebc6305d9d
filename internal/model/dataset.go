package model

import (
	"context"
	"fmt"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
)

// TrainingWindowDays is how far back dataset assembly reaches for samples.
const TrainingWindowDays = 180

// Repository is the data access the model package needs. Implementations
// live in the storage package.
type Repository interface {
	Regions(ctx context.Context) ([]domain.Region, error)
	NDVIRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.NDVIObservation, error)
	SoilMoistureRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.SoilMoistureObservation, error)
	WeatherRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.WeatherObservation, error)
	AssessmentsRange(ctx context.Context, regionID string, from, to time.Time) ([]domain.Assessment, error)
}

// Sample is one labeled training example.
type Sample struct {
	RegionID string
	Date     time.Time
	Features domain.FeatureVector
	Label    float64
}

// BuildDataset walks the training window for every region and emits one
// sample per day that has NDVI, soil moisture and weather readings. The
// label is the stored assessment score for that day when one exists;
// otherwise the deterministic baseline formula bootstraps it.
func BuildDataset(ctx context.Context, repo Repository, asOf time.Time) ([]Sample, error) {
	regions, err := repo.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing regions: %w", err)
	}

	from := asOf.AddDate(0, 0, -(TrainingWindowDays + domain.LookbackDays))
	var samples []Sample

	for _, region := range regions {
		ndvi, err := repo.NDVIRange(ctx, region.ID, from, asOf)
		if err != nil {
			return nil, fmt.Errorf("region %s ndvi: %w", region.ID, err)
		}
		soil, err := repo.SoilMoistureRange(ctx, region.ID, from, asOf)
		if err != nil {
			return nil, fmt.Errorf("region %s soil moisture: %w", region.ID, err)
		}
		weather, err := repo.WeatherRange(ctx, region.ID, from, asOf)
		if err != nil {
			return nil, fmt.Errorf("region %s weather: %w", region.ID, err)
		}
		assessments, err := repo.AssessmentsRange(ctx, region.ID, from, asOf)
		if err != nil {
			return nil, fmt.Errorf("region %s assessments: %w", region.ID, err)
		}

		scoreByDate := make(map[string]float64, len(assessments))
		for _, a := range assessments {
			scoreByDate[a.Date.UTC().Format(time.DateOnly)] = a.RiskScore
		}

		for offset := TrainingWindowDays - 1; offset >= 0; offset-- {
			day := domain.DateOf(asOf.AddDate(0, 0, -offset))
			fv, err := domain.ExtractFeatures(region, day, ndvi, soil, weather)
			if err != nil {
				if domain.IsSameDayDataMissing(err) {
					continue
				}
				return nil, fmt.Errorf("region %s features on %s: %w", region.ID, day.Format(time.DateOnly), err)
			}

			label, ok := scoreByDate[day.Format(time.DateOnly)]
			if !ok {
				label = baselineLabel(day, fv, weather)
			}
			samples = append(samples, Sample{
				RegionID: region.ID,
				Date:     day,
				Features: fv,
				Label:    label,
			})
		}
	}
	return samples, nil
}

// baselineLabel reproduces the rule-based score for days without a stored
// assessment so the forest always trains on a full window.
func baselineLabel(day time.Time, fv domain.FeatureVector, weather []domain.WeatherObservation) float64 {
	key := day.UTC().Format(time.DateOnly)
	for _, w := range weather {
		if w.Date.UTC().Format(time.DateOnly) == key {
			return domain.BaselineRisk(fv.NDVIValue, fv.SoilMoisturePercent, w)
		}
	}
	// ExtractFeatures already required a same-day weather reading, so this
	// branch is unreachable in practice.
	return domain.BaselineRisk(fv.NDVIValue, fv.SoilMoisturePercent, domain.WeatherObservation{
		TemperatureAvgC: fv.TemperatureAvg,
		PrecipitationMM: fv.PrecipitationMM,
		HumidityPercent: fv.HumidityPercent,
	})
}

// matrix splits samples into feature rows and label column.
func matrix(samples []Sample) (rows [][]float64, labels []float64) {
	rows = make([][]float64, len(samples))
	labels = make([]float64, len(samples))
	for i, s := range samples {
		rows[i] = s.Features.Slice()
		labels[i] = s.Label
	}
	return rows, labels
}
