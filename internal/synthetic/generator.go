// Package synthetic generates seeded observation fixtures for regions
// without live data feeds. Values follow the East African bimodal rain
// pattern: long rains March through May, short rains October and
// November, dry months in between.
package synthetic

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
)

// Kenyan counties used when the caller does not supply its own regions.
var defaultRegions = []domain.Region{
	{ID: "machakos", Name: "Machakos", Latitude: -1.5177, Longitude: 37.2634},
	{ID: "kitui", Name: "Kitui", Latitude: -1.3683, Longitude: 38.0106},
	{ID: "makueni", Name: "Makueni", Latitude: -1.8039, Longitude: 37.6244},
	{ID: "taita-taveta", Name: "Taita Taveta", Latitude: -3.3161, Longitude: 38.4850},
	{ID: "kajiado", Name: "Kajiado", Latitude: -1.8523, Longitude: 36.7768},
}

// Options controls the generated window and density.
type Options struct {
	Regions []domain.Region // defaults to a fixed set of Kenyan counties
	Days    int             // trailing window length ending at End, inclusive
	End     time.Time       // last generated day; defaults to domain.Today()
	Seed    int64
}

// Dataset is a coherent bundle of observations for a set of regions.
type Dataset struct {
	Regions      []domain.Region
	NDVI         []domain.NDVIObservation
	SoilMoisture []domain.SoilMoistureObservation
	Weather      []domain.WeatherObservation
}

func rainySeason(month time.Month) bool {
	switch month {
	case time.March, time.April, time.May, time.October, time.November:
		return true
	default:
		return false
	}
}

// Generate produces a deterministic dataset for the given options. The
// same seed always yields the same observations.
func Generate(opts Options) Dataset {
	regions := opts.Regions
	if len(regions) == 0 {
		regions = defaultRegions
	}
	days := opts.Days
	if days <= 0 {
		days = 60
	}
	end := opts.End
	if end.IsZero() {
		end = domain.Today()
	}
	end = domain.DateOf(end)

	rng := rand.New(rand.NewSource(opts.Seed))

	ds := Dataset{Regions: regions}
	for _, region := range regions {
		for offset := days - 1; offset >= 0; offset-- {
			date := end.AddDate(0, 0, -offset)
			ds.NDVI = append(ds.NDVI, ndviFor(rng, region, date))
			ds.SoilMoisture = append(ds.SoilMoisture, soilFor(rng, region, date))
			ds.Weather = append(ds.Weather, weatherFor(rng, region, date))
		}
	}
	return ds
}

func ndviFor(rng *rand.Rand, region domain.Region, date time.Time) domain.NDVIObservation {
	base := 0.45
	factor := 0.8
	if rainySeason(date.Month()) {
		factor = 1.2
	}
	value := clamp(base*factor+uniform(rng, -0.15, 0.15), -1, 1)

	qualities := []string{"excellent", "good", "good", "fair"}
	return domain.NDVIObservation{
		RegionID:        region.ID,
		Date:            date,
		Value:           round3(value),
		SatelliteSource: "Landsat-8",
		CloudCoverPct:   round1(uniform(rng, 5, 30)),
		Quality:         qualities[rng.Intn(len(qualities))],
	}
}

func soilFor(rng *rand.Rand, region domain.Region, date time.Time) domain.SoilMoistureObservation {
	base := 35.0
	factor := 0.6
	if rainySeason(date.Month()) {
		factor = 1.5
	}
	moisture := clamp(base*factor+uniform(rng, -10, 10), 5, 80)

	return domain.SoilMoistureObservation{
		RegionID:        region.ID,
		Date:            date,
		MoisturePercent: round1(moisture),
		DepthCM:         10,
		Source:          "satellite",
	}
}

func weatherFor(rng *rand.Rand, region domain.Region, date time.Time) domain.WeatherObservation {
	avg := uniform(rng, 20, 32)

	// Rain falls on roughly 3 in 10 days, more often in season.
	rainChance := 0.15
	if rainySeason(date.Month()) {
		rainChance = 0.45
	}
	var precip float64
	if rng.Float64() < rainChance {
		precip = uniform(rng, 0.5, 25)
	}

	return domain.WeatherObservation{
		RegionID:             region.ID,
		Date:                 date,
		TemperatureMaxC:      round1(avg + uniform(rng, 2, 8)),
		TemperatureMinC:      round1(avg - uniform(rng, 3, 8)),
		TemperatureAvgC:      round1(avg),
		PrecipitationMM:      round1(precip),
		HumidityPercent:      float64(35 + rng.Intn(51)),
		WindSpeedKMH:         round1(uniform(rng, 5, 20)),
		EvapotranspirationMM: round1(uniform(rng, 2, 7)),
		Source:               "synthetic",
	}
}

// Seeder is the storage surface Load needs.
type Seeder interface {
	UpsertRegion(ctx context.Context, region domain.Region) error
	InsertNDVI(ctx context.Context, obs ...domain.NDVIObservation) error
	InsertSoilMoisture(ctx context.Context, obs ...domain.SoilMoistureObservation) error
	InsertWeather(ctx context.Context, obs ...domain.WeatherObservation) error
}

// Load writes a generated dataset into a store.
func Load(ctx context.Context, store Seeder, ds Dataset) error {
	for _, region := range ds.Regions {
		if err := store.UpsertRegion(ctx, region); err != nil {
			return fmt.Errorf("upsert region %s: %w", region.ID, err)
		}
	}
	if err := store.InsertNDVI(ctx, ds.NDVI...); err != nil {
		return fmt.Errorf("insert ndvi: %w", err)
	}
	if err := store.InsertSoilMoisture(ctx, ds.SoilMoisture...); err != nil {
		return fmt.Errorf("insert soil moisture: %w", err)
	}
	if err := store.InsertWeather(ctx, ds.Weather...); err != nil {
		return fmt.Errorf("insert weather: %w", err)
	}
	return nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
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

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func round3(v float64) float64 {
	if v < 0 {
		return float64(int(v*1000-0.5)) / 1000
	}
	return float64(int(v*1000+0.5)) / 1000
}
