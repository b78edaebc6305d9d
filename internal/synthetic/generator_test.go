package synthetic

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/storage"
)

func TestGenerateDeterministic(t *testing.T) {
	opts := Options{
		Days: 30,
		End:  time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC),
		Seed: 7,
	}

	first := Generate(opts)
	second := Generate(opts)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("same seed produced different data (-want +got):\n%s", diff)
	}
}

func TestGenerateShape(t *testing.T) {
	regions := []domain.Region{
		{ID: "machakos", Name: "Machakos", Latitude: -1.5177, Longitude: 37.2634},
		{ID: "kitui", Name: "Kitui", Latitude: -1.3683, Longitude: 38.0106},
	}
	end := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	ds := Generate(Options{Regions: regions, Days: 14, End: end, Seed: 1})

	require.Len(t, ds.NDVI, 28)
	require.Len(t, ds.SoilMoisture, 28)
	require.Len(t, ds.Weather, 28)

	// Per region the window runs from end-13 through end, ascending.
	first := ds.Weather[0]
	last := ds.Weather[13]
	assert.Equal(t, "machakos", first.RegionID)
	assert.Equal(t, end.AddDate(0, 0, -13), first.Date)
	assert.Equal(t, end, last.Date)

	for _, obs := range ds.NDVI {
		require.NoError(t, obs.Validate())
	}
	for _, obs := range ds.SoilMoisture {
		require.NoError(t, obs.Validate())
	}
	for _, obs := range ds.Weather {
		require.NoError(t, obs.Validate())
	}
}

func TestGenerateSeasonality(t *testing.T) {
	regions := []domain.Region{{ID: "kitui", Name: "Kitui"}}

	rainy := Generate(Options{
		Regions: regions,
		Days:    30,
		End:     time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		Seed:    3,
	})
	dry := Generate(Options{
		Regions: regions,
		Days:    30,
		End:     time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		Seed:    3,
	})

	assert.Greater(t, meanSoil(rainy), meanSoil(dry),
		"rainy season should hold more soil moisture")
	assert.Greater(t, totalPrecip(rainy), totalPrecip(dry),
		"rainy season should accumulate more rainfall")
	assert.Greater(t, meanNDVI(rainy), meanNDVI(dry),
		"vegetation should green up during the rains")
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	ds := Generate(Options{
		Days: 10,
		End:  time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Seed: 7,
	})
	require.NoError(t, Load(ctx, store, ds))

	regions, err := store.Regions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, len(defaultRegions))

	weather, err := store.WeatherRange(ctx, "machakos",
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, weather, 10)
}

func meanSoil(ds Dataset) float64 {
	var sum float64
	for _, obs := range ds.SoilMoisture {
		sum += obs.MoisturePercent
	}
	return sum / float64(len(ds.SoilMoisture))
}

func totalPrecip(ds Dataset) float64 {
	var sum float64
	for _, obs := range ds.Weather {
		sum += obs.PrecipitationMM
	}
	return sum
}

func meanNDVI(ds Dataset) float64 {
	var sum float64
	for _, obs := range ds.NDVI {
		sum += obs.Value
	}
	return sum / float64(len(ds.NDVI))
}
