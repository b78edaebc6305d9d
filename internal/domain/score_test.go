package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weatherDays(base time.Time, days int, temp, precip, humidity float64) []WeatherObservation {
	obs := make([]WeatherObservation, 0, days)
	for i := days - 1; i >= 0; i-- {
		obs = append(obs, WeatherObservation{
			RegionID:        "machakos",
			Date:            base.AddDate(0, 0, -i),
			TemperatureAvgC: temp,
			PrecipitationMM: precip,
			HumidityPercent: humidity,
		})
	}
	return obs
}

func ndviDays(base time.Time, days int, value float64) []NDVIObservation {
	obs := make([]NDVIObservation, 0, days)
	for i := days - 1; i >= 0; i-- {
		obs = append(obs, NDVIObservation{RegionID: "machakos", Date: base.AddDate(0, 0, -i), Value: value})
	}
	return obs
}

func soilDays(base time.Time, days int, moisture float64) []SoilMoistureObservation {
	obs := make([]SoilMoistureObservation, 0, days)
	for i := days - 1; i >= 0; i-- {
		obs = append(obs, SoilMoistureObservation{RegionID: "machakos", Date: base.AddDate(0, 0, -i), MoisturePercent: moisture})
	}
	return obs
}

func TestWeatherScore(t *testing.T) {
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("no data", func(t *testing.T) {
		_, ok := WeatherScore(nil)
		assert.False(t, ok)
	})

	t.Run("hot dry fortnight scores high", func(t *testing.T) {
		score, ok := WeatherScore(weatherDays(base, 14, 38, 0, 20))
		require.True(t, ok)
		// temp clamp((38-20)*2.5)=45... capped at 45, precip 100, humidity 80
		assert.InDelta(t, 45*0.4+100*0.4+80*0.2, score, 0.001)
	})

	t.Run("known combination", func(t *testing.T) {
		// avg temp 25, total 14-day precip 20mm, humidity 60%:
		// 12.5*0.4 + 60*0.4 + 40*0.2 = 37
		obs := weatherDays(base, 14, 25, 20.0/14.0, 60)
		score, ok := WeatherScore(obs)
		require.True(t, ok)
		assert.InDelta(t, 37.0, score, 0.001)
	})

	t.Run("always within range", func(t *testing.T) {
		for _, temp := range []float64{-10, 0, 20, 45, 60} {
			for _, precip := range []float64{0, 5, 50} {
				score, ok := WeatherScore(weatherDays(base, 14, temp, precip, 50))
				require.True(t, ok)
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 100.0)
			}
		}
	})
}

func TestNDVIScore(t *testing.T) {
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("no data", func(t *testing.T) {
		_, ok := NDVIScore(nil)
		assert.False(t, ok)
	})

	tests := []struct {
		name  string
		ndvi  float64
		wantS float64
	}{
		{"healthy vegetation", 0.7, 20},          // (0.8-0.7)*200
		{"band boundary healthy", 0.6, 40},       // (0.8-0.6)*200
		{"moderate band", 0.5, 70},               // 40+(0.6-0.5)*300
		{"moderate band lower edge", 0.4, 100},   // 40+(0.6-0.4)*300
		{"stressed vegetation", 0.15, 100},       // below 0.4 band
		{"very lush clamps to zero", 0.95, 0},    // (0.8-0.95)*200 < 0
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := NDVIScore(ndviDays(base, 5, tt.ndvi))
			require.True(t, ok)
			assert.InDelta(t, tt.wantS, score, 0.001)
		})
	}

	t.Run("monotonic non-increasing in ndvi", func(t *testing.T) {
		prev := 101.0
		for v := -1.0; v <= 1.0; v += 0.01 {
			score, ok := NDVIScore(ndviDays(base, 5, v))
			require.True(t, ok)
			assert.LessOrEqual(t, score, prev, "ndvi=%.2f", v)
			prev = score
		}
	})

	t.Run("uses trailing five readings only", func(t *testing.T) {
		obs := append(ndviDays(base.AddDate(0, 0, -5), 5, 0.1), ndviDays(base, 5, 0.7)...)
		score, ok := NDVIScore(obs)
		require.True(t, ok)
		assert.InDelta(t, 20.0, score, 0.001)
	})
}

func TestSoilMoistureScore(t *testing.T) {
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("no data", func(t *testing.T) {
		_, ok := SoilMoistureScore(nil)
		assert.False(t, ok)
	})

	tests := []struct {
		moisture float64
		want     float64
	}{
		{75, 10}, {60, 10}, {50, 30}, {40, 30}, {30, 70}, {20, 70}, {10, 90},
	}
	for _, tt := range tests {
		score, ok := SoilMoistureScore(soilDays(base, 7, tt.moisture))
		require.True(t, ok)
		assert.Equal(t, tt.want, score, "moisture=%.0f", tt.moisture)
	}
}

func TestAggregateRisk(t *testing.T) {
	t.Run("empty input fails", func(t *testing.T) {
		_, err := AggregateRisk(nil)
		assert.ErrorIs(t, err, ErrNoValidScores)
	})

	t.Run("single component gets full weight", func(t *testing.T) {
		score, err := AggregateRisk(map[Component]float64{ComponentNDVI: 100})
		require.NoError(t, err)
		assert.Equal(t, 100.0, score)
	})

	t.Run("all components use base weights", func(t *testing.T) {
		score, err := AggregateRisk(map[Component]float64{
			ComponentWeather: 37,
			ComponentNDVI:    70,
			ComponentSoil:    30,
		})
		require.NoError(t, err)
		assert.InDelta(t, 0.4*37+0.3*70+0.3*30, score, 0.001)
	})

	t.Run("two components renormalize", func(t *testing.T) {
		score, err := AggregateRisk(map[Component]float64{
			ComponentNDVI: 60,
			ComponentSoil: 20,
		})
		require.NoError(t, err)
		// equal 0.3 weights renormalize to 0.5 each
		assert.InDelta(t, 40.0, score, 0.001)
	})

	t.Run("result bounded by min and max of inputs", func(t *testing.T) {
		cases := []map[Component]float64{
			{ComponentWeather: 10, ComponentNDVI: 90},
			{ComponentWeather: 55, ComponentSoil: 55},
			{ComponentNDVI: 0, ComponentSoil: 100, ComponentWeather: 50},
		}
		for _, scores := range cases {
			lo, hi := 100.0, 0.0
			for _, s := range scores {
				lo = min(lo, s)
				hi = max(hi, s)
			}
			got, err := AggregateRisk(scores)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, lo)
			assert.LessOrEqual(t, got, hi)
		}
	})
}

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskVeryLow},
		{19.9, RiskVeryLow},
		{20, RiskLow},
		{34.9, RiskLow},
		{35, RiskModerate},
		{49.9, RiskModerate},
		{50, RiskHigh},
		{64.9, RiskHigh},
		{65, RiskVeryHigh},
		{79.9, RiskVeryHigh},
		{80, RiskExtreme},
		{100, RiskExtreme},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelForScore(tt.score), "score=%.1f", tt.score)
	}

	t.Run("idempotent over stored scores", func(t *testing.T) {
		for s := 0.0; s <= 100.0; s += 0.5 {
			assert.Equal(t, RiskLevelForScore(s), RiskLevelForScore(s))
		}
	})
}

func TestBaselineRisk(t *testing.T) {
	t.Run("severe conditions near maximum", func(t *testing.T) {
		w := WeatherObservation{TemperatureAvgC: 38, PrecipitationMM: 0, HumidityPercent: 30}
		score := BaselineRisk(0.1, 10, w)
		// 90*0.4 + 95*0.35 + 75*0.25 = 88
		assert.InDelta(t, 88.0, score, 0.001)
	})

	t.Run("wet season conditions low", func(t *testing.T) {
		w := WeatherObservation{TemperatureAvgC: 22, PrecipitationMM: 12, HumidityPercent: 75}
		score := BaselineRisk(0.75, 65, w)
		// 10*0.4 + 20*0.35 + 10*0.25 = 13.5
		assert.InDelta(t, 13.5, score, 0.001)
	})

	t.Run("deterministic", func(t *testing.T) {
		w := WeatherObservation{TemperatureAvgC: 28, PrecipitationMM: 3, HumidityPercent: 50}
		assert.Equal(t, BaselineRisk(0.45, 35, w), BaselineRisk(0.45, 35, w))
	})
}

func TestRecommendations(t *testing.T) {
	t.Run("extreme tier includes critical actions", func(t *testing.T) {
		got := Recommendations(RiskExtreme, FeatureVector{DaysSinceLastRain: 3, SoilMoisturePercent: 50})
		assert.Contains(t, got, "CRITICAL")
		assert.NotContains(t, got, "Long dry period")
	})

	t.Run("feature triggers append", func(t *testing.T) {
		got := Recommendations(RiskModerate, FeatureVector{
			DaysSinceLastRain:   21,
			NDVITrend7Day:       -0.5,
			SoilMoisturePercent: 18,
		})
		assert.Contains(t, got, "Long dry period detected")
		assert.Contains(t, got, "Vegetation stress detected")
		assert.Contains(t, got, "Low soil moisture")
	})
}
