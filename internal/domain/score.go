package domain

import "errors"

// Component identifies one of the three sub-risk scorers.
type Component string

const (
	ComponentWeather Component = "weather"
	ComponentNDVI    Component = "ndvi"
	ComponentSoil    Component = "soil"
)

// Base aggregation weights, renormalized over whichever components have data.
var componentWeights = map[Component]float64{
	ComponentWeather: 0.4,
	ComponentNDVI:    0.3,
	ComponentSoil:    0.3,
}

// Trailing windows each scorer reads, counted in most-recent readings.
const (
	weatherScoreWindow = 14
	ndviScoreWindow    = 5
	soilScoreWindow    = 7
)

// ErrNoValidScores is returned by AggregateRisk when no component has
// data. Callers must treat it as "insufficient data", never as zero risk.
var ErrNoValidScores = errors.New("no valid component scores")

// WeatherScore maps the trailing 14 days of weather to a 0-100 drought
// risk score. Hotter, drier, and less humid all push the score up:
// temperature term clamp((avgTemp-20)*2.5) weighted 0.4, precipitation
// term clamp(100-2*total) weighted 0.4, humidity term clamp(100-avg)
// weighted 0.2. Returns ok=false when the slice is empty.
func WeatherScore(obs []WeatherObservation) (float64, bool) {
	recent := trailing(obs, weatherScoreWindow)
	if len(recent) == 0 {
		return 0, false
	}

	var tempSum, precipTotal, humiditySum float64
	for _, o := range recent {
		tempSum += o.TemperatureAvgC
		precipTotal += o.PrecipitationMM
		humiditySum += o.HumidityPercent
	}
	n := float64(len(recent))
	avgTemp := tempSum / n
	avgHumidity := humiditySum / n

	tempScore := clamp((avgTemp-20)*2.5, 0, 100)
	precipScore := clamp(100-precipTotal*2, 0, 100)
	humidityScore := clamp(100-avgHumidity, 0, 100)

	return clamp(tempScore*0.4+precipScore*0.4+humidityScore*0.2, 0, 100), true
}

// NDVIScore maps the trailing 5 NDVI readings to a 0-100 drought risk
// score, monotonic non-increasing in average NDVI: healthy vegetation
// (>=0.6) scores clamp((0.8-ndvi)*200), moderate (0.4-0.6) scores
// 40+(0.6-ndvi)*300, anything below 0.4 is maximum risk. Returns
// ok=false when the slice is empty.
func NDVIScore(obs []NDVIObservation) (float64, bool) {
	recent := trailing(obs, ndviScoreWindow)
	if len(recent) == 0 {
		return 0, false
	}

	var sum float64
	for _, o := range recent {
		sum += o.Value
	}
	avg := sum / float64(len(recent))

	var score float64
	switch {
	case avg >= 0.6:
		score = clamp((0.8-avg)*200, 0, 100)
	case avg >= 0.4:
		score = 40 + (0.6-avg)*300
	default:
		score = 100
	}
	return clamp(score, 0, 100), true
}

// SoilMoistureScore maps the trailing 7 soil-moisture readings to a
// banded 0-100 drought risk score: saturated (>=60%) 10, adequate
// (>=40%) 30, low (>=20%) 70, else 90. Returns ok=false when the slice
// is empty.
func SoilMoistureScore(obs []SoilMoistureObservation) (float64, bool) {
	recent := trailing(obs, soilScoreWindow)
	if len(recent) == 0 {
		return 0, false
	}

	var sum float64
	for _, o := range recent {
		sum += o.MoisturePercent
	}
	avg := sum / float64(len(recent))

	switch {
	case avg >= 60:
		return 10, true
	case avg >= 40:
		return 30, true
	case avg >= 20:
		return 70, true
	default:
		return 90, true
	}
}

// AggregateRisk combines the present component scores into one overall
// score. Base weights (weather 0.4, ndvi 0.3, soil 0.3) are renormalized
// over the supplied components so they sum to 1; the result is their
// weighted average and therefore always lies between the min and max of
// the inputs. Fails with ErrNoValidScores when the map is empty.
func AggregateRisk(scores map[Component]float64) (float64, error) {
	if len(scores) == 0 {
		return 0, ErrNoValidScores
	}

	var totalWeight float64
	for component := range scores {
		totalWeight += componentWeights[component]
	}
	if totalWeight == 0 {
		return 0, ErrNoValidScores
	}

	var overall float64
	for component, score := range scores {
		overall += score * (componentWeights[component] / totalWeight)
	}
	return clamp(overall, 0, 100), nil
}

// BaselineRisk is the deterministic rule-based risk score used both to
// bootstrap training labels and as the prediction fallback. It is a pure
// function of one day's indicator values with fixed thresholds,
// independent of the live aggregation weights: NDVI banded (x0.40),
// soil moisture banded (x0.35), additive weather terms (x0.25).
func BaselineRisk(ndviValue, moisturePercent float64, weather WeatherObservation) float64 {
	var ndviScore float64
	switch {
	case ndviValue < 0.2:
		ndviScore = 90
	case ndviValue < 0.3:
		ndviScore = 70
	case ndviValue < 0.5:
		ndviScore = 50
	case ndviValue < 0.7:
		ndviScore = 30
	default:
		ndviScore = 10
	}

	var moistureScore float64
	switch {
	case moisturePercent < 20:
		moistureScore = 95
	case moisturePercent < 30:
		moistureScore = 80
	case moisturePercent < 40:
		moistureScore = 60
	case moisturePercent < 50:
		moistureScore = 40
	default:
		moistureScore = 20
	}

	var weatherScore float64
	switch {
	case weather.PrecipitationMM < 1:
		weatherScore += 30
	case weather.PrecipitationMM < 5:
		weatherScore += 20
	default:
		weatherScore += 5
	}
	switch {
	case weather.TemperatureAvgC > 35:
		weatherScore += 25
	case weather.TemperatureAvgC > 30:
		weatherScore += 15
	default:
		weatherScore += 5
	}
	switch {
	case weather.HumidityPercent < 40:
		weatherScore += 20
	case weather.HumidityPercent < 60:
		weatherScore += 10
	}

	return clamp(ndviScore*0.4+moistureScore*0.35+weatherScore*0.25, 0, 100)
}

// trailing returns the last n elements of a date-ascending slice.
func trailing[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
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
