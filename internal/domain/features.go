package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LookbackDays is the default observation window feeding feature extraction.
const LookbackDays = 30

// significantRainMM is the daily precipitation threshold that resets the
// dry-spell counter.
const significantRainMM = 5.0

// FeatureVector is the fixed, ordered set of numeric features derived for
// one (region, date). Field order matches FeatureNames and Slice.
type FeatureVector struct {
	NDVIValue           float64 `json:"ndvi_value"`
	SoilMoisturePercent float64 `json:"soil_moisture_percent"`
	TemperatureAvg      float64 `json:"temperature_avg"`
	PrecipitationMM     float64 `json:"precipitation_mm"`
	HumidityPercent     float64 `json:"humidity_percent"`
	WindSpeedKMH        float64 `json:"wind_speed_kmh"`
	DaysSinceLastRain   float64 `json:"days_since_last_rain"`
	TempTrend7Day       float64 `json:"temp_trend_7day"`
	NDVITrend7Day       float64 `json:"ndvi_trend_7day"`
	MoistureTrend7Day   float64 `json:"moisture_trend_7day"`
	SeasonNumeric       float64 `json:"season_numeric"`
	RegionAridityIndex  float64 `json:"region_aridity_index"`
}

// FeatureNames returns the model feature names in vector order.
func FeatureNames() []string {
	return []string{
		"ndvi_value", "soil_moisture_percent", "temperature_avg",
		"precipitation_mm", "humidity_percent", "wind_speed_kmh",
		"days_since_last_rain", "temp_trend_7day", "ndvi_trend_7day",
		"moisture_trend_7day", "season_numeric", "region_aridity_index",
	}
}

// Slice returns the vector's values in the FeatureNames order.
func (f FeatureVector) Slice() []float64 {
	return []float64{
		f.NDVIValue, f.SoilMoisturePercent, f.TemperatureAvg,
		f.PrecipitationMM, f.HumidityPercent, f.WindSpeedKMH,
		f.DaysSinceLastRain, f.TempTrend7Day, f.NDVITrend7Day,
		f.MoistureTrend7Day, f.SeasonNumeric, f.RegionAridityIndex,
	}
}

// missingSameDayError marks a (region, date) where one of the three
// same-day observations needed for extraction is absent.
type missingSameDayError struct {
	kind string
	date time.Time
}

func (e missingSameDayError) Error() string {
	return fmt.Sprintf("no %s observation for %s", e.kind, e.date.Format("2006-01-02"))
}

// IsSameDayDataMissing reports whether err indicates an infeasible
// extraction caused by a missing same-day observation.
func IsSameDayDataMissing(err error) bool {
	var m missingSameDayError
	return errors.As(err, &m)
}

// ExtractFeatures builds the feature vector for a region and date from
// lookback windows of observations (ascending by date). The same-day
// NDVI, soil-moisture, and weather observations must all be present;
// missing historical points degrade trend and dry-spell fields to
// neutral values instead of failing.
func ExtractFeatures(region Region, date time.Time, ndvi []NDVIObservation, soil []SoilMoistureObservation, weather []WeatherObservation) (FeatureVector, error) {
	date = DateOf(date)

	ndviByDate := make(map[string]NDVIObservation, len(ndvi))
	for _, o := range ndvi {
		ndviByDate[dateKey(o.Date)] = o
	}
	soilByDate := make(map[string]SoilMoistureObservation, len(soil))
	for _, o := range soil {
		soilByDate[dateKey(o.Date)] = o
	}
	weatherByDate := make(map[string]WeatherObservation, len(weather))
	for _, o := range weather {
		weatherByDate[dateKey(o.Date)] = o
	}

	dayNDVI, ok := ndviByDate[dateKey(date)]
	if !ok {
		return FeatureVector{}, missingSameDayError{kind: "ndvi", date: date}
	}
	daySoil, ok := soilByDate[dateKey(date)]
	if !ok {
		return FeatureVector{}, missingSameDayError{kind: "soil moisture", date: date}
	}
	dayWeather, ok := weatherByDate[dateKey(date)]
	if !ok {
		return FeatureVector{}, missingSameDayError{kind: "weather", date: date}
	}

	return FeatureVector{
		NDVIValue:           dayNDVI.Value,
		SoilMoisturePercent: daySoil.MoisturePercent,
		TemperatureAvg:      dayWeather.TemperatureAvgC,
		PrecipitationMM:     dayWeather.PrecipitationMM,
		HumidityPercent:     dayWeather.HumidityPercent,
		WindSpeedKMH:        dayWeather.WindSpeedKMH,
		DaysSinceLastRain:   float64(DaysSinceLastRain(date, weatherByDate)),
		TempTrend7Day: trend7Day(date, func(k string) (float64, bool) {
			o, ok := weatherByDate[k]
			return o.TemperatureAvgC, ok
		}),
		NDVITrend7Day: trend7Day(date, func(k string) (float64, bool) {
			o, ok := ndviByDate[k]
			return o.Value, ok
		}),
		MoistureTrend7Day: trend7Day(date, func(k string) (float64, bool) {
			o, ok := soilByDate[k]
			return o.MoisturePercent, ok
		}),
		SeasonNumeric:      SeasonNumeric(date),
		RegionAridityIndex: AridityIndex(region.Name),
	}, nil
}

// DaysSinceLastRain walks backward from date looking for the first day
// with precipitation above 5mm. Days without an observation count toward
// the dry spell; the result is capped at 30.
func DaysSinceLastRain(date time.Time, weatherByDate map[string]WeatherObservation) int {
	days := 0
	current := date
	for i := 0; i < LookbackDays; i++ {
		if o, ok := weatherByDate[dateKey(current)]; ok && o.PrecipitationMM > significantRainMM {
			return days
		}
		days++
		current = current.AddDate(0, 0, -1)
	}
	return LookbackDays
}

// trend7Day computes the Pearson correlation between the chronological
// day index and the metric over the trailing 7 days with available data.
// Returns 0 with fewer than 2 points or zero variance.
func trend7Day(date time.Time, lookup func(key string) (float64, bool)) float64 {
	values := make([]float64, 0, 7)
	current := date
	for i := 0; i < 7; i++ {
		if v, ok := lookup(dateKey(current)); ok {
			values = append(values, v)
		}
		current = current.AddDate(0, 0, -1)
	}
	if len(values) < 2 {
		return 0
	}

	// values were collected newest-first; flip to chronological order.
	y := make([]float64, len(values))
	x := make([]float64, len(values))
	for i := range values {
		y[i] = values[len(values)-1-i]
		x[i] = float64(i)
	}
	if stat.Variance(y, nil) == 0 {
		return 0
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

// SeasonNumeric maps a date's position in the annual cycle to [0, 1].
func SeasonNumeric(date time.Time) float64 {
	doy := float64(date.YearDay())
	return math.Sin(2*math.Pi*doy/365.25)*0.5 + 0.5
}

// aridityByRegion approximates baseline dryness per county. Values come
// from Kenya Meteorological Department climate zone classifications;
// lower means drier.
var aridityByRegion = map[string]float64{
	"Nairobi":  0.3,
	"Kiambu":   0.5,
	"Machakos": 0.2,
	"Kitui":    0.1,
	"Makueni":  0.15,
	"Embu":     0.6,
	"Meru":     0.7,
	"Nyeri":    0.8,
}

// defaultAridityIndex is the semi-arid fallback for unmapped regions.
const defaultAridityIndex = 0.3

// AridityIndex returns the static aridity index for a region name.
func AridityIndex(regionName string) float64 {
	if v, ok := aridityByRegion[regionName]; ok {
		return v
	}
	return defaultAridityIndex
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
