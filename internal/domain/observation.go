package domain

import (
	"fmt"
	"time"
)

// Region is an administrative area the engine scores.
type Region struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NDVIObservation is one satellite vegetation-index reading for a region/date.
type NDVIObservation struct {
	RegionID         string    `json:"region_id"`
	Date             time.Time `json:"date"`
	Value            float64   `json:"ndvi_value"` // [-1, 1], higher is healthier
	SatelliteSource  string    `json:"satellite_source,omitempty"`
	CloudCoverPct    float64   `json:"cloud_cover_percent,omitempty"`
	Quality          string    `json:"data_quality,omitempty"` // excellent | good | fair | poor
}

// VegetationHealth categorizes vegetation condition from the NDVI value.
func (o NDVIObservation) VegetationHealth() string {
	switch {
	case o.Value >= 0.6:
		return "healthy"
	case o.Value >= 0.4:
		return "moderate"
	case o.Value >= 0.2:
		return "stressed"
	default:
		return "severely_stressed"
	}
}

// Validate checks the NDVI reading against its physical range.
func (o NDVIObservation) Validate() error {
	if o.RegionID == "" {
		return ValidationError{Field: "region_id", Reason: "missing region"}
	}
	if o.Date.IsZero() {
		return ValidationError{Field: "date", Reason: "missing date"}
	}
	if o.Value < -1 || o.Value > 1 {
		return ValidationError{Field: "ndvi_value", Reason: fmt.Sprintf("%.3f outside [-1, 1]", o.Value)}
	}
	return nil
}

// SoilMoistureObservation is one soil-moisture reading for a region/date.
type SoilMoistureObservation struct {
	RegionID        string    `json:"region_id"`
	Date            time.Time `json:"date"`
	MoisturePercent float64   `json:"moisture_percent"` // [0, 100]
	DepthCM         int       `json:"soil_depth_cm,omitempty"`
	Source          string    `json:"data_source,omitempty"` // satellite | ground_sensor | model_estimate
}

// MoistureStatus categorizes the soil-moisture reading.
func (o SoilMoistureObservation) MoistureStatus() string {
	switch {
	case o.MoisturePercent >= 60:
		return "saturated"
	case o.MoisturePercent >= 40:
		return "adequate"
	case o.MoisturePercent >= 20:
		return "low"
	default:
		return "very_low"
	}
}

// Validate checks the moisture reading against its physical range.
func (o SoilMoistureObservation) Validate() error {
	if o.RegionID == "" {
		return ValidationError{Field: "region_id", Reason: "missing region"}
	}
	if o.Date.IsZero() {
		return ValidationError{Field: "date", Reason: "missing date"}
	}
	if o.MoisturePercent < 0 || o.MoisturePercent > 100 {
		return ValidationError{Field: "moisture_percent", Reason: fmt.Sprintf("%.1f outside [0, 100]", o.MoisturePercent)}
	}
	return nil
}

// WeatherObservation is one daily weather summary for a region/date.
type WeatherObservation struct {
	RegionID             string    `json:"region_id"`
	Date                 time.Time `json:"date"`
	TemperatureMaxC      float64   `json:"temperature_max"`
	TemperatureMinC      float64   `json:"temperature_min"`
	TemperatureAvgC      float64   `json:"temperature_avg"`
	PrecipitationMM      float64   `json:"precipitation_mm"`
	HumidityPercent      float64   `json:"humidity_percent"`
	WindSpeedKMH         float64   `json:"wind_speed_kmh"`
	EvapotranspirationMM float64   `json:"evapotranspiration_mm,omitempty"`
	Source               string    `json:"data_source,omitempty"`
}

// Validate checks the weather reading against its physical ranges.
func (o WeatherObservation) Validate() error {
	if o.RegionID == "" {
		return ValidationError{Field: "region_id", Reason: "missing region"}
	}
	if o.Date.IsZero() {
		return ValidationError{Field: "date", Reason: "missing date"}
	}
	if o.PrecipitationMM < 0 {
		return ValidationError{Field: "precipitation_mm", Reason: fmt.Sprintf("%.1f below 0", o.PrecipitationMM)}
	}
	if o.HumidityPercent < 0 || o.HumidityPercent > 100 {
		return ValidationError{Field: "humidity_percent", Reason: fmt.Sprintf("%.1f outside [0, 100]", o.HumidityPercent)}
	}
	if o.WindSpeedKMH < 0 {
		return ValidationError{Field: "wind_speed_kmh", Reason: fmt.Sprintf("%.1f below 0", o.WindSpeedKMH)}
	}
	return nil
}

// ValidationError reports a field that failed range or presence checks
// before any write was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}
