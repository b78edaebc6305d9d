package domain

import (
	"fmt"
	"time"
)

// RiskLevel is the categorical drought-risk tier derived from a risk score.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
	RiskExtreme  RiskLevel = "extreme"
)

// RiskLevelForScore maps a 0-100 risk score to its tier. The bands are
// fixed and non-overlapping; the highest matching threshold wins. Every
// place that derives a tier from a score goes through this function.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskExtreme
	case score >= 65:
		return RiskVeryHigh
	case score >= 50:
		return RiskHigh
	case score >= 35:
		return RiskModerate
	case score >= 20:
		return RiskLow
	default:
		return RiskVeryLow
	}
}

// Assessment is the persisted drought-risk record for one (region, date).
// Exactly one row exists per key; writes go through an atomic upsert.
type Assessment struct {
	ID       int64     `json:"id,omitempty"`
	RegionID string    `json:"region_id"`
	Date     time.Time `json:"assessment_date"`

	RiskScore float64   `json:"risk_score"` // [0, 100]
	RiskLevel RiskLevel `json:"risk_level"` // always derived from RiskScore

	NDVIComponent         float64 `json:"ndvi_component_score"`
	SoilMoistureComponent float64 `json:"soil_moisture_component_score"`
	WeatherComponent      float64 `json:"weather_component_score"`

	PredictedRisk7Day  *float64 `json:"predicted_risk_7_days,omitempty"`
	PredictedRisk30Day *float64 `json:"predicted_risk_30_days,omitempty"`

	ConfidenceScore    float64   `json:"confidence_score"` // [0, 1]
	RecommendedActions string    `json:"recommended_actions,omitempty"`
	ModelVersion       string    `json:"model_version"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
}

// Normalize recomputes the risk level from the score. Callers run it
// before every write so a stored tier can never drift from its score.
func (a *Assessment) Normalize() {
	a.RiskLevel = RiskLevelForScore(a.RiskScore)
}

// Validate rejects out-of-range scores and missing keys before a write.
func (a Assessment) Validate() error {
	if a.RegionID == "" {
		return ValidationError{Field: "region_id", Reason: "missing region"}
	}
	if a.Date.IsZero() {
		return ValidationError{Field: "assessment_date", Reason: "missing date"}
	}
	if a.RiskScore < 0 || a.RiskScore > 100 {
		return ValidationError{Field: "risk_score", Reason: fmt.Sprintf("%.2f outside [0, 100]", a.RiskScore)}
	}
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"ndvi_component_score", a.NDVIComponent},
		{"soil_moisture_component_score", a.SoilMoistureComponent},
		{"weather_component_score", a.WeatherComponent},
	} {
		if c.value < 0 || c.value > 100 {
			return ValidationError{Field: c.name, Reason: fmt.Sprintf("%.2f outside [0, 100]", c.value)}
		}
	}
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"predicted_risk_7_days", a.PredictedRisk7Day},
		{"predicted_risk_30_days", a.PredictedRisk30Day},
	} {
		if p.value != nil && (*p.value < 0 || *p.value > 100) {
			return ValidationError{Field: p.name, Reason: fmt.Sprintf("%.2f outside [0, 100]", *p.value)}
		}
	}
	if a.ConfidenceScore < 0 || a.ConfidenceScore > 1 {
		return ValidationError{Field: "confidence_score", Reason: fmt.Sprintf("%.2f outside [0, 1]", a.ConfidenceScore)}
	}
	if a.RiskLevel != RiskLevelForScore(a.RiskScore) {
		return ValidationError{Field: "risk_level", Reason: "does not match risk_score band"}
	}
	return nil
}
