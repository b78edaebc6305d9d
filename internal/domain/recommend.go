package domain

import "strings"

// Tier boilerplate action lists, ordered highest risk first.
var tierActions = map[RiskLevel][]string{
	RiskExtreme: {
		"CRITICAL: Implement emergency water conservation measures",
		"Consider livestock destocking to reduce pressure on grazing lands",
		"Activate community drought response plans",
		"Coordinate with disaster management authorities",
	},
	RiskVeryHigh: {
		"HIGH RISK: Intensify water conservation practices",
		"Monitor livestock and crop conditions closely",
		"Prepare contingency plans for water and feed supplies",
		"Consider early harvesting of mature crops",
	},
	RiskHigh: {
		"MODERATE RISK: Begin water conservation measures",
		"Monitor weather forecasts closely",
		"Check irrigation systems and water storage",
		"Prepare drought-resistant crop varieties for next season",
	},
	RiskModerate: {
		"Monitor water levels and usage",
		"Prepare drought contingency plans",
		"Consider drought-resistant crop varieties for next season",
	},
	RiskLow: {
		"Continue normal agricultural activities",
		"Monitor weather conditions regularly",
	},
	RiskVeryLow: {
		"No immediate drought concerns",
		"Maintain regular monitoring",
	},
}

// Feature thresholds that append indicator-specific guidance.
const (
	drySpellAlertDays   = 14
	ndviDeclineAlert    = -0.3
	lowMoistureAlertPct = 25
)

// Recommendations renders the free-text action list for an assessment:
// tier boilerplate first, then feature-triggered additions when the dry
// spell, vegetation trend, or soil moisture cross their thresholds.
func Recommendations(level RiskLevel, features FeatureVector) string {
	actions := make([]string, 0, 8)
	actions = append(actions, tierActions[level]...)

	if features.DaysSinceLastRain > drySpellAlertDays {
		actions = append(actions, "Long dry period detected - prioritize irrigation")
	}
	if features.NDVITrend7Day < ndviDeclineAlert {
		actions = append(actions, "Vegetation stress detected - monitor crop health")
	}
	if features.SoilMoisturePercent < lowMoistureAlertPct {
		actions = append(actions, "Low soil moisture - consider supplemental irrigation")
	}

	return strings.Join(actions, "; ")
}
