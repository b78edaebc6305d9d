package alert

import (
	"strconv"
	"strings"
	"time"

	"github.com/kilimoalert/drought-engine/internal/domain"
)

// smsMaxLength is the hard cap carriers enforce on a single SMS segment.
const smsMaxLength = 160

// Template holds the message bodies for one (alert type, severity) pair.
// Placeholders in curly braces are substituted at render time.
type Template struct {
	Title string
	Body  string
	SMS   string
}

type templateKey struct {
	alertType string
	severity  string
}

var builtinTemplates = map[templateKey]Template{
	{domain.AlertTypeDroughtWarning, domain.AlertSeverityCritical}: {
		Title: "CRITICAL Drought Warning - {region_name}",
		Body:  "CRITICAL DROUGHT WARNING for {region_name}. Risk Score: {risk_score}/100. Current risk level: {risk_level}. Immediate action required: {recommendations}. Assessment date: {assessment_date}.",
		SMS:   "CRITICAL DROUGHT WARNING {region_name}. Risk: {risk_score}/100. Take immediate action.",
	},
	{domain.AlertTypeDroughtWarning, domain.AlertSeverityHigh}: {
		Title: "HIGH Drought Warning - {region_name}",
		Body:  "HIGH DROUGHT WARNING for {region_name}. Risk Score: {risk_score}/100. Current risk level: {risk_level}. Recommended actions: {recommendations}. Assessment date: {assessment_date}.",
		SMS:   "HIGH DROUGHT WARNING {region_name}. Risk: {risk_score}/100. Take preventive action.",
	},
	{domain.AlertTypeWaterStress, domain.AlertSeverityModerate}: {
		Title: "Water Stress Alert - {region_name}",
		Body:  "WATER STRESS ALERT for {region_name}. Risk Score: {risk_score}/100. Current risk level: {risk_level}. Recommendations: {recommendations}. Assessment date: {assessment_date}.",
		SMS:   "WATER STRESS ALERT {region_name}. Risk: {risk_score}/100. Monitor conditions.",
	},
}

// templateFor returns the builtin template for the pair, falling back to
// the water stress template for unknown combinations.
func templateFor(alertType, severity string) Template {
	if t, ok := builtinTemplates[templateKey{alertType, severity}]; ok {
		return t
	}
	return builtinTemplates[templateKey{domain.AlertTypeWaterStress, domain.AlertSeverityModerate}]
}

// Render fills the template from an assessment. The SMS body is truncated
// to a single segment.
func (t Template) Render(regionName string, a domain.Assessment) (title, body, sms string) {
	values := map[string]string{
		"{region_name}":     regionName,
		"{risk_score}":      strconv.FormatFloat(a.RiskScore, 'f', 1, 64),
		"{risk_level}":      string(a.RiskLevel),
		"{recommendations}": a.RecommendedActions,
		"{assessment_date}": a.Date.Format(time.DateOnly),
	}
	title = substitute(t.Title, values)
	body = substitute(t.Body, values)
	sms = substitute(t.SMS, values)
	if len(sms) > smsMaxLength {
		sms = sms[:smsMaxLength]
	}
	return title, body, sms
}

func substitute(s string, values map[string]string) string {
	for placeholder, value := range values {
		s = strings.ReplaceAll(s, placeholder, value)
	}
	return s
}
