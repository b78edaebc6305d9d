package domain

import "time"

// Alert types distinguish the two escalation tracks: drought_warning for
// severe conditions, water_stress for early-stage moisture deficits.
const (
	AlertTypeDroughtWarning = "drought_warning"
	AlertTypeWaterStress    = "water_stress"
)

// Alert severities, highest first. These band on the risk score separately
// from risk levels so messaging stays coarse.
const (
	AlertSeverityCritical = "critical"
	AlertSeverityHigh     = "high"
	AlertSeverityModerate = "moderate"
)

// Alert priorities used by downstream dispatch.
const (
	AlertPriorityUrgent = "urgent"
	AlertPriorityHigh   = "high"
)

// Alert is one triggered notification tied to the assessment that caused
// it. At most one active alert exists per region and assessment.
type Alert struct {
	ID           string
	RegionID     string
	AssessmentID int64
	Type         string
	Severity     string
	Priority     string
	Title        string
	Message      string
	SMSMessage   string
	Active       bool
	CreatedAt    time.Time
}
