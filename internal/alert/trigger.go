// Package alert scans recent assessments and raises notifications for
// regions whose risk crossed the alerting threshold. Each assessment
// triggers at most one active alert.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kilimoalert/drought-engine/internal/domain"
	"github.com/kilimoalert/drought-engine/internal/observability"
)

// DefaultThreshold is the minimum risk score that can raise an alert.
const DefaultThreshold = 50.0

// Store is the persistence the trigger needs.
type Store interface {
	RecentAboveScore(ctx context.Context, since time.Time, minScore float64) ([]domain.Assessment, error)
	Region(ctx context.Context, id string) (domain.Region, error)
	HasActiveAlert(ctx context.Context, regionID string, assessmentID int64) (bool, error)
	InsertAlert(ctx context.Context, alert domain.Alert) error
}

// Dispatcher hands a created alert to the delivery channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert domain.Alert) error
}

// Result summarizes one trigger pass.
type Result struct {
	Triggered  int
	Suppressed int // active alert already covered the assessment
	Skipped    int // cleared the threshold but sits below the lowest severity band
	Failed     map[string]error
	Alerts     []domain.Alert
}

// Trigger evaluates assessments against the alerting policy.
type Trigger struct {
	store      Store
	dispatcher Dispatcher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func NewTrigger(store Store, dispatcher Dispatcher, logger *slog.Logger, metrics *observability.Metrics) *Trigger {
	return &Trigger{store: store, dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// Run scans assessments dated since or later whose score meets the
// threshold. dryRun evaluates the policy and reports what would fire
// without persisting or dispatching anything.
func (t *Trigger) Run(ctx context.Context, since time.Time, threshold float64, dryRun bool) (Result, error) {
	assessments, err := t.store.RecentAboveScore(ctx, since, threshold)
	if err != nil {
		return Result{}, fmt.Errorf("loading assessments: %w", err)
	}

	result := Result{Failed: make(map[string]error)}
	for _, a := range assessments {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		severity, alertType, priority, ok := classify(a.RiskScore)
		if !ok {
			// Above a low custom threshold but below the lowest band.
			result.Skipped++
			continue
		}

		covered, err := t.store.HasActiveAlert(ctx, a.RegionID, a.ID)
		if err != nil {
			result.Failed[a.RegionID] = err
			continue
		}
		if covered {
			t.metrics.AlertsSuppressed.Inc()
			result.Suppressed++
			t.logger.Debug("alert suppressed, already active",
				"region", a.RegionID, "assessment_id", a.ID)
			continue
		}

		region, err := t.store.Region(ctx, a.RegionID)
		if err != nil {
			result.Failed[a.RegionID] = fmt.Errorf("loading region: %w", err)
			continue
		}

		title, body, sms := templateFor(alertType, severity).Render(region.Name, a)
		created := domain.Alert{
			ID:           uuid.NewString(),
			RegionID:     a.RegionID,
			AssessmentID: a.ID,
			Type:         alertType,
			Severity:     severity,
			Priority:     priority,
			Title:        title,
			Message:      body,
			SMSMessage:   sms,
			Active:       true,
			CreatedAt:    domain.Now(),
		}

		if dryRun {
			result.Triggered++
			result.Alerts = append(result.Alerts, created)
			continue
		}

		if err := t.store.InsertAlert(ctx, created); err != nil {
			result.Failed[a.RegionID] = fmt.Errorf("storing alert: %w", err)
			continue
		}
		if err := t.dispatcher.Dispatch(ctx, created); err != nil {
			// The alert row exists; delivery is retried out of band.
			t.metrics.AlertDispatchErrors.Inc()
			t.logger.Error("alert dispatch failed", "alert_id", created.ID, "error", err)
		}

		t.metrics.AlertsTriggered.WithLabelValues(severity).Inc()
		result.Triggered++
		result.Alerts = append(result.Alerts, created)
		t.logger.Info("alert triggered",
			"region", region.Name,
			"severity", severity,
			"risk_score", a.RiskScore,
			"alert_id", created.ID,
		)
	}

	t.logger.Info("alert pass finished",
		"since", since.Format(time.DateOnly),
		"triggered", result.Triggered,
		"suppressed", result.Suppressed,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
		"dry_run", dryRun,
	)
	return result, nil
}

// classify maps a risk score to its alert band. Scores below the moderate
// band never alert regardless of the configured threshold.
func classify(score float64) (severity, alertType, priority string, ok bool) {
	switch {
	case score >= 80:
		return domain.AlertSeverityCritical, domain.AlertTypeDroughtWarning, domain.AlertPriorityUrgent, true
	case score >= 65:
		return domain.AlertSeverityHigh, domain.AlertTypeDroughtWarning, domain.AlertPriorityUrgent, true
	case score >= 50:
		return domain.AlertSeverityModerate, domain.AlertTypeWaterStress, domain.AlertPriorityHigh, true
	default:
		return "", "", "", false
	}
}
