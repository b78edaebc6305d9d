package engine

import (
	"context"
	"errors"
	"time"
)

// BatchResult summarizes one AssessAll pass.
type BatchResult struct {
	Assessed int
	Skipped  int
	Failed   map[string]error
}

// AssessAll runs AssessIfAbsent for every region. Regions that already
// have an assessment for the date are skipped. A failing region is
// retried with increasing delay and then recorded in Failed; one bad
// region never aborts the pass.
func (e *Engine) AssessAll(ctx context.Context, date time.Time) (BatchResult, error) {
	regions, err := e.store.Regions(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Failed: make(map[string]error)}
	for _, region := range regions {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		created, err := e.assessWithRetry(ctx, region.ID, date)
		switch {
		case err != nil:
			e.logger.Error("region assessment failed", "region", region.ID, "error", err)
			e.metrics.AssessmentErrors.Inc()
			result.Failed[region.ID] = err
		case created:
			result.Assessed++
		default:
			result.Skipped++
		}
	}

	e.logger.Info("batch assessment finished",
		"date", date.Format(time.DateOnly),
		"assessed", result.Assessed,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
	)
	return result, nil
}

// assessWithRetry retries transient failures with a growing delay.
// Insufficient data is not transient and fails immediately.
func (e *Engine) assessWithRetry(ctx context.Context, regionID string, date time.Time) (bool, error) {
	var lastErr error
	delay := e.retryDelay
	for attempt := 1; attempt <= e.retryAttempts; attempt++ {
		_, created, err := e.AssessIfAbsent(ctx, regionID, date)
		if err == nil {
			return created, nil
		}
		if isPermanent(err) || ctx.Err() != nil {
			return false, err
		}
		lastErr = err
		e.logger.Warn("assessment attempt failed, retrying",
			"region", regionID, "attempt", attempt, "error", err)
		if attempt < e.retryAttempts {
			if !sleepWithContext(ctx, delay) {
				return false, ctx.Err()
			}
			delay *= 2
		}
	}
	return false, lastErr
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
