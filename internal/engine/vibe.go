package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/cache"
	"github.com/HendryAvila/teampulse/internal/telemetry"
	"github.com/HendryAvila/teampulse/internal/vibe"
)

// RecordCheckin stores one anonymous mood score for day (UTC calendar
// date). A zero day means today.
func (e *Engine) RecordCheckin(ctx context.Context, teamID, deviceID string, score int, day time.Time) error {
	if day.IsZero() {
		day = timeNow()
	}
	c := vibe.Checkin{TeamID: teamID, DeviceID: deviceID, Score: score, Day: vibe.DayOf(day)}
	if err := c.Validate(); err != nil {
		return err
	}
	if err := e.store.AddCheckin(ctx, c); err != nil {
		if errors.Is(err, vibe.ErrDuplicateCheckin) {
			e.metrics.DuplicateRejected(telemetry.KindCheckin)
			e.log.Info("duplicate check-in rejected", zap.String("team", teamID))
		}
		return err
	}
	e.log.Debug("check-in accepted", zap.String("team", teamID), zap.String("day", c.Day.Format(vibe.DateLayout)))
	return nil
}

// ComputeVibeMetrics computes the team's vibe snapshot for today over the
// trailing windowDays. windowDays <= 0 means DefaultWindowDays; other values
// are clamped to [MinWindowDays, MaxWindowDays].
func (e *Engine) ComputeVibeMetrics(ctx context.Context, teamID string, windowDays int) (*vibe.TeamMetrics, error) {
	t, err := e.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	window := clampWindow(windowDays)
	today := vibe.DayOf(timeNow())
	rows, err := e.store.DailyAggregates(ctx, teamID, today.AddDate(0, 0, -(window-1)), today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("engine: vibe metrics for %s: %w", teamID, err)
	}

	fp := metricsFingerprint{
		TeamID:   teamID,
		Today:    today.Format(vibe.DateLayout),
		Window:   window,
		TeamSize: t.ExpectedTeamSize,
		Rows:     rows,
	}
	m := lookup(e, e.metricsCache, cache.MetricsDomain, fp, func() vibe.TeamMetrics {
		return vibe.Compute(rows, today, t.ExpectedTeamSize, e.vibePolicy)
	})
	return &m, nil
}

func clampWindow(days int) int {
	if days <= 0 {
		return DefaultWindowDays
	}
	return min(max(days, MinWindowDays), MaxWindowDays)
}

// effectiveTeamSize is the expected size or, when unknown, vibe.TeamSize
// over the default window, the same rule ComputeVibeMetrics applies.
func (e *Engine) effectiveTeamSize(ctx context.Context, teamID string, expected int) (int, error) {
	if expected > 0 {
		return expected, nil
	}
	today := vibe.DayOf(timeNow())
	rows, err := e.store.DailyAggregates(ctx, teamID, today.AddDate(0, 0, -(DefaultWindowDays-1)), today.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	return vibe.TeamSize(0, rows), nil
}
