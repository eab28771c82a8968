package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/teampulse/internal/progression"
	"github.com/HendryAvila/teampulse/internal/vibe"
)

// TeamHealth is one team's slot in a fleet evaluation. Error is set when
// the team could not be evaluated; the other fields are then empty.
type TeamHealth struct {
	TeamID   string                `json:"team_id"`
	Metrics  *vibe.TeamMetrics     `json:"metrics,omitempty"`
	Progress *progression.Progress `json:"progress,omitempty"`
	Signal   *TeamSignal           `json:"signal,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// EvaluateFleet computes metrics, progress and the combined signal for
// many teams concurrently. An empty teamIDs means every registered team.
// Results keep the input order. A failing team is reported in its own
// slot and never cancels the others; only ctx cancellation or a failure
// to list teams aborts the run.
func (e *Engine) EvaluateFleet(ctx context.Context, teamIDs []string) ([]TeamHealth, error) {
	start := time.Now()
	defer func() { e.metrics.FleetDuration(time.Since(start)) }()

	if len(teamIDs) == 0 {
		teams, err := e.store.ListTeams(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range teams {
			teamIDs = append(teamIDs, t.ID)
		}
	}

	out := make([]TeamHealth, len(teamIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range teamIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = e.teamHealth(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) teamHealth(ctx context.Context, teamID string) TeamHealth {
	h := TeamHealth{TeamID: teamID}
	fail := func(err error) TeamHealth {
		e.metrics.FleetFailure()
		e.log.Warn("fleet evaluation failed", zap.String("team", teamID), zap.Error(err))
		return TeamHealth{TeamID: teamID, Error: err.Error()}
	}

	m, err := e.ComputeVibeMetrics(ctx, teamID, DefaultWindowDays)
	if err != nil {
		return fail(err)
	}
	prog, err := e.EvaluateLevelProgress(ctx, teamID)
	if err != nil {
		return fail(err)
	}
	wowScore, err := e.latestWoWScore(ctx, teamID)
	if err != nil {
		return fail(err)
	}
	h.Metrics = m
	h.Progress = prog
	h.Signal = &TeamSignal{
		TeamID:   teamID,
		Vibe:     m.WeekVibe.Value,
		WoW:      wowScore,
		Combined: e.CombineSignal(m.WeekVibe.Value, wowScore),
	}
	return h
}
