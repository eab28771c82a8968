package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/progression"
	"github.com/HendryAvila/teampulse/internal/team"
	"github.com/HendryAvila/teampulse/internal/wow"
)

// RegisterTeam creates a team or updates its name and expected size.
func (e *Engine) RegisterTeam(ctx context.Context, t team.Team) (*team.Team, error) {
	out, err := e.store.UpsertTeam(ctx, t)
	if err != nil {
		return nil, err
	}
	e.log.Info("team registered", zap.String("team", out.ID), zap.Int("expected_size", out.ExpectedTeamSize))
	return out, nil
}

// Team returns a team record.
func (e *Engine) Team(ctx context.Context, teamID string) (*team.Team, error) {
	return e.store.Team(ctx, teamID)
}

// PlanChange reports the effect of a billing plan change.
type PlanChange struct {
	Team          team.Team `json:"team"`
	PreviousLevel wow.Level `json:"previous_level"`
	LevelReset    bool      `json:"level_reset"`
}

// ChangePlan records a new billing plan. Moving to free resets ha and ri
// teams to shu unconditionally; plan and level are written together.
func (e *Engine) ChangePlan(ctx context.Context, teamID string, plan team.Plan) (*PlanChange, error) {
	if err := team.ValidatePlan(plan); err != nil {
		return nil, err
	}
	var (
		prev  wow.Level
		reset bool
	)
	updated, err := e.store.UpdateTeam(ctx, teamID, func(t *team.Team) error {
		prev = t.Level
		t.Plan = plan
		t.Level, reset = progression.ResetForPlan(t.Level, plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reset {
		e.log.Info("level reset by plan change",
			zap.String("team", teamID),
			zap.String("from", string(prev)),
			zap.String("to", string(updated.Level)),
			zap.String("plan", string(plan)))
	}
	return &PlanChange{Team: *updated, PreviousLevel: prev, LevelReset: reset}, nil
}

// EvaluateLevelProgress measures the team's scored, closed sessions
// against the requirements of its next level. It never writes.
func (e *Engine) EvaluateLevelProgress(ctx context.Context, teamID string) (*progression.Progress, error) {
	t, err := e.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	history, err := e.sessionHistory(ctx, teamID)
	if err != nil {
		return nil, err
	}
	p := progression.Evaluate(t.Level, history, timeNow(), e.progPolicy)
	return &p, nil
}

// PromoteTeam advances the team one level when every requirement holds
// and its plan allows the target level. The free plan holds shu only, so a
// free team fails with progression.ErrPlanLimit even when eligible.
//
// The write re-reads plan and level: a plan change or promotion committed
// since the evaluation fails the call instead of being overwritten.
func (e *Engine) PromoteTeam(ctx context.Context, teamID string) (*team.Team, *progression.Progress, error) {
	t, err := e.store.Team(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	history, err := e.sessionHistory(ctx, teamID)
	if err != nil {
		return nil, nil, err
	}
	prog := progression.Evaluate(t.Level, history, timeNow(), e.progPolicy)
	next, err := progression.Promote(t.Level, prog)
	if err != nil {
		return nil, &prog, err
	}

	promoted, err := e.store.UpdateTeam(ctx, teamID, func(cur *team.Team) error {
		if cur.Level != t.Level {
			return fmt.Errorf("%w: team level changed to %s during promotion", wow.ErrInvalidTransition, cur.Level)
		}
		if err := progression.CheckPlan(next, cur.Plan); err != nil {
			return err
		}
		cur.Level = next
		return nil
	})
	if err != nil {
		return nil, &prog, err
	}
	e.log.Info("team promoted",
		zap.String("team", teamID),
		zap.String("from", string(t.Level)),
		zap.String("to", string(next)))
	return promoted, &prog, nil
}

// sessionHistory converts scored closed sessions to progression records.
// Sessions closed below the response minimum carry no score and are
// skipped.
func (e *Engine) sessionHistory(ctx context.Context, teamID string) ([]progression.SessionRecord, error) {
	closed, err := e.store.ClosedSessions(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("engine: sessions of %s: %w", teamID, err)
	}
	var out []progression.SessionRecord
	for _, s := range closed {
		if !s.Scored() {
			continue
		}
		closedAt, err := time.Parse(time.RFC3339, s.ClosedAt)
		if err != nil {
			e.log.Warn("skipping session with unreadable close time",
				zap.String("session", s.ID), zap.String("closed_at", s.ClosedAt))
			continue
		}
		out = append(out, progression.SessionRecord{
			ID:                s.ID,
			ClosedAt:          closedAt,
			Angle:             s.Angle,
			Score:             *s.OverallScore,
			ParticipationRate: s.ParticipationRate,
			HasFollowup:       s.HasFollowup(),
		})
	}
	return out, nil
}
