package engine

import (
	"context"

	"github.com/HendryAvila/teampulse/internal/signal"
)

// TeamSignal is the combined dashboard signal of one team.
type TeamSignal struct {
	TeamID   string          `json:"team_id"`
	Vibe     *float64        `json:"vibe"`
	WoW      *float64        `json:"wow"`
	Combined signal.Combined `json:"combined"`
}

// CombineSignal blends two possibly-missing scores.
func (e *Engine) CombineSignal(vibeScore, wowScore *float64) signal.Combined {
	return signal.Combine(vibeScore, wowScore, e.signalPolicy)
}

// TeamSignal blends the team's weekly vibe with the score of its most
// recent scored session.
func (e *Engine) TeamSignal(ctx context.Context, teamID string) (*TeamSignal, error) {
	m, err := e.ComputeVibeMetrics(ctx, teamID, DefaultWindowDays)
	if err != nil {
		return nil, err
	}
	wowScore, err := e.latestWoWScore(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &TeamSignal{
		TeamID:   teamID,
		Vibe:     m.WeekVibe.Value,
		WoW:      wowScore,
		Combined: e.CombineSignal(m.WeekVibe.Value, wowScore),
	}, nil
}

func (e *Engine) latestWoWScore(ctx context.Context, teamID string) (*float64, error) {
	closed, err := e.store.ClosedSessions(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for _, s := range closed {
		if s.Scored() {
			return s.OverallScore, nil
		}
	}
	return nil, nil
}
