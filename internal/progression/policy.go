package progression

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/teampulse/internal/wow"
)

// Kind selects how a rule measures the session history.
type Kind string

const (
	// KindSessionsWithin counts scored sessions closed in the last WindowDays.
	KindSessionsWithin Kind = "sessions_within"
	KindTotalSessions  Kind = "total_sessions"
	KindDistinctAngles Kind = "distinct_angles"
	KindFollowups      Kind = "followups"
	// KindRollingScore and KindRollingParticipation average the most recent
	// RollingSessions sessions.
	KindRollingScore         Kind = "rolling_score"
	KindRollingParticipation Kind = "rolling_participation"
)

var validKinds = map[Kind]bool{
	KindSessionsWithin:       true,
	KindTotalSessions:        true,
	KindDistinctAngles:       true,
	KindFollowups:            true,
	KindRollingScore:         true,
	KindRollingParticipation: true,
}

// Rule is one requirement to unlock a level.
type Rule struct {
	Key        string  `yaml:"key" json:"key"`
	Label      string  `yaml:"label" json:"label"`
	Kind       Kind    `yaml:"kind" json:"kind"`
	Required   float64 `yaml:"required" json:"required"`
	WindowDays int     `yaml:"window_days,omitempty" json:"window_days,omitempty"`
}

// Policy holds the unlock tables, keyed by the level being unlocked, and the
// risk windows, keyed by the level being held.
type Policy struct {
	RollingSessions int                  `yaml:"rolling_sessions" json:"rolling_sessions"`
	Unlock          map[wow.Level][]Rule `yaml:"unlock" json:"unlock"`
	RiskWindowDays  map[wow.Level]int    `yaml:"risk_window_days" json:"risk_window_days"`
}

// DefaultPolicy returns the Shu→Ha→Ri requirement tables.
func DefaultPolicy() Policy {
	return Policy{
		RollingSessions: 5,
		Unlock: map[wow.Level][]Rule{
			wow.LevelHa: {
				{Key: "sessions", Label: "Closed sessions in the last 30 days", Kind: KindSessionsWithin, Required: 3, WindowDays: 30},
				{Key: "diversity", Label: "Distinct angles covered", Kind: KindDistinctAngles, Required: 5},
				{Key: "score", Label: "Rolling average session score", Kind: KindRollingScore, Required: 3.2},
				{Key: "participation", Label: "Rolling average participation (%)", Kind: KindRollingParticipation, Required: 60},
			},
			wow.LevelRi: {
				{Key: "total_sessions", Label: "Closed sessions in total", Kind: KindTotalSessions, Required: 6},
				{Key: "diversity", Label: "Distinct angles covered", Kind: KindDistinctAngles, Required: 7},
				{Key: "followups", Label: "Sessions with a recorded experiment outcome", Kind: KindFollowups, Required: 4},
				{Key: "recency", Label: "Closed sessions in the last 45 days", Kind: KindSessionsWithin, Required: 3, WindowDays: 45},
				{Key: "score", Label: "Rolling average session score", Kind: KindRollingScore, Required: 3.5},
				{Key: "participation", Label: "Rolling average participation (%)", Kind: KindRollingParticipation, Required: 70},
			},
		},
		RiskWindowDays: map[wow.Level]int{
			wow.LevelHa: 30,
			wow.LevelRi: 45,
		},
	}
}

// Validate rejects unusable tables.
func (p Policy) Validate() error {
	if p.RollingSessions < 1 {
		return errors.New("progression: rolling_sessions must be at least 1")
	}
	for _, lvl := range []wow.Level{wow.LevelHa, wow.LevelRi} {
		rules := p.Unlock[lvl]
		if len(rules) == 0 {
			return fmt.Errorf("progression: no unlock rules for %s", lvl)
		}
		for _, r := range rules {
			if !validKinds[r.Kind] {
				return fmt.Errorf("progression: %s rule %q has unknown kind %q", lvl, r.Key, r.Kind)
			}
			if r.Kind == KindSessionsWithin && r.WindowDays < 1 {
				return fmt.Errorf("progression: %s rule %q needs window_days", lvl, r.Key)
			}
		}
		if p.RiskWindowDays[lvl] < 1 {
			return fmt.Errorf("progression: risk_window_days for %s must be positive", lvl)
		}
	}
	return nil
}
