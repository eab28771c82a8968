// Package progression evaluates the Shu→Ha→Ri mastery ladder.
//
// Evaluate is a pure predicate over a team's closed-session history. It never
// changes a level: promotion is a pull (Promote, called by an admin action
// after Evaluate says the team is eligible) and demotion only happens through
// ResetForPlan when billing downgrades to free.
package progression

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/HendryAvila/teampulse/internal/team"
	"github.com/HendryAvila/teampulse/internal/wow"
)

var (
	// ErrNotEligible means at least one unlock requirement is unmet.
	ErrNotEligible = errors.New("requirements for the next level are not met")
	// ErrTerminalLevel means the team is already at ri.
	ErrTerminalLevel = errors.New("already at the highest level")
	// ErrPlanLimit means the billing plan does not allow the level.
	ErrPlanLimit = errors.New("the free plan holds shu only")
)

// SessionRecord is one scored, closed session as progression sees it.
// ParticipationRate is nil when the team size was unknown at close.
type SessionRecord struct {
	ID                string
	ClosedAt          time.Time
	Angle             wow.Angle
	Score             float64
	ParticipationRate *int
	HasFollowup       bool
}

// Requirement is one evaluated unlock rule.
type Requirement struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Required float64 `json:"required"`
	Current  float64 `json:"current"`
	Met      bool    `json:"met"`
}

// Risk is a soft warning that the current level is losing its
// justification. It never changes the level.
type Risk struct {
	Level                wow.Level `json:"level"`
	Reason               string    `json:"reason"`
	DaysSinceLastSession *int      `json:"days_since_last_session,omitempty"`
}

// Progress is the evaluator's result.
type Progress struct {
	CurrentLevel wow.Level     `json:"current_level"`
	NextLevel    wow.Level     `json:"next_level,omitempty"`
	Requirements []Requirement `json:"requirements"`
	Eligible     bool          `json:"eligible"`
	Risk         *Risk         `json:"risk,omitempty"`
}

// Evaluate measures history against the requirements of the level after
// current and flags risk on the current level.
func Evaluate(current wow.Level, history []SessionRecord, now time.Time, p Policy) Progress {
	sorted := make([]SessionRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ClosedAt.Equal(sorted[j].ClosedAt) {
			return sorted[i].ClosedAt.After(sorted[j].ClosedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	prog := Progress{
		CurrentLevel: current,
		Requirements: []Requirement{},
	}
	if next, ok := current.Next(); ok {
		prog.NextLevel = next
		prog.Eligible = true
		for _, r := range p.Unlock[next] {
			req := measure(r, sorted, now, p)
			prog.Requirements = append(prog.Requirements, req)
			if !req.Met {
				prog.Eligible = false
			}
		}
		if len(prog.Requirements) == 0 {
			prog.Eligible = false
		}
	}
	prog.Risk = riskFor(current, sorted, now, p)
	return prog
}

func measure(r Rule, sorted []SessionRecord, now time.Time, p Policy) Requirement {
	var cur float64
	switch r.Kind {
	case KindSessionsWithin:
		cur = float64(countWithin(sorted, now, r.WindowDays))
	case KindTotalSessions:
		cur = float64(len(sorted))
	case KindDistinctAngles:
		angles := map[wow.Angle]bool{}
		for _, s := range sorted {
			angles[s.Angle] = true
		}
		cur = float64(len(angles))
	case KindFollowups:
		for _, s := range sorted {
			if s.HasFollowup {
				cur++
			}
		}
	case KindRollingScore:
		cur = rollingScore(sorted, p.RollingSessions)
	case KindRollingParticipation:
		cur = rollingParticipation(sorted, p.RollingSessions)
	}
	return Requirement{
		Key:      r.Key,
		Label:    r.Label,
		Required: r.Required,
		Current:  cur,
		Met:      cur >= r.Required,
	}
}

func countWithin(sorted []SessionRecord, now time.Time, days int) int {
	cutoff := now.AddDate(0, 0, -days)
	n := 0
	for _, s := range sorted {
		if !s.ClosedAt.Before(cutoff) && !s.ClosedAt.After(now) {
			n++
		}
	}
	return n
}

func rollingScore(sorted []SessionRecord, window int) float64 {
	recent := sorted[:min(window, len(sorted))]
	if len(recent) == 0 {
		return 0
	}
	var sum float64
	for _, s := range recent {
		sum += s.Score
	}
	return round2(sum / float64(len(recent)))
}

// rollingParticipation skips sessions with an unknown rate.
func rollingParticipation(sorted []SessionRecord, window int) float64 {
	recent := sorted[:min(window, len(sorted))]
	var sum float64
	n := 0
	for _, s := range recent {
		if s.ParticipationRate == nil {
			continue
		}
		sum += float64(*s.ParticipationRate)
		n++
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

// riskFor flags a held level (ha or ri) when no scored session closed in its
// risk window, or the rolling score fell below the level's own bar.
func riskFor(current wow.Level, sorted []SessionRecord, now time.Time, p Policy) *Risk {
	window, ok := p.RiskWindowDays[current]
	if !ok {
		return nil
	}
	if len(sorted) == 0 {
		return &Risk{Level: current, Reason: "no closed sessions on record"}
	}

	days := int(now.Sub(sorted[0].ClosedAt).Hours() / 24)
	if days > window {
		return &Risk{
			Level:                current,
			Reason:               fmt.Sprintf("no session in the last %d days", window),
			DaysSinceLastSession: &days,
		}
	}
	for _, r := range p.Unlock[current] {
		if r.Kind != KindRollingScore {
			continue
		}
		if score := rollingScore(sorted, p.RollingSessions); score < r.Required {
			return &Risk{
				Level:                current,
				Reason:               fmt.Sprintf("rolling score %.2f is below the %s bar of %.2f", score, current, r.Required),
				DaysSinceLastSession: &days,
			}
		}
	}
	return nil
}

// Promote advances current by one level when prog says it is eligible.
func Promote(current wow.Level, prog Progress) (wow.Level, error) {
	next, ok := current.Next()
	if !ok {
		return current, ErrTerminalLevel
	}
	if prog.CurrentLevel != current || prog.NextLevel != next || !prog.Eligible {
		return current, ErrNotEligible
	}
	return next, nil
}

// MaxLevelFor is the highest level a plan may hold: shu on free, ri
// otherwise.
func MaxLevelFor(plan team.Plan) wow.Level {
	if plan == team.PlanFree {
		return wow.LevelShu
	}
	return wow.LevelRi
}

// CheckPlan fails with ErrPlanLimit when plan cannot hold level.
func CheckPlan(level wow.Level, plan team.Plan) error {
	if level.Rank() > MaxLevelFor(plan).Rank() {
		return fmt.Errorf("%w: %s needs a paid plan", ErrPlanLimit, level)
	}
	return nil
}

// ResetForPlan applies the billing rule: a free plan holds shu only.
// It reports whether the level changed.
func ResetForPlan(current wow.Level, plan team.Plan) (wow.Level, bool) {
	if max := MaxLevelFor(plan); current.Rank() > max.Rank() {
		return max, true
	}
	return current, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
