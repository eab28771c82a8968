package wow

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// timeNow is a package variable so tests can freeze the clock.
var timeNow = time.Now

// AllowedLevels lists the session levels a team at teamLevel may run:
// its own level and every level below it.
func AllowedLevels(teamLevel Level) []Level {
	var out []Level
	for _, l := range []Level{LevelShu, LevelHa, LevelRi} {
		if l.Rank() <= teamLevel.Rank() {
			out = append(out, l)
		}
	}
	return out
}

// NewSession validates the request and returns a draft session.
func NewSession(id, teamID string, angle Angle, level, teamLevel Level) (Session, error) {
	if teamID == "" {
		return Session{}, errors.New("team id is required")
	}
	if err := ValidateAngle(angle); err != nil {
		return Session{}, err
	}
	if err := ValidateLevel(level); err != nil {
		return Session{}, err
	}
	if level.Rank() > teamLevel.Rank() {
		return Session{}, fmt.Errorf("level %q is above the team's level %q", level, teamLevel)
	}
	return Session{
		ID:        id,
		TeamID:    teamID,
		Angle:     angle,
		Level:     level,
		Status:    StatusDraft,
		CreatedAt: timeNow().UTC().Format(time.RFC3339),
	}, nil
}

// Activate opens a draft session for responses.
func Activate(s *Session) error {
	if s.Status != StatusDraft {
		return fmt.Errorf("%w: cannot activate a %s session", ErrInvalidTransition, s.Status)
	}
	s.Status = StatusActive
	return nil
}

// AcceptsResponses reports whether the session takes new responses.
func AcceptsResponses(s Session) error {
	if s.Status != StatusActive {
		return fmt.Errorf("%w: session is %s, responses need an active session", ErrInvalidTransition, s.Status)
	}
	return nil
}

// Close freezes an active session with its synthesis. A session closed in
// the collecting state keeps a nil score and does not count toward level
// progression. teamSize <= 0 leaves the participation rate unknown.
func Close(s *Session, res SynthesisResult, teamSize int, at time.Time) error {
	if s.Status != StatusActive {
		return fmt.Errorf("%w: cannot close a %s session", ErrInvalidTransition, s.Status)
	}
	out := res.Outcome()
	s.Status = StatusClosed
	s.FocusArea = out.FocusArea
	s.Experiment = out.Experiment
	s.OverallScore = out.OverallScore
	s.ResponseCount = res.ResponseCount
	s.ParticipationRate = nil
	if teamSize > 0 {
		rate := min(int(math.Round(float64(res.ResponseCount)*100/float64(teamSize))), 100)
		s.ParticipationRate = &rate
	}
	s.ClosedAt = at.UTC().Format(time.RFC3339)
	return nil
}

// RecordFollowup attaches the experiment owner, date and outcome to a
// closed session. Empty fields keep their previous value.
func RecordFollowup(s *Session, owner, date, outcome string) error {
	if s.Status != StatusClosed {
		return fmt.Errorf("%w: follow-up needs a closed session, got %s", ErrInvalidTransition, s.Status)
	}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return fmt.Errorf("invalid follow-up date %q: want YYYY-MM-DD", date)
		}
		s.FollowupDate = date
	}
	if owner != "" {
		s.ExperimentOwner = owner
	}
	if outcome != "" {
		s.FollowupOutcome = outcome
	}
	return nil
}

// HasFollowup reports whether the experiment outcome was recorded.
func (s Session) HasFollowup() bool {
	return s.FollowupOutcome != ""
}

// Scored reports whether the session closed with a score.
func (s Session) Scored() bool {
	return s.Status == StatusClosed && s.OverallScore != nil
}
