// Package wow implements the Way-of-Work assessment engine.
//
// A session asks a team to rate a set of statements on a 1–5 Likert scale.
// Responses are anonymous; the only correlation key is an opaque device id
// used to keep one response per device per session. At close time the
// responses are aggregated per statement and synthesized exactly once into
// strengths, tensions, a focus area and a suggested experiment.
//
// This package follows the same layout as the rest of the engine:
// types, catalog, aggregation, synthesis, rule tables and the session state
// machine live in separate files; everything is a pure function of its inputs.
package wow

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrDuplicateResponse means the device already answered this session.
	ErrDuplicateResponse = errors.New("already responded to this session")
	// ErrInvalidTransition means the session is not in a state that allows
	// the requested lifecycle step.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// --- Angle enum ---

// Angle is the topic category a statement belongs to.
type Angle string

const (
	AngleFlow          Angle = "flow"
	AngleOwnership     Angle = "ownership"
	AngleRetro         Angle = "retro"
	AngleCollaboration Angle = "collaboration"
	AngleQuality       Angle = "quality"
	AngleRefinement    Angle = "refinement"
	AnglePlanning      Angle = "planning"
	AngleLearning      Angle = "learning"
)

// angleOrder is the canonical order of angles; it breaks ties
// deterministically and drives the rule-table completeness check.
var angleOrder = []Angle{
	AngleFlow,
	AngleOwnership,
	AngleRetro,
	AngleCollaboration,
	AngleQuality,
	AngleRefinement,
	AnglePlanning,
	AngleLearning,
}

var angleLabels = map[Angle]string{
	AngleFlow:          "Flow",
	AngleOwnership:     "Ownership",
	AngleRetro:         "Retrospectives",
	AngleCollaboration: "Collaboration",
	AngleQuality:       "Quality",
	AngleRefinement:    "Refinement",
	AnglePlanning:      "Planning",
	AngleLearning:      "Learning",
}

// Angles returns all angles in canonical order.
func Angles() []Angle {
	out := make([]Angle, len(angleOrder))
	copy(out, angleOrder)
	return out
}

// ValidateAngle returns an error if the angle is not recognized.
func ValidateAngle(a Angle) error {
	if _, ok := angleLabels[a]; !ok {
		return fmt.Errorf("invalid angle %q: must be one of: flow, ownership, retro, collaboration, quality, refinement, planning, learning", a)
	}
	return nil
}

// Label returns the display name of the angle.
func (a Angle) Label() string {
	if l, ok := angleLabels[a]; ok {
		return l
	}
	return string(a)
}

func angleIndex(a Angle) int {
	for i, x := range angleOrder {
		if x == a {
			return i
		}
	}
	return len(angleOrder)
}

// --- Level enum ---

// Level is the Shu→Ha→Ri mastery stage. It gates assessment depth.
type Level string

const (
	LevelShu Level = "shu"
	LevelHa  Level = "ha"
	LevelRi  Level = "ri"
)

var levelRank = map[Level]int{
	LevelShu: 0,
	LevelHa:  1,
	LevelRi:  2,
}

// ValidateLevel returns an error if the level is not recognized.
func ValidateLevel(l Level) error {
	if _, ok := levelRank[l]; !ok {
		return fmt.Errorf("invalid level %q: must be one of: shu, ha, ri", l)
	}
	return nil
}

// Rank returns the ordinal of the level (shu = 0), or -1 if unknown.
func (l Level) Rank() int {
	r, ok := levelRank[l]
	if !ok {
		return -1
	}
	return r
}

// Next returns the level after l and false when l is terminal or unknown.
func (l Level) Next() (Level, bool) {
	switch l {
	case LevelShu:
		return LevelHa, true
	case LevelHa:
		return LevelRi, true
	default:
		return "", false
	}
}

// --- Session status enum ---

// SessionStatus tracks the lifecycle of a session.
type SessionStatus string

const (
	StatusDraft  SessionStatus = "draft"
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

// --- Synthesis status / caveat ---

// SynthesisStatus tells the caller whether a score may be shown.
type SynthesisStatus string

const (
	// SynthesisCollecting means fewer responses than the minimum: no score.
	SynthesisCollecting SynthesisStatus = "collecting"
	SynthesisScored     SynthesisStatus = "scored"
)

// Caveat accompanies a synthesis and tells the reader how far to trust it.
type Caveat string

const (
	CaveatConfident  Caveat = "confident"
	CaveatFacilitate Caveat = "facilitate"
)

// --- Core data structures ---

// Statement is one static assessment item.
type Statement struct {
	ID    string `json:"id" cbor:"1,keyasint"`
	Text  string `json:"text" cbor:"2,keyasint"`
	Angle Angle  `json:"angle" cbor:"3,keyasint"`
	Level Level  `json:"level" cbor:"4,keyasint"`
}

// Response is one anonymous submission to a session.
type Response struct {
	ID        string         `json:"id" cbor:"1,keyasint"`
	SessionID string         `json:"session_id" cbor:"2,keyasint"`
	DeviceID  string         `json:"-" cbor:"3,keyasint"`
	Answers   map[string]int `json:"answers" cbor:"4,keyasint"`
	CreatedAt string         `json:"created_at" cbor:"5,keyasint"`
}

// StatementScore aggregates every valid answer to one statement.
// Distribution[k] counts answers of value k+1.
type StatementScore struct {
	Statement     Statement `json:"statement"`
	Score         float64   `json:"score"`
	ResponseCount int       `json:"response_count"`
	Distribution  [5]int    `json:"distribution"`
	Variance      float64   `json:"variance"`
}

// FocusArea is derived from the lowest-scoring cluster of statements.
type FocusArea struct {
	Angle        Angle    `json:"angle"`
	StatementIDs []string `json:"statement_ids"`
	Score        float64  `json:"score"`
	Text         string   `json:"text"`
}

// SynthesisResult is the outcome of a session.
type SynthesisResult struct {
	Status              SynthesisStatus  `json:"status"`
	Strengths           []StatementScore `json:"strengths"`
	Tensions            []StatementScore `json:"tensions"`
	AllScores           []StatementScore `json:"all_scores"`
	OverallScore        *float64         `json:"overall_score"`
	DisagreementCount   int              `json:"disagreement_count"`
	Caveat              Caveat           `json:"caveat,omitempty"`
	FocusArea           *FocusArea       `json:"focus_area,omitempty"`
	SuggestedExperiment string           `json:"suggested_experiment,omitempty"`
	ResponseCount       int              `json:"response_count"`
	ValidResponses      int              `json:"valid_responses"`
	DroppedAnswers      int              `json:"dropped_answers"`
	Drops               Drops            `json:"drops"`
}

// Outcome is the part of a synthesis persisted onto the session at close.
type Outcome struct {
	FocusArea    string   `json:"focus_area"`
	Experiment   string   `json:"experiment"`
	OverallScore *float64 `json:"overall_score"`
}

// Outcome extracts the persisted shape from a synthesis.
func (r SynthesisResult) Outcome() Outcome {
	o := Outcome{
		Experiment:   r.SuggestedExperiment,
		OverallScore: r.OverallScore,
	}
	if r.FocusArea != nil {
		o.FocusArea = r.FocusArea.Text
	}
	return o
}

// Session is one Way-of-Work assessment run by a team.
type Session struct {
	ID                string        `json:"id"`
	TeamID            string        `json:"team_id"`
	Angle             Angle         `json:"angle"`
	Level             Level         `json:"level"`
	Status            SessionStatus `json:"status"`
	FocusArea         string        `json:"focus_area,omitempty"`
	Experiment        string        `json:"experiment,omitempty"`
	ExperimentOwner   string        `json:"experiment_owner,omitempty"`
	FollowupDate      string        `json:"followup_date,omitempty"`
	FollowupOutcome   string        `json:"followup_outcome,omitempty"`
	OverallScore      *float64      `json:"overall_score,omitempty"`
	ParticipationRate *int          `json:"participation_rate,omitempty"`
	ResponseCount     int           `json:"response_count"`
	CreatedAt         string        `json:"created_at"`
	ClosedAt          string        `json:"closed_at,omitempty"`
}
