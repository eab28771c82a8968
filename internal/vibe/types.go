// Package vibe turns daily anonymous mood check-ins into team-level signals.
//
// The calculator is a set of pure functions over already-materialized daily
// aggregates: live (today), day (yesterday) and week (rolling 7 days) scores
// with trend and confidence, plus momentum, participation, day/week state and
// data maturity. Nothing here reads a clock or a store; callers pass "today"
// and the rows explicitly, so every result is recomputable.
package vibe

import (
	"fmt"
	"time"
)

// --- Zone enum ---

// Zone is the 4-bucket health scale shared by every score in the system.
type Zone string

const (
	ZoneCritical  Zone = "critical"
	ZoneAttention Zone = "attention"
	ZoneStable    Zone = "stable"
	ZoneThriving  Zone = "thriving"
)

// ZoneFor buckets a 1–5 score: <2 critical, [2,3) attention, [3,4) stable,
// ≥4 thriving. Way-of-Work and combined scores use the same buckets.
func ZoneFor(score float64) Zone {
	switch {
	case score < 2:
		return ZoneCritical
	case score < 3:
		return ZoneAttention
	case score < 4:
		return ZoneStable
	default:
		return ZoneThriving
	}
}

// --- Trend enum ---

// Trend describes the direction of a score against its previous window.
type Trend string

const (
	TrendRising    Trend = "rising"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// --- Confidence enum ---

// Confidence grades how much of the expected team input backs a metric.
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceHigh     Confidence = "high"
)

// --- Day / week state enums ---

// DayState is driven by today's participation rate.
type DayState string

const (
	DayNoData         DayState = "no_data"
	DaySignalEmerging DayState = "signal_emerging"
	DayComplete       DayState = "day_complete"
)

// WeekState judges how complete the current calendar week's signal is.
type WeekState string

const (
	WeekNoData         WeekState = "no_data"
	WeekSignalEmerging WeekState = "signal_emerging"
	WeekForming        WeekState = "week_forming"
	WeekComplete       WeekState = "week_complete"
)

// --- Maturity enum ---

// MaturityLevel classifies how much and how consistently a team has
// generated vibe data.
type MaturityLevel string

const (
	MaturityNew         MaturityLevel = "new"
	MaturityEmerging    MaturityLevel = "emerging"
	MaturityEstablished MaturityLevel = "established"
	MaturityMature      MaturityLevel = "mature"
)

var maturityRank = map[MaturityLevel]int{
	MaturityNew:         0,
	MaturityEmerging:    1,
	MaturityEstablished: 2,
	MaturityMature:      3,
}

// Rank returns the ordinal of the level (new = 0), or -1 if unknown.
func (l MaturityLevel) Rank() int {
	r, ok := maturityRank[l]
	if !ok {
		return -1
	}
	return r
}

// ValidateMaturityLevel returns an error if the level is not recognized.
func ValidateMaturityLevel(l MaturityLevel) error {
	if _, ok := maturityRank[l]; !ok {
		return fmt.Errorf("invalid maturity level %q: must be one of: new, emerging, established, mature", l)
	}
	return nil
}

// --- Core data structures ---

// DailyAggregate is one team's check-ins for one calendar day.
// Only today's row changes after creation.
type DailyAggregate struct {
	Date             time.Time `json:"date" cbor:"1,keyasint"`
	Average          float64   `json:"average" cbor:"2,keyasint"`
	Count            int       `json:"count" cbor:"3,keyasint"`
	ParticipantCount int       `json:"participant_count" cbor:"4,keyasint"`
}

// Metric is one windowed vibe score. Value is nil until the window holds
// the minimum number of check-ins; Zone is empty in that case.
type Metric struct {
	Value      *float64   `json:"value"`
	Zone       Zone       `json:"zone,omitempty"`
	Trend      Trend      `json:"trend"`
	Delta      float64    `json:"delta"`
	Confidence Confidence `json:"confidence"`
	Count      int        `json:"count"`
}

// HasValue reports whether the metric cleared the minimum-data gate.
func (m Metric) HasValue() bool { return m.Value != nil }

// Momentum is the slope of daily averages over the trailing window.
type Momentum struct {
	Direction    Trend   `json:"direction"`
	Velocity     float64 `json:"velocity"`
	DaysTrending int     `json:"days_trending"`
}

// Participation describes today's turnout against the team size.
type Participation struct {
	Today    int   `json:"today"`
	TeamSize int   `json:"team_size"`
	Rate     int   `json:"rate"`
	Trend    Trend `json:"trend"`
}

// Maturity is the data-maturity classification.
type Maturity struct {
	Level           MaturityLevel `json:"level"`
	DaysOfData      int           `json:"days_of_data"`
	ConsistencyRate int           `json:"consistency_rate"`
}

// TeamMetrics is the full output of Compute.
type TeamMetrics struct {
	ComputedFor        string        `json:"computed_for"` // YYYY-MM-DD
	LiveVibe           Metric        `json:"live_vibe"`
	DayVibe            Metric        `json:"day_vibe"`
	WeekVibe           Metric        `json:"week_vibe"`
	PreviousWeekVibe   Metric        `json:"previous_week_vibe"`
	Momentum           Momentum      `json:"momentum"`
	Participation      Participation `json:"participation"`
	DayState           DayState      `json:"day_state"`
	WeekState          WeekState     `json:"week_state"`
	UniqueDaysThisWeek int           `json:"unique_days_this_week"`
	Maturity           Maturity      `json:"maturity"`
	HasEnoughData      bool          `json:"has_enough_data"`
}
