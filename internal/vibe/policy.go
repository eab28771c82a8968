package vibe

import (
	"errors"
	"fmt"
)

// MaturityThreshold is one rung of the maturity ladder. A team reaches the
// rung only when BOTH minimums hold.
type MaturityThreshold struct {
	Level          MaturityLevel `yaml:"level" json:"level"`
	MinDays        int           `yaml:"min_days" json:"min_days"`
	MinConsistency int           `yaml:"min_consistency" json:"min_consistency"`
}

// Policy holds every cutoff the calculator uses.
type Policy struct {
	MinCheckins              int                 `yaml:"min_checkins" json:"min_checkins"`
	TrendThreshold           float64             `yaml:"trend_threshold" json:"trend_threshold"`
	HighCoverage             float64             `yaml:"high_coverage" json:"high_coverage"`
	ModerateCoverage         float64             `yaml:"moderate_coverage" json:"moderate_coverage"`
	HighConfidenceDays       int                 `yaml:"high_confidence_days" json:"high_confidence_days"`
	MomentumDays             int                 `yaml:"momentum_days" json:"momentum_days"`
	MomentumFlat             float64             `yaml:"momentum_flat" json:"momentum_flat"`
	EmergingRate             int                 `yaml:"emerging_rate" json:"emerging_rate"`
	CompleteRate             int                 `yaml:"complete_rate" json:"complete_rate"`
	ParticipationTrendPoints int                 `yaml:"participation_trend_points" json:"participation_trend_points"`
	WeekCompleteDays         int                 `yaml:"week_complete_days" json:"week_complete_days"`
	ConsistentDayRate        int                 `yaml:"consistent_day_rate" json:"consistent_day_rate"`
	Maturity                 []MaturityThreshold `yaml:"maturity" json:"maturity"`
}

// DefaultPolicy returns the production cutoffs: the 30%/60% participation
// bands and the maturity ladder used across dashboards.
func DefaultPolicy() Policy {
	return Policy{
		MinCheckins:              3,
		TrendThreshold:           0.2,
		HighCoverage:             0.6,
		ModerateCoverage:         0.3,
		HighConfidenceDays:       3,
		MomentumDays:             7,
		MomentumFlat:             0.05,
		EmergingRate:             30,
		CompleteRate:             60,
		ParticipationTrendPoints: 5,
		WeekCompleteDays:         3,
		ConsistentDayRate:        30,
		Maturity: []MaturityThreshold{
			{Level: MaturityEmerging, MinDays: 3, MinConsistency: 30},
			{Level: MaturityEstablished, MinDays: 14, MinConsistency: 50},
			{Level: MaturityMature, MinDays: 30, MinConsistency: 70},
		},
	}
}

// Validate rejects policies that would make the calculator inconsistent.
func (p Policy) Validate() error {
	if p.MinCheckins < 1 {
		return errors.New("vibe: min_checkins must be at least 1")
	}
	if p.MomentumDays < 2 {
		return errors.New("vibe: momentum_days must be at least 2")
	}
	if p.EmergingRate < 0 || p.EmergingRate >= p.CompleteRate || p.CompleteRate > 100 {
		return fmt.Errorf("vibe: participation bands must satisfy 0 <= emerging (%d) < complete (%d) <= 100",
			p.EmergingRate, p.CompleteRate)
	}
	if p.ModerateCoverage > p.HighCoverage {
		return errors.New("vibe: moderate_coverage must not exceed high_coverage")
	}

	prev := MaturityThreshold{Level: MaturityNew}
	for _, th := range p.Maturity {
		if err := ValidateMaturityLevel(th.Level); err != nil {
			return fmt.Errorf("vibe: %w", err)
		}
		if th.Level.Rank() <= prev.Level.Rank() {
			return fmt.Errorf("vibe: maturity level %q is out of order", th.Level)
		}
		if th.MinDays < prev.MinDays || th.MinConsistency < prev.MinConsistency {
			return fmt.Errorf("vibe: maturity level %q has lower thresholds than %q", th.Level, prev.Level)
		}
		prev = th
	}
	return nil
}
