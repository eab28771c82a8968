package wow

import "errors"

// Policy holds the tunable thresholds of aggregation and synthesis.
type Policy struct {
	MinResponses         int     `yaml:"min_responses" json:"min_responses"`
	DisagreementVariance float64 `yaml:"disagreement_variance" json:"disagreement_variance"`
	ClusterGap           float64 `yaml:"cluster_gap" json:"cluster_gap"`
	LowBandBelow         float64 `yaml:"low_band_below" json:"low_band_below"`
	HighBandFrom         float64 `yaml:"high_band_from" json:"high_band_from"`
	MaxStrengths         int     `yaml:"max_strengths" json:"max_strengths"`
	MaxTensions          int     `yaml:"max_tensions" json:"max_tensions"`
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinResponses:         3,
		DisagreementVariance: 1.5,
		ClusterGap:           0.5,
		LowBandBelow:         2.5,
		HighBandFrom:         3.5,
		MaxStrengths:         2,
		MaxTensions:          2,
	}
}

// Validate rejects policies that would break synthesis.
func (p Policy) Validate() error {
	if p.MinResponses < 1 {
		return errors.New("wow: min_responses must be at least 1")
	}
	if p.DisagreementVariance <= 0 {
		return errors.New("wow: disagreement_variance must be positive")
	}
	if p.ClusterGap < 0 {
		return errors.New("wow: cluster_gap must not be negative")
	}
	if p.LowBandBelow > p.HighBandFrom {
		return errors.New("wow: low_band_below must not exceed high_band_from")
	}
	if p.MaxStrengths < 1 || p.MaxTensions < 1 {
		return errors.New("wow: max_strengths and max_tensions must be at least 1")
	}
	return nil
}
