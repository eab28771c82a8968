// Package signal blends the Vibe and Way-of-Work scores into one number
// for dashboards.
package signal

import (
	"errors"
	"math"

	"github.com/HendryAvila/teampulse/internal/vibe"
)

// Source names where a combined value came from.
type Source string

const (
	SourceCombined Source = "combined"
	SourceVibe     Source = "vibe"
	SourceWoW      Source = "wow"
	// SourceNone means neither score exists: collect data, do not show zero.
	SourceNone Source = "none"
)

// Policy holds the blend weights and the attention threshold.
type Policy struct {
	VibeWeight         float64 `yaml:"vibe_weight" json:"vibe_weight"`
	WoWWeight          float64 `yaml:"wow_weight" json:"wow_weight"`
	AttentionThreshold float64 `yaml:"attention_threshold" json:"attention_threshold"`
}

// DefaultPolicy weights Vibe higher as the higher-frequency signal.
func DefaultPolicy() Policy {
	return Policy{
		VibeWeight:         0.6,
		WoWWeight:          0.4,
		AttentionThreshold: 2.5,
	}
}

// Validate requires non-negative weights summing to 1.
func (p Policy) Validate() error {
	if p.VibeWeight < 0 || p.WoWWeight < 0 {
		return errors.New("signal: weights must not be negative")
	}
	if math.Abs(p.VibeWeight+p.WoWWeight-1) > 1e-9 {
		return errors.New("signal: vibe_weight and wow_weight must sum to 1")
	}
	if p.AttentionThreshold <= 0 {
		return errors.New("signal: attention_threshold must be positive")
	}
	return nil
}

// Combined is the blended signal. Value and Zone are unset when Source is
// SourceNone.
type Combined struct {
	Value          *float64  `json:"value"`
	Source         Source    `json:"source"`
	NeedsAttention bool      `json:"needs_attention"`
	Zone           vibe.Zone `json:"zone,omitempty"`
}

// Combine blends the two scores. A nil score is missing, never zero.
//
// NeedsAttention is computed from the raw inputs, not from zones: with both
// present it requires both below the threshold, with one present only that
// one is checked.
func Combine(vibeScore, wowScore *float64, p Policy) Combined {
	var c Combined
	switch {
	case vibeScore != nil && wowScore != nil:
		v := round2(*vibeScore*p.VibeWeight + *wowScore*p.WoWWeight)
		c.Value = &v
		c.Source = SourceCombined
		c.NeedsAttention = *vibeScore < p.AttentionThreshold && *wowScore < p.AttentionThreshold
	case vibeScore != nil:
		v := *vibeScore
		c.Value = &v
		c.Source = SourceVibe
		c.NeedsAttention = v < p.AttentionThreshold
	case wowScore != nil:
		v := *wowScore
		c.Value = &v
		c.Source = SourceWoW
		c.NeedsAttention = v < p.AttentionThreshold
	default:
		c.Source = SourceNone
		return c
	}
	c.Zone = vibe.ZoneFor(*c.Value)
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
