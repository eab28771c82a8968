// Package team holds the team configuration the engine reads: expected
// size, current mastery level and billing plan.
package team

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/teampulse/internal/wow"
)

// Plan is the team's billing plan. Only its effect on level is modelled.
type Plan string

const (
	PlanFree Plan = "free"
	PlanTeam Plan = "team"
	PlanPro  Plan = "pro"
)

var validPlans = map[Plan]bool{
	PlanFree: true,
	PlanTeam: true,
	PlanPro:  true,
}

// ValidatePlan returns an error if the plan is not recognized.
func ValidatePlan(p Plan) error {
	if !validPlans[p] {
		return fmt.Errorf("invalid plan %q: must be one of: free, team, pro", p)
	}
	return nil
}

// Team is a team record. ExpectedTeamSize of 0 means unknown; the vibe
// calculator then falls back to the largest observed participant count.
type Team struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ExpectedTeamSize int       `json:"expected_team_size"`
	Level            wow.Level `json:"level"`
	Plan             Plan      `json:"plan"`
	CreatedAt        string    `json:"created_at"`
	UpdatedAt        string    `json:"updated_at"`
}

// Validate checks the fields a caller may set.
func (t Team) Validate() error {
	if t.ID == "" {
		return errors.New("team id is required")
	}
	if t.ExpectedTeamSize < 0 {
		return fmt.Errorf("expected team size %d must not be negative", t.ExpectedTeamSize)
	}
	if err := wow.ValidateLevel(t.Level); err != nil {
		return err
	}
	return ValidatePlan(t.Plan)
}
