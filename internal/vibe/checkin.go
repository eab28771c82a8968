package vibe

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateCheckin is returned when a device checks in twice for the
// same team on the same day.
var ErrDuplicateCheckin = errors.New("already checked in today")

// Checkin is one anonymous mood submission. DeviceID is an opaque
// correlation key used only to suppress duplicates.
type Checkin struct {
	TeamID   string    `json:"team_id"`
	DeviceID string    `json:"-"`
	Score    int       `json:"score"`
	Day      time.Time `json:"day"`
}

// Validate checks the score range and required keys.
func (c Checkin) Validate() error {
	if c.TeamID == "" {
		return errors.New("team id is required")
	}
	if c.DeviceID == "" {
		return errors.New("device id is required")
	}
	if c.Score < 1 || c.Score > 5 {
		return fmt.Errorf("score %d out of range: must be 1-5", c.Score)
	}
	return nil
}
