package store

import (
	"context"
	"fmt"
	"time"

	"github.com/HendryAvila/teampulse/internal/vibe"
)

// AddCheckin stores one mood check-in. A second check-in from the same
// device for the same team and day fails with vibe.ErrDuplicateCheckin.
func (s *Store) AddCheckin(ctx context.Context, c vibe.Checkin) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (team_id, device_id, score, day, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.TeamID, c.DeviceID, c.Score, vibe.DayOf(c.Day).Format(vibe.DateLayout), now(),
	)
	switch {
	case isUniqueViolation(err):
		return vibe.ErrDuplicateCheckin
	case isForeignKeyViolation(err):
		return fmt.Errorf("store: team %q: %w", c.TeamID, ErrNotFound)
	case err != nil:
		return fmt.Errorf("store: add checkin: %w", err)
	}
	return nil
}

// DailyAggregates returns one row per day with check-ins in [from, to),
// oldest first. Days are UTC calendar dates.
func (s *Store) DailyAggregates(ctx context.Context, teamID string, from, to time.Time) ([]vibe.DailyAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, AVG(score), COUNT(*), COUNT(DISTINCT device_id)
		 FROM checkins
		 WHERE team_id = ? AND day >= ? AND day < ?
		 GROUP BY day
		 ORDER BY day`,
		teamID, vibe.DayOf(from).Format(vibe.DateLayout), vibe.DayOf(to).Format(vibe.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("store: daily aggregates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []vibe.DailyAggregate
	for rows.Next() {
		var (
			day string
			agg vibe.DailyAggregate
		)
		if err := rows.Scan(&day, &agg.Average, &agg.Count, &agg.ParticipantCount); err != nil {
			return nil, fmt.Errorf("store: daily aggregates: %w", err)
		}
		agg.Date, err = time.Parse(vibe.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("store: daily aggregates: bad day %q: %w", day, err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}
