package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/HendryAvila/teampulse/internal/team"
	"github.com/HendryAvila/teampulse/internal/wow"
)

// UpsertTeam creates the team or updates its name and expected size.
// Level and plan are only set on insert; they change through UpdateTeam.
func (s *Store) UpsertTeam(ctx context.Context, t team.Team) (*team.Team, error) {
	if t.Level == "" {
		t.Level = wow.LevelShu
	}
	if t.Plan == "" {
		t.Plan = team.PlanFree
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, expected_team_size, level, plan, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   expected_team_size = excluded.expected_team_size,
		   updated_at = excluded.updated_at`,
		t.ID, t.Name, t.ExpectedTeamSize, string(t.Level), string(t.Plan), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("store: upsert team: %w", err)
	}
	return s.Team(ctx, t.ID)
}

// Team returns a team by id.
func (s *Store) Team(ctx context.Context, id string) (*team.Team, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, expected_team_size, level, plan, created_at, updated_at
		 FROM teams WHERE id = ?`, id,
	)
	t, err := scanTeam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: team %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: team %q: %w", id, err)
	}
	return t, nil
}

// ListTeams returns every team ordered by id.
func (s *Store) ListTeams(ctx context.Context) ([]team.Team, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, expected_team_size, level, plan, created_at, updated_at
		 FROM teams ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list teams: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []team.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list teams: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTeam reads the team and lets fn change its level and plan inside
// one write transaction, so fn always decides on the current row. An error
// from fn aborts the update and is returned as is.
func (s *Store) UpdateTeam(ctx context.Context, id string, fn func(t *team.Team) error) (*team.Team, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := scanTeam(tx.QueryRowContext(ctx,
		`SELECT id, name, expected_team_size, level, plan, created_at, updated_at
		 FROM teams WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: team %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: team %q: %w", id, err)
	}

	if err := fn(t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.UpdatedAt = now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE teams SET level = ?, plan = ?, updated_at = ? WHERE id = ?`,
		string(t.Level), string(t.Plan), t.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("store: update team %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit team %q: %w", id, err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(row scanner) (*team.Team, error) {
	var (
		t           team.Team
		level, plan string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.ExpectedTeamSize, &level, &plan, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Level = wow.Level(level)
	t.Plan = team.Plan(plan)
	return &t, nil
}
