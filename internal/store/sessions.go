package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/teampulse/internal/wow"
)

const sessionColumns = `id, team_id, angle, level, status, focus_area, experiment,
	experiment_owner, followup_date, followup_outcome, overall_score,
	participation_rate, response_count, created_at, closed_at`

// CreateSession inserts a draft session.
func (s *Store) CreateSession(ctx context.Context, sess wow.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, team_id, angle, level, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.TeamID, string(sess.Angle), string(sess.Level), string(sess.Status), sess.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("store: team %q: %w", sess.TeamID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

// Session returns a session by id.
func (s *Store) Session(ctx context.Context, id string) (*wow.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: session %q: %w", id, err)
	}
	return sess, nil
}

// UpdateSessionStatus moves a session from one status to another. The
// transition is guarded in SQL so concurrent writers cannot both win.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, from, to wow.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE id = ? AND status = ?`,
		string(to), id, string(from),
	)
	if err != nil {
		return fmt.Errorf("store: update session status: %w", err)
	}
	return s.checkGuarded(ctx, res, id, fmt.Sprintf("expected %s", from))
}

// CloseFunc closes sess in place from its responses and returns the
// synthesis to keep with it.
type CloseFunc = func(sess *wow.Session, responses []wow.Response) (wow.SynthesisResult, error)

// CloseSession closes an active session inside one write transaction: the
// session and its responses are read, fn closes the session, and the
// outcome plus a snapshot of the synthesis are written. The transaction
// holds the write lock from its first statement, so no response can be
// added between the read and the write. Closing a session that is not
// active fails with wow.ErrInvalidTransition.
func (s *Store) CloseSession(ctx context.Context, id string, fn CloseFunc) (*wow.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: session %q: %w", id, err)
	}
	if sess.Status != wow.StatusActive {
		return nil, fmt.Errorf("store: session %q: %w: close needs an active session, got %s",
			id, wow.ErrInvalidTransition, sess.Status)
	}
	responses, err := sessionResponses(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	res, err := fn(sess, responses)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("store: encode synthesis: %w", err)
	}

	var score sql.NullFloat64
	if sess.OverallScore != nil {
		score = sql.NullFloat64{Float64: *sess.OverallScore, Valid: true}
	}
	var rate sql.NullInt64
	if sess.ParticipationRate != nil {
		rate = sql.NullInt64{Int64: int64(*sess.ParticipationRate), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions
		 SET status = 'closed', focus_area = ?, experiment = ?, overall_score = ?,
		     participation_rate = ?, response_count = ?, closed_at = ?, synthesis = ?
		 WHERE id = ? AND status = 'active'`,
		nullableString(sess.FocusArea), nullableString(sess.Experiment), score,
		rate, sess.ResponseCount, sess.ClosedAt, string(snapshot), id,
	); err != nil {
		return nil, fmt.Errorf("store: save session outcome: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit close: %w", err)
	}
	return sess, nil
}

// ClosedSynthesis returns the synthesis snapshot taken when the session
// closed, or nil when none was kept.
func (s *Store) ClosedSynthesis(ctx context.Context, id string) (*wow.SynthesisResult, error) {
	var snapshot sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT synthesis FROM sessions WHERE id = ?`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: synthesis of %q: %w", id, err)
	}
	if !snapshot.Valid {
		return nil, nil
	}
	var res wow.SynthesisResult
	if err := json.Unmarshal([]byte(snapshot.String), &res); err != nil {
		return nil, fmt.Errorf("store: decode synthesis of %q: %w", id, err)
	}
	return &res, nil
}

// SaveFollowup writes the experiment follow-up of a closed session.
func (s *Store) SaveFollowup(ctx context.Context, sess wow.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET experiment_owner = ?, followup_date = ?, followup_outcome = ?
		 WHERE id = ? AND status = 'closed'`,
		nullableString(sess.ExperimentOwner), nullableString(sess.FollowupDate),
		nullableString(sess.FollowupOutcome), sess.ID,
	)
	if err != nil {
		return fmt.Errorf("store: save followup: %w", err)
	}
	return s.checkGuarded(ctx, res, sess.ID, "follow-up needs a closed session")
}

// checkGuarded turns "no rows updated" into ErrNotFound or
// wow.ErrInvalidTransition.
func (s *Store) checkGuarded(ctx context.Context, res sql.Result, id, detail string) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.Session(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("store: session %q: %w: %s", id, wow.ErrInvalidTransition, detail)
}

// ClosedSessions returns a team's closed sessions, newest first.
func (s *Store) ClosedSessions(ctx context.Context, teamID string) ([]wow.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE team_id = ? AND status = 'closed'
		 ORDER BY closed_at DESC, id`, teamID)
}

// ListSessions returns all of a team's sessions, newest first.
func (s *Store) ListSessions(ctx context.Context, teamID string) ([]wow.Session, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE team_id = ?
		 ORDER BY created_at DESC, id`, teamID)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]wow.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []wow.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("store: query sessions: %w", err)
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

func scanSession(row scanner) (*wow.Session, error) {
	var (
		sess                                    wow.Session
		angle, level, status                    string
		focus, experiment, owner, date, outcome sql.NullString
		closedAt                                sql.NullString
		score                                   sql.NullFloat64
		rate                                    sql.NullInt64
	)
	err := row.Scan(&sess.ID, &sess.TeamID, &angle, &level, &status, &focus, &experiment,
		&owner, &date, &outcome, &score, &rate, &sess.ResponseCount, &sess.CreatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	sess.Angle = wow.Angle(angle)
	sess.Level = wow.Level(level)
	sess.Status = wow.SessionStatus(status)
	sess.FocusArea = focus.String
	sess.Experiment = experiment.String
	sess.ExperimentOwner = owner.String
	sess.FollowupDate = date.String
	sess.FollowupOutcome = outcome.String
	sess.ClosedAt = closedAt.String
	if score.Valid {
		v := score.Float64
		sess.OverallScore = &v
	}
	if rate.Valid {
		v := int(rate.Int64)
		sess.ParticipationRate = &v
	}
	return &sess, nil
}

// ─── Responses ───────────────────────────────────────────────────────────────

// AddResponse stores a response and bumps the session's response count in
// one transaction. The insert only happens while the session is active.
// A second response from the same device fails with
// wow.ErrDuplicateResponse and leaves the count unchanged.
func (s *Store) AddResponse(ctx context.Context, r wow.Response) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("store: encode answers: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO responses (id, session_id, device_id, answers, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ? AND status = 'active')`,
		r.ID, r.SessionID, r.DeviceID, string(answers), r.CreatedAt, r.SessionID,
	)
	if isUniqueViolation(err) {
		return wow.ErrDuplicateResponse
	}
	if err != nil {
		return fmt.Errorf("store: add response: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return s.checkGuarded(ctx, res, r.SessionID, "responses need an active session")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET response_count = response_count + 1 WHERE id = ?`, r.SessionID,
	); err != nil {
		return fmt.Errorf("store: bump response count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit response: %w", err)
	}
	return nil
}

// SessionResponses returns every response of a session, oldest first.
func (s *Store) SessionResponses(ctx context.Context, sessionID string) ([]wow.Response, error) {
	return sessionResponses(ctx, s.db, sessionID)
}

func sessionResponses(ctx context.Context, q querier, sessionID string) ([]wow.Response, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, session_id, device_id, answers, created_at
		 FROM responses WHERE session_id = ?
		 ORDER BY created_at, id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: session responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []wow.Response
	for rows.Next() {
		var (
			r       wow.Response
			answers string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.DeviceID, &answers, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: session responses: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
			return nil, fmt.Errorf("store: decode answers of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
