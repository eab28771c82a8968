package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/cache"
	"github.com/HendryAvila/teampulse/internal/telemetry"
	"github.com/HendryAvila/teampulse/internal/wow"
)

// CreateSession opens a draft session. An empty level means the team's
// current level.
func (e *Engine) CreateSession(ctx context.Context, teamID string, angle wow.Angle, level wow.Level) (*wow.Session, error) {
	t, err := e.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if level == "" {
		level = t.Level
	}
	sess, err := wow.NewSession(uuid.NewString(), teamID, angle, level, t.Level)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	e.log.Info("session created",
		zap.String("session", sess.ID),
		zap.String("team", teamID),
		zap.String("angle", string(angle)),
		zap.String("level", string(level)))
	return &sess, nil
}

// ActivateSession moves a draft session to active.
func (e *Engine) ActivateSession(ctx context.Context, sessionID string) (*wow.Session, error) {
	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wow.Activate(sess); err != nil {
		return nil, err
	}
	if err := e.store.UpdateSessionStatus(ctx, sessionID, wow.StatusDraft, wow.StatusActive); err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitResponse stores one anonymous response. Answers are kept as given;
// malformed entries are dropped later, at aggregation. A second response
// from the same device fails with wow.ErrDuplicateResponse.
func (e *Engine) SubmitResponse(ctx context.Context, sessionID, deviceID string, answers map[string]int) (*wow.Response, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wow.AcceptsResponses(*sess); err != nil {
		return nil, err
	}

	r := wow.Response{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		DeviceID:  deviceID,
		Answers:   answers,
		CreatedAt: timeNow().UTC().Format(time.RFC3339Nano),
	}
	if r.Answers == nil {
		r.Answers = map[string]int{}
	}
	if err := e.store.AddResponse(ctx, r); err != nil {
		if errors.Is(err, wow.ErrDuplicateResponse) {
			e.metrics.DuplicateRejected(telemetry.KindResponse)
			e.log.Info("duplicate response rejected", zap.String("session", sessionID))
		}
		return nil, err
	}
	return &r, nil
}

// SessionSynthesis returns the full synthesis of an active or closed
// session, including the collecting state below the response minimum. A
// closed session answers with the synthesis kept at close, never with a
// recomputation.
func (e *Engine) SessionSynthesis(ctx context.Context, sessionID string) (*wow.SynthesisResult, error) {
	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case wow.StatusDraft:
		return nil, fmt.Errorf("%w: session %s is still a draft", wow.ErrInvalidTransition, sessionID)
	case wow.StatusClosed:
		return e.closedSynthesis(ctx, sess)
	}
	res, err := e.synthesize(ctx, sess)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// closedSynthesis serves the snapshot taken at close. Sessions closed
// before snapshots were kept get the outcome fields that were persisted.
func (e *Engine) closedSynthesis(ctx context.Context, sess *wow.Session) (*wow.SynthesisResult, error) {
	res, err := e.store.ClosedSynthesis(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}
	out := &wow.SynthesisResult{
		Status:              wow.SynthesisCollecting,
		OverallScore:        sess.OverallScore,
		SuggestedExperiment: sess.Experiment,
		ResponseCount:       sess.ResponseCount,
	}
	if sess.Scored() {
		out.Status = wow.SynthesisScored
	}
	if sess.FocusArea != "" {
		out.FocusArea = &wow.FocusArea{Angle: sess.Angle, Text: sess.FocusArea}
	}
	return out, nil
}

// SynthesizeSession computes the outcome of an active session. It returns
// nil, nil while fewer than the minimum responses are in: a partial sample
// has no score.
func (e *Engine) SynthesizeSession(ctx context.Context, sessionID string) (*wow.SynthesisResult, error) {
	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wow.AcceptsResponses(*sess); err != nil {
		return nil, err
	}
	res, err := e.synthesize(ctx, sess)
	if err != nil {
		return nil, err
	}
	if res.Status == wow.SynthesisCollecting {
		return nil, nil
	}
	return &res, nil
}

func (e *Engine) synthesize(ctx context.Context, sess *wow.Session) (wow.SynthesisResult, error) {
	responses, err := e.store.SessionResponses(ctx, sess.ID)
	if err != nil {
		return wow.SynthesisResult{}, fmt.Errorf("engine: responses of %s: %w", sess.ID, err)
	}
	return e.synthesisOf(sess, responses), nil
}

func (e *Engine) synthesisOf(sess *wow.Session, responses []wow.Response) wow.SynthesisResult {
	fp := synthesisFingerprint{
		SessionID: sess.ID,
		Angle:     sess.Angle,
		Level:     sess.Level,
		Responses: responses,
	}
	return lookup(e, e.synthesisCache, cache.SynthesisDomain, fp, func() wow.SynthesisResult {
		return wow.Synthesize(wow.StatementsFor(sess.Angle, sess.Level), responses, e.wowPolicy)
	})
}

// CloseSession synthesizes an active session once and persists the
// outcome. The synthesis reads the responses inside the store's close
// transaction, so the outcome covers exactly the rows the session keeps.
// Closing a session that is not active fails with wow.ErrInvalidTransition;
// it is never re-synthesized.
func (e *Engine) CloseSession(ctx context.Context, sessionID string) (*wow.Session, *wow.SynthesisResult, error) {
	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Status != wow.StatusActive {
		return nil, nil, fmt.Errorf("%w: cannot close a %s session", wow.ErrInvalidTransition, sess.Status)
	}
	t, err := e.store.Team(ctx, sess.TeamID)
	if err != nil {
		return nil, nil, err
	}
	size, err := e.effectiveTeamSize(ctx, t.ID, t.ExpectedTeamSize)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: team size of %s: %w", t.ID, err)
	}

	var res wow.SynthesisResult
	closed, err := e.store.CloseSession(ctx, sessionID, func(s *wow.Session, responses []wow.Response) (wow.SynthesisResult, error) {
		res = e.synthesisOf(s, responses)
		return res, wow.Close(s, res, size, timeNow())
	})
	if err != nil {
		return nil, nil, err
	}

	e.metrics.Synthesized(string(res.Status))
	e.metrics.AnswersDropped(telemetry.ReasonOutOfRange, res.Drops.OutOfRange)
	e.metrics.AnswersDropped(telemetry.ReasonUnknown, res.Drops.UnknownStatement)
	if res.DroppedAnswers > 0 {
		e.log.Warn("malformed answers dropped",
			zap.String("session", sessionID),
			zap.Int("out_of_range", res.Drops.OutOfRange),
			zap.Int("unknown_statement", res.Drops.UnknownStatement))
	}
	e.log.Info("session closed",
		zap.String("session", sessionID),
		zap.String("status", string(res.Status)),
		zap.Int("responses", res.ResponseCount))
	return closed, &res, nil
}

// RecordFollowup attaches the experiment owner, date and outcome to a
// closed session.
func (e *Engine) RecordFollowup(ctx context.Context, sessionID, owner, date, outcome string) (*wow.Session, error) {
	sess, err := e.store.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := wow.RecordFollowup(sess, owner, date, outcome); err != nil {
		return nil, err
	}
	if err := e.store.SaveFollowup(ctx, *sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Sessions lists a team's sessions, newest first.
func (e *Engine) Sessions(ctx context.Context, teamID string) ([]wow.Session, error) {
	if _, err := e.store.Team(ctx, teamID); err != nil {
		return nil, err
	}
	return e.store.ListSessions(ctx, teamID)
}
