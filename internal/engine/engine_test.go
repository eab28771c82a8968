package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/config"
	"github.com/HendryAvila/teampulse/internal/progression"
	"github.com/HendryAvila/teampulse/internal/signal"
	"github.com/HendryAvila/teampulse/internal/store"
	"github.com/HendryAvila/teampulse/internal/team"
	"github.com/HendryAvila/teampulse/internal/telemetry"
	"github.com/HendryAvila/teampulse/internal/vibe"
	"github.com/HendryAvila/teampulse/internal/wow"
)

var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func init() {
	timeNow = func() time.Time { return testNow }
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(store.Config{DataDir: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestEngine(t *testing.T) (*Engine, *telemetry.Metrics) {
	t.Helper()
	return newEngineOn(newTestStore(t))
}

func newEngineOn(st Store) (*Engine, *telemetry.Metrics) {
	m := telemetry.NewMetrics()
	return New(st, config.Default(), zap.NewNop(), m), m
}

func registerTeam(t *testing.T, e *Engine, id string, size int) {
	t.Helper()
	if _, err := e.RegisterTeam(context.Background(), team.Team{ID: id, Name: id, ExpectedTeamSize: size}); err != nil {
		t.Fatalf("RegisterTeam(%q): %v", id, err)
	}
}

func answersFor(angle wow.Angle, level wow.Level, v int) map[string]int {
	out := map[string]int{}
	for _, s := range wow.StatementsFor(angle, level) {
		out[s.ID] = v
	}
	return out
}

// openSession creates and activates a session at the team's level.
func openSession(t *testing.T, e *Engine, teamID string, angle wow.Angle) *wow.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := e.CreateSession(ctx, teamID, angle, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := e.ActivateSession(ctx, sess.ID); err != nil {
		t.Fatalf("ActivateSession: %v", err)
	}
	return sess
}

// runSession collects n identical responses and closes the session.
func runSession(t *testing.T, e *Engine, teamID string, angle wow.Angle, n, answer int) *wow.Session {
	t.Helper()
	ctx := context.Background()
	sess := openSession(t, e, teamID, angle)
	for i := range n {
		if _, err := e.SubmitResponse(ctx, sess.ID, fmt.Sprintf("dev-%d", i), answersFor(angle, sess.Level, answer)); err != nil {
			t.Fatalf("SubmitResponse: %v", err)
		}
	}
	closed, _, err := e.CloseSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	return closed
}

// haReady runs one scored session on each of the five angles ha needs.
func haReady(t *testing.T, e *Engine, teamID string) {
	t.Helper()
	for _, a := range []wow.Angle{wow.AngleFlow, wow.AngleOwnership, wow.AngleRetro, wow.AngleCollaboration, wow.AngleQuality} {
		runSession(t, e, teamID, a, 3, 4)
	}
}

func changePlan(t *testing.T, e *Engine, teamID string, plan team.Plan) {
	t.Helper()
	if _, err := e.ChangePlan(context.Background(), teamID, plan); err != nil {
		t.Fatalf("ChangePlan(%s): %v", plan, err)
	}
}

func assertMetric(t *testing.T, m *telemetry.Metrics, name, body string) {
	t.Helper()
	if err := testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(body), name); err != nil {
		t.Error(err)
	}
}

// ─── Vibe ───────────────────────────────────────────────────────────────────

func TestRecordCheckin_DuplicateSameDayRejected(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)

	if err := e.RecordCheckin(ctx, "t1", "d1", 4, time.Time{}); err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	if err := e.RecordCheckin(ctx, "t1", "d1", 2, time.Time{}); !errors.Is(err, vibe.ErrDuplicateCheckin) {
		t.Fatalf("second check-in = %v, want ErrDuplicateCheckin", err)
	}
	if err := e.RecordCheckin(ctx, "t1", "d1", 3, testNow.AddDate(0, 0, -1)); err != nil {
		t.Errorf("check-in on another day: %v", err)
	}
	if err := e.RecordCheckin(ctx, "t1", "d2", 6, time.Time{}); err == nil {
		t.Error("expected out-of-range score to fail")
	}

	assertMetric(t, m, "teampulse_duplicates_rejected_total", `
# HELP teampulse_duplicates_rejected_total Duplicate submissions rejected, by kind (checkin, response).
# TYPE teampulse_duplicates_rejected_total counter
teampulse_duplicates_rejected_total{kind="checkin"} 1
`)
}

func TestComputeVibeMetrics_WeekVibeAndCache(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)

	yesterday := testNow.AddDate(0, 0, -1)
	for i, score := range []int{4, 4, 5} {
		if err := e.RecordCheckin(ctx, "t1", fmt.Sprintf("d%d", i), score, yesterday); err != nil {
			t.Fatalf("RecordCheckin: %v", err)
		}
	}

	first, err := e.ComputeVibeMetrics(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("ComputeVibeMetrics: %v", err)
	}
	if first.WeekVibe.Value == nil || *first.WeekVibe.Value != 4.33 {
		t.Fatalf("week vibe = %v, want 4.33", first.WeekVibe.Value)
	}
	if first.WeekVibe.Zone != vibe.ZoneThriving {
		t.Errorf("zone = %s, want thriving", first.WeekVibe.Zone)
	}
	if first.LiveVibe.HasValue() {
		t.Errorf("live vibe should be empty without check-ins today")
	}
	if first.ComputedFor != "2026-02-18" {
		t.Errorf("computed for %s", first.ComputedFor)
	}

	second, err := e.ComputeVibeMetrics(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("ComputeVibeMetrics: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeat call differs (-first +second):\n%s", diff)
	}

	// New data changes the key.
	if err := e.RecordCheckin(ctx, "t1", "d9", 1, time.Time{}); err != nil {
		t.Fatalf("RecordCheckin: %v", err)
	}
	third, err := e.ComputeVibeMetrics(ctx, "t1", 0)
	if err != nil {
		t.Fatalf("ComputeVibeMetrics: %v", err)
	}
	if third.Participation.Today != 1 {
		t.Errorf("participation today = %d, want 1", third.Participation.Today)
	}

	assertMetric(t, m, "teampulse_cache_lookups_total", `
# HELP teampulse_cache_lookups_total Result cache lookups, by result (hit, miss).
# TYPE teampulse_cache_lookups_total counter
teampulse_cache_lookups_total{result="hit"} 1
teampulse_cache_lookups_total{result="miss"} 2
`)
}

func TestComputeVibeMetrics_UnknownTeam(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.ComputeVibeMetrics(context.Background(), "ghost", 30); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClampWindow(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultWindowDays},
		{-3, DefaultWindowDays},
		{7, MinWindowDays},
		{14, 14},
		{90, 90},
		{1000, MaxWindowDays},
	}
	for _, tt := range tests {
		if got := clampWindow(tt.in); got != tt.want {
			t.Errorf("clampWindow(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ─── Sessions ───────────────────────────────────────────────────────────────

func TestSubmitResponse_DuplicateDeviceLeavesCountUnchanged(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	sess := openSession(t, e, "t1", wow.AngleFlow)

	answers := answersFor(wow.AngleFlow, wow.LevelShu, 4)
	if _, err := e.SubmitResponse(ctx, sess.ID, "d1", answers); err != nil {
		t.Fatalf("first response: %v", err)
	}
	if _, err := e.SubmitResponse(ctx, sess.ID, "d1", answers); !errors.Is(err, wow.ErrDuplicateResponse) {
		t.Fatalf("second response = %v, want ErrDuplicateResponse", err)
	}

	sessions, err := e.Sessions(ctx, "t1")
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ResponseCount != 1 {
		t.Errorf("sessions = %+v, want one session with one response", sessions)
	}
	assertMetric(t, m, "teampulse_duplicates_rejected_total", `
# HELP teampulse_duplicates_rejected_total Duplicate submissions rejected, by kind (checkin, response).
# TYPE teampulse_duplicates_rejected_total counter
teampulse_duplicates_rejected_total{kind="response"} 1
`)
}

func TestSubmitResponse_DraftSessionRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	sess, err := e.CreateSession(ctx, "t1", wow.AngleRetro, "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := e.SubmitResponse(ctx, sess.ID, "d1", nil); !errors.Is(err, wow.ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.SessionSynthesis(ctx, sess.ID); !errors.Is(err, wow.ErrInvalidTransition) {
		t.Errorf("synthesis of draft = %v, want ErrInvalidTransition", err)
	}
}

func TestCreateSession_LevelAboveTeamRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	registerTeam(t, e, "t1", 5)
	if _, err := e.CreateSession(context.Background(), "t1", wow.AngleFlow, wow.LevelRi); err == nil {
		t.Error("expected a ri session to be rejected for a shu team")
	}
}

func TestSynthesizeSession_NilBelowMinimum(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	sess := openSession(t, e, "t1", wow.AngleQuality)

	for i := range 2 {
		if _, err := e.SubmitResponse(ctx, sess.ID, fmt.Sprintf("d%d", i), answersFor(wow.AngleQuality, wow.LevelShu, 3)); err != nil {
			t.Fatalf("SubmitResponse: %v", err)
		}
	}
	res, err := e.SynthesizeSession(ctx, sess.ID)
	if err != nil || res != nil {
		t.Fatalf("SynthesizeSession with 2 responses = %+v, %v; want nil, nil", res, err)
	}
	preview, err := e.SessionSynthesis(ctx, sess.ID)
	if err != nil {
		t.Fatalf("SessionSynthesis: %v", err)
	}
	if preview.Status != wow.SynthesisCollecting || preview.ResponseCount != 2 {
		t.Errorf("preview = %+v, want collecting with 2 responses", preview)
	}

	if _, err := e.SubmitResponse(ctx, sess.ID, "d2", answersFor(wow.AngleQuality, wow.LevelShu, 3)); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	res, err = e.SynthesizeSession(ctx, sess.ID)
	if err != nil || res == nil {
		t.Fatalf("SynthesizeSession with 3 responses = %v, %v", res, err)
	}
	if res.Status != wow.SynthesisScored || res.OverallScore == nil || *res.OverallScore != 3 {
		t.Errorf("result = %+v, want scored at 3", res)
	}
}

func TestCloseSession_PersistsOnceThenRejects(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)

	closed := runSession(t, e, "t1", wow.AngleFlow, 3, 4)
	if closed.Status != wow.StatusClosed {
		t.Fatalf("status = %s, want closed", closed.Status)
	}
	if closed.OverallScore == nil || *closed.OverallScore != 4 {
		t.Errorf("overall = %v, want 4", closed.OverallScore)
	}
	if closed.ParticipationRate == nil || *closed.ParticipationRate != 60 {
		t.Errorf("participation = %v, want 60", closed.ParticipationRate)
	}
	if closed.FocusArea == "" || closed.Experiment == "" {
		t.Errorf("outcome missing: focus %q, experiment %q", closed.FocusArea, closed.Experiment)
	}
	if closed.ClosedAt != "2026-02-18T12:00:00Z" {
		t.Errorf("closed at %s", closed.ClosedAt)
	}

	if _, _, err := e.CloseSession(ctx, closed.ID); !errors.Is(err, wow.ErrInvalidTransition) {
		t.Errorf("re-close = %v, want ErrInvalidTransition", err)
	}
	if _, err := e.SubmitResponse(ctx, closed.ID, "late", answersFor(wow.AngleFlow, wow.LevelShu, 1)); !errors.Is(err, wow.ErrInvalidTransition) {
		t.Errorf("late response = %v, want ErrInvalidTransition", err)
	}

	res, err := e.SessionSynthesis(ctx, closed.ID)
	if err != nil {
		t.Fatalf("SessionSynthesis: %v", err)
	}
	if diff := cmp.Diff(closed.OverallScore, res.OverallScore); diff != "" {
		t.Errorf("closed synthesis drifted (-persisted +recomputed):\n%s", diff)
	}

	assertMetric(t, m, "teampulse_syntheses_total", `
# HELP teampulse_syntheses_total Session syntheses computed, by status.
# TYPE teampulse_syntheses_total counter
teampulse_syntheses_total{status="scored"} 1
`)
}

func TestCloseSession_BelowMinimumStaysUnscored(t *testing.T) {
	e, _ := newTestEngine(t)
	registerTeam(t, e, "t1", 4)

	closed := runSession(t, e, "t1", wow.AngleLearning, 2, 5)
	if closed.Scored() {
		t.Errorf("session with 2 responses should not be scored: %+v", closed)
	}
	if closed.ParticipationRate == nil || *closed.ParticipationRate != 50 {
		t.Errorf("participation = %v, want 50", closed.ParticipationRate)
	}
}

func TestCloseSession_CountsDroppedAnswers(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	sess := openSession(t, e, "t1", wow.AngleFlow)

	for i := range 3 {
		answers := answersFor(wow.AngleFlow, wow.LevelShu, 3)
		if i == 0 {
			answers["flow-shu-1"] = 9
			answers["not-a-statement"] = 2
		}
		if _, err := e.SubmitResponse(ctx, sess.ID, fmt.Sprintf("d%d", i), answers); err != nil {
			t.Fatalf("SubmitResponse: %v", err)
		}
	}
	_, res, err := e.CloseSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if res.DroppedAnswers != 2 {
		t.Errorf("dropped = %d, want 2", res.DroppedAnswers)
	}
	assertMetric(t, m, "teampulse_answers_dropped_total", `
# HELP teampulse_answers_dropped_total Malformed answers excluded from aggregation, by reason.
# TYPE teampulse_answers_dropped_total counter
teampulse_answers_dropped_total{reason="out_of_range"} 1
teampulse_answers_dropped_total{reason="unknown_statement"} 1
`)
}

func TestCloseSession_InfersTeamSizeFromCheckins(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 0)
	for i := range 6 {
		if err := e.RecordCheckin(ctx, "t1", fmt.Sprintf("c%d", i), 3, testNow.AddDate(0, 0, -2)); err != nil {
			t.Fatalf("RecordCheckin: %v", err)
		}
	}
	closed := runSession(t, e, "t1", wow.AngleRetro, 3, 4)
	if closed.ParticipationRate == nil || *closed.ParticipationRate != 50 {
		t.Errorf("participation = %v, want 50 (3 of 6)", closed.ParticipationRate)
	}
}

func TestRecordFollowup(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	open := openSession(t, e, "t1", wow.AnglePlanning)
	if _, err := e.RecordFollowup(ctx, open.ID, "ana", "2026-03-01", "done"); !errors.Is(err, wow.ErrInvalidTransition) {
		t.Errorf("follow-up on active session = %v, want ErrInvalidTransition", err)
	}

	closed := runSession(t, e, "t1", wow.AngleFlow, 3, 4)
	got, err := e.RecordFollowup(ctx, closed.ID, "ana", "2026-03-01", "cycle time dropped")
	if err != nil {
		t.Fatalf("RecordFollowup: %v", err)
	}
	if !got.HasFollowup() || got.ExperimentOwner != "ana" {
		t.Errorf("follow-up not recorded: %+v", got)
	}
	if _, err := e.RecordFollowup(ctx, closed.ID, "", "March", ""); err == nil {
		t.Error("expected malformed date to fail")
	}
}

// ─── Progression ────────────────────────────────────────────────────────────

func TestPromoteTeam_AfterFiveAngles(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	changePlan(t, e, "t1", team.PlanTeam)

	if _, _, err := e.PromoteTeam(ctx, "t1"); !errors.Is(err, progression.ErrNotEligible) {
		t.Fatalf("promote with no history = %v, want ErrNotEligible", err)
	}

	haReady(t, e, "t1")
	// Unscored sessions never count.
	runSession(t, e, "t1", wow.AngleLearning, 1, 1)

	prog, err := e.EvaluateLevelProgress(ctx, "t1")
	if err != nil {
		t.Fatalf("EvaluateLevelProgress: %v", err)
	}
	if !prog.Eligible || prog.NextLevel != wow.LevelHa {
		t.Fatalf("progress = %+v, want eligible for ha", prog)
	}
	for _, r := range prog.Requirements {
		if r.Key == "diversity" && r.Current != 5 {
			t.Errorf("diversity = %v, want 5", r.Current)
		}
	}

	tm, _, err := e.PromoteTeam(ctx, "t1")
	if err != nil {
		t.Fatalf("PromoteTeam: %v", err)
	}
	if tm.Level != wow.LevelHa {
		t.Errorf("level = %s, want ha", tm.Level)
	}
	stored, err := e.Team(ctx, "t1")
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if stored.Level != wow.LevelHa {
		t.Errorf("stored level = %s, want ha", stored.Level)
	}
}

func TestChangePlan_FreeResetsLevel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	changePlan(t, e, "t1", team.PlanPro)
	haReady(t, e, "t1")
	if _, _, err := e.PromoteTeam(ctx, "t1"); err != nil {
		t.Fatalf("PromoteTeam: %v", err)
	}

	change, err := e.ChangePlan(ctx, "t1", team.PlanTeam)
	if err != nil {
		t.Fatalf("ChangePlan(team): %v", err)
	}
	if change.LevelReset || change.Team.Level != wow.LevelHa {
		t.Errorf("upgrade changed level: %+v", change)
	}

	change, err = e.ChangePlan(ctx, "t1", team.PlanFree)
	if err != nil {
		t.Fatalf("ChangePlan(free): %v", err)
	}
	if !change.LevelReset || change.PreviousLevel != wow.LevelHa || change.Team.Level != wow.LevelShu {
		t.Errorf("downgrade = %+v, want reset from ha to shu", change)
	}
	if change.Team.Plan != team.PlanFree {
		t.Errorf("plan = %s, want free", change.Team.Plan)
	}

	if _, err := e.ChangePlan(ctx, "t1", team.Plan("gold")); err == nil {
		t.Error("expected unknown plan to fail")
	}
}

func TestPromoteTeam_FreePlanRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	haReady(t, e, "t1")

	_, prog, err := e.PromoteTeam(ctx, "t1")
	if !errors.Is(err, progression.ErrPlanLimit) {
		t.Fatalf("promote on free = %v, want ErrPlanLimit", err)
	}
	if prog == nil || !prog.Eligible {
		t.Errorf("progress = %+v, want eligible", prog)
	}
	stored, err := e.Team(ctx, "t1")
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if stored.Level != wow.LevelShu {
		t.Errorf("stored level = %s, want shu", stored.Level)
	}
}

// ─── Concurrent writers ─────────────────────────────────────────────────────

// lateResponseStore submits one more response while a close is in flight.
type lateResponseStore struct {
	*store.Store
	late chan error
}

func (s *lateResponseStore) CloseSession(ctx context.Context, id string, fn func(*wow.Session, []wow.Response) (wow.SynthesisResult, error)) (*wow.Session, error) {
	return s.Store.CloseSession(ctx, id, func(sess *wow.Session, responses []wow.Response) (wow.SynthesisResult, error) {
		go func() {
			s.late <- s.Store.AddResponse(ctx, wow.Response{
				ID: "late", SessionID: id, DeviceID: "dev-late",
				Answers: answersFor(sess.Angle, sess.Level, 1), CreatedAt: "2026-02-18T11:59:59Z",
			})
		}()
		time.Sleep(50 * time.Millisecond)
		return fn(sess, responses)
	})
}

func TestCloseSession_ResponseDuringCloseIsRejected(t *testing.T) {
	st := &lateResponseStore{Store: newTestStore(t), late: make(chan error, 1)}
	e, _ := newEngineOn(st)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)

	closed := runSession(t, e, "t1", wow.AngleFlow, 3, 5)
	if err := <-st.late; !errors.Is(err, wow.ErrInvalidTransition) {
		t.Errorf("response during close = %v, want ErrInvalidTransition", err)
	}
	if closed.OverallScore == nil || *closed.OverallScore != 5 || closed.ResponseCount != 3 {
		t.Errorf("closed = %+v, want score 5 over 3 responses", closed)
	}

	responses, err := st.SessionResponses(ctx, closed.ID)
	if err != nil {
		t.Fatalf("SessionResponses: %v", err)
	}
	if len(responses) != 3 {
		t.Errorf("stored responses = %d, want 3", len(responses))
	}
	res, err := e.SessionSynthesis(ctx, closed.ID)
	if err != nil {
		t.Fatalf("SessionSynthesis: %v", err)
	}
	if res.OverallScore == nil || *res.OverallScore != 5 || res.ResponseCount != 3 {
		t.Errorf("synthesis = %+v, want score 5 over 3 responses", res)
	}
}

// hookStore runs onClosedSessions once, in the middle of a read path.
type hookStore struct {
	*store.Store
	onClosedSessions func()
}

func (s *hookStore) ClosedSessions(ctx context.Context, teamID string) ([]wow.Session, error) {
	if hook := s.onClosedSessions; hook != nil {
		s.onClosedSessions = nil
		hook()
	}
	return s.Store.ClosedSessions(ctx, teamID)
}

func TestPromoteTeam_DowngradeDuringPromotion(t *testing.T) {
	st := &hookStore{Store: newTestStore(t)}
	e, _ := newEngineOn(st)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	changePlan(t, e, "t1", team.PlanPro)
	haReady(t, e, "t1")

	st.onClosedSessions = func() { changePlan(t, e, "t1", team.PlanFree) }
	if _, _, err := e.PromoteTeam(ctx, "t1"); !errors.Is(err, progression.ErrPlanLimit) {
		t.Fatalf("promote across a downgrade = %v, want ErrPlanLimit", err)
	}
	stored, err := e.Team(ctx, "t1")
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if stored.Plan != team.PlanFree || stored.Level != wow.LevelShu {
		t.Errorf("team = %s/%s, want free/shu", stored.Plan, stored.Level)
	}
}

func TestPromoteTeam_ConcurrentPromotionWinsOnce(t *testing.T) {
	st := &hookStore{Store: newTestStore(t)}
	e, _ := newEngineOn(st)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)
	changePlan(t, e, "t1", team.PlanPro)
	haReady(t, e, "t1")

	st.onClosedSessions = func() {
		if _, _, err := e.PromoteTeam(ctx, "t1"); err != nil {
			t.Errorf("inner PromoteTeam: %v", err)
		}
	}
	if _, _, err := e.PromoteTeam(ctx, "t1"); !errors.Is(err, wow.ErrInvalidTransition) {
		t.Fatalf("stale promotion = %v, want ErrInvalidTransition", err)
	}
	stored, err := e.Team(ctx, "t1")
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if stored.Level != wow.LevelHa {
		t.Errorf("stored level = %s, want ha", stored.Level)
	}
}

// headcountlessStore drops per-day participant counts, as rows from an
// older check-in table would.
type headcountlessStore struct {
	*store.Store
}

func (s headcountlessStore) DailyAggregates(ctx context.Context, teamID string, from, to time.Time) ([]vibe.DailyAggregate, error) {
	rows, err := s.Store.DailyAggregates(ctx, teamID, from, to)
	for i := range rows {
		rows[i].ParticipantCount = 0
	}
	return rows, err
}

func TestCloseSession_TeamSizeFallsBackToCheckinCount(t *testing.T) {
	e, _ := newEngineOn(headcountlessStore{newTestStore(t)})
	ctx := context.Background()
	registerTeam(t, e, "t1", 0)
	for i := range 6 {
		if err := e.RecordCheckin(ctx, "t1", fmt.Sprintf("c%d", i), 3, testNow.AddDate(0, 0, -2)); err != nil {
			t.Fatalf("RecordCheckin: %v", err)
		}
	}
	closed := runSession(t, e, "t1", wow.AngleRetro, 3, 4)
	if closed.ParticipationRate == nil || *closed.ParticipationRate != 50 {
		t.Errorf("participation = %v, want 50 (3 of 6 check-ins)", closed.ParticipationRate)
	}
}

// ─── Signal & fleet ─────────────────────────────────────────────────────────

func TestTeamSignal_BlendsWeekVibeAndLatestSession(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "t1", 5)

	got, err := e.TeamSignal(ctx, "t1")
	if err != nil {
		t.Fatalf("TeamSignal: %v", err)
	}
	if got.Combined.Source != signal.SourceNone || got.Combined.Value != nil {
		t.Errorf("empty team signal = %+v, want none", got.Combined)
	}

	for i := range 3 {
		if err := e.RecordCheckin(ctx, "t1", fmt.Sprintf("d%d", i), 4, testNow.AddDate(0, 0, -1)); err != nil {
			t.Fatalf("RecordCheckin: %v", err)
		}
	}
	runSession(t, e, "t1", wow.AngleFlow, 3, 2)

	got, err = e.TeamSignal(ctx, "t1")
	if err != nil {
		t.Fatalf("TeamSignal: %v", err)
	}
	if got.Combined.Source != signal.SourceCombined {
		t.Errorf("source = %s, want combined", got.Combined.Source)
	}
	if got.Combined.Value == nil || *got.Combined.Value != 3.2 {
		t.Errorf("combined = %v, want 3.2", got.Combined.Value)
	}
	if got.Combined.NeedsAttention {
		t.Error("only one low source should not need attention")
	}
}

func TestEvaluateFleet_IsolatesFailures(t *testing.T) {
	e, m := newTestEngine(t)
	ctx := context.Background()
	registerTeam(t, e, "a", 5)
	registerTeam(t, e, "b", 5)

	got, err := e.EvaluateFleet(ctx, []string{"a", "ghost", "b"})
	if err != nil {
		t.Fatalf("EvaluateFleet: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("slots = %d, want 3", len(got))
	}
	for i, id := range []string{"a", "ghost", "b"} {
		if got[i].TeamID != id {
			t.Errorf("slot %d = %s, want %s", i, got[i].TeamID, id)
		}
	}
	if got[1].Error == "" || got[1].Metrics != nil {
		t.Errorf("ghost slot = %+v, want an error only", got[1])
	}
	for _, i := range []int{0, 2} {
		if got[i].Error != "" || got[i].Metrics == nil || got[i].Progress == nil || got[i].Signal == nil {
			t.Errorf("slot %d = %+v, want a full result", i, got[i])
		}
	}
	assertMetric(t, m, "teampulse_fleet_failures_total", `
# HELP teampulse_fleet_failures_total Per-team failures during fleet evaluation.
# TYPE teampulse_fleet_failures_total counter
teampulse_fleet_failures_total 1
`)

	all, err := e.EvaluateFleet(ctx, nil)
	if err != nil {
		t.Fatalf("EvaluateFleet(all): %v", err)
	}
	if len(all) != 2 || all[0].TeamID != "a" || all[1].TeamID != "b" {
		t.Errorf("all teams = %+v", all)
	}
}

func TestEvaluateFleet_CanceledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	registerTeam(t, e, "a", 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.EvaluateFleet(ctx, []string{"a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
