package progression

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/HendryAvila/teampulse/internal/team"
	"github.com/HendryAvila/teampulse/internal/wow"
)

var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func rate(v int) *int { return &v }

func rec(daysAgo int, a wow.Angle, score float64, participation int) SessionRecord {
	return SessionRecord{
		ID:                fmt.Sprintf("s-%s-%d", a, daysAgo),
		ClosedAt:          testNow.AddDate(0, 0, -daysAgo),
		Angle:             a,
		Score:             score,
		ParticipationRate: rate(participation),
	}
}

// haBoundary sits exactly on every ha threshold: 3 sessions in 29 days,
// 5 distinct angles, rolling score 3.2, rolling participation 60%.
func haBoundary() []SessionRecord {
	return []SessionRecord{
		rec(29, wow.AngleFlow, 3.2, 60),
		rec(10, wow.AngleOwnership, 3.0, 60),
		rec(1, wow.AngleRetro, 3.4, 60),
		rec(40, wow.AngleQuality, 3.2, 60),
		rec(50, wow.AnglePlanning, 3.2, 60),
	}
}

func requirement(t *testing.T, p Progress, key string) Requirement {
	t.Helper()
	for _, r := range p.Requirements {
		if r.Key == key {
			return r
		}
	}
	t.Fatalf("requirement %q missing", key)
	return Requirement{}
}

func TestEvaluate_HaUnlocksAtExactThresholds(t *testing.T) {
	prog := Evaluate(wow.LevelShu, haBoundary(), testNow, DefaultPolicy())
	if !prog.Eligible {
		t.Fatalf("expected eligible, got %+v", prog.Requirements)
	}
	if prog.NextLevel != wow.LevelHa {
		t.Errorf("next = %s, want ha", prog.NextLevel)
	}
	if got := requirement(t, prog, "score").Current; got != 3.2 {
		t.Errorf("rolling score = %v, want 3.2", got)
	}
	if prog.Risk != nil {
		t.Errorf("shu never carries risk, got %+v", prog.Risk)
	}

	next, err := Promote(wow.LevelShu, prog)
	if err != nil || next != wow.LevelHa {
		t.Errorf("Promote = %s, %v; want ha, nil", next, err)
	}
}

func TestEvaluate_AnySingleRequirementJustBelowKeepsShu(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]SessionRecord)
		key    string
	}{
		{"score 3.19", func(h []SessionRecord) { h[4].Score = 3.15 }, "score"},
		{"participation 59", func(h []SessionRecord) { h[4].ParticipationRate = rate(55) }, "participation"},
		{"oldest recent session at 31 days", func(h []SessionRecord) { h[0].ClosedAt = testNow.AddDate(0, 0, -31) }, "sessions"},
		{"four angles", func(h []SessionRecord) { h[4].Angle = wow.AngleFlow }, "diversity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := haBoundary()
			tt.mutate(h)
			prog := Evaluate(wow.LevelShu, h, testNow, DefaultPolicy())
			if prog.Eligible {
				t.Fatal("expected not eligible")
			}
			if requirement(t, prog, tt.key).Met {
				t.Errorf("requirement %q should be unmet", tt.key)
			}
			if _, err := Promote(wow.LevelShu, prog); !errors.Is(err, ErrNotEligible) {
				t.Errorf("Promote err = %v, want ErrNotEligible", err)
			}
		})
	}
}

func TestEvaluate_RollingUsesMostRecentSessions(t *testing.T) {
	h := haBoundary()
	// An old low score outside the rolling window does not drag the average.
	h = append(h, rec(90, wow.AngleLearning, 1.0, 10))
	prog := Evaluate(wow.LevelShu, h, testNow, DefaultPolicy())
	if got := requirement(t, prog, "score").Current; got != 3.2 {
		t.Errorf("rolling score = %v, want 3.2", got)
	}
	if got := requirement(t, prog, "participation").Current; got != 60 {
		t.Errorf("rolling participation = %v, want 60", got)
	}
}

func TestEvaluate_RiRequirements(t *testing.T) {
	var h []SessionRecord
	for i, a := range wow.Angles()[:7] {
		r := rec(i*10, a, 3.6, 75)
		r.HasFollowup = i < 4
		h = append(h, r)
	}
	prog := Evaluate(wow.LevelHa, h, testNow, DefaultPolicy())
	if prog.NextLevel != wow.LevelRi {
		t.Fatalf("next = %s, want ri", prog.NextLevel)
	}
	if !prog.Eligible {
		t.Fatalf("expected eligible for ri: %+v", prog.Requirements)
	}
	if len(prog.Requirements) != 6 {
		t.Errorf("got %d requirements, want 6", len(prog.Requirements))
	}

	h[0].HasFollowup = false
	prog = Evaluate(wow.LevelHa, h, testNow, DefaultPolicy())
	if prog.Eligible || requirement(t, prog, "followups").Met {
		t.Error("three follow-ups must not unlock ri")
	}
}

func TestEvaluate_RiIsTerminal(t *testing.T) {
	prog := Evaluate(wow.LevelRi, haBoundary(), testNow, DefaultPolicy())
	if prog.NextLevel != "" || prog.Eligible || len(prog.Requirements) != 0 {
		t.Errorf("ri must have no onward requirements: %+v", prog)
	}
	if _, err := Promote(wow.LevelRi, prog); !errors.Is(err, ErrTerminalLevel) {
		t.Errorf("Promote err = %v, want ErrTerminalLevel", err)
	}
}

func TestEvaluate_RiskNeverChangesLevel(t *testing.T) {
	stale := []SessionRecord{rec(31, wow.AngleFlow, 4.0, 80)}
	prog := Evaluate(wow.LevelHa, stale, testNow, DefaultPolicy())
	if prog.Risk == nil {
		t.Fatal("expected risk after 31 idle days at ha")
	}
	if prog.Risk.DaysSinceLastSession == nil || *prog.Risk.DaysSinceLastSession != 31 {
		t.Errorf("days since last = %v, want 31", prog.Risk.DaysSinceLastSession)
	}
	if prog.CurrentLevel != wow.LevelHa {
		t.Errorf("level changed to %s", prog.CurrentLevel)
	}

	// ri tolerates 31 idle days but not a score below its own bar.
	low := []SessionRecord{rec(2, wow.AngleFlow, 3.1, 80)}
	prog = Evaluate(wow.LevelRi, low, testNow, DefaultPolicy())
	if prog.Risk == nil {
		t.Fatal("expected risk for a low rolling score at ri")
	}
	prog = Evaluate(wow.LevelRi, stale, testNow, DefaultPolicy())
	if prog.Risk != nil {
		t.Errorf("31 idle days is inside the ri window, got %+v", prog.Risk)
	}

	prog = Evaluate(wow.LevelHa, nil, testNow, DefaultPolicy())
	if prog.Risk == nil {
		t.Error("expected risk for ha with no history")
	}
}

func TestPromote_RejectsProgressForAnotherLevel(t *testing.T) {
	prog := Evaluate(wow.LevelShu, haBoundary(), testNow, DefaultPolicy())
	if _, err := Promote(wow.LevelHa, prog); !errors.Is(err, ErrNotEligible) {
		t.Errorf("err = %v, want ErrNotEligible", err)
	}
}

func TestResetForPlan(t *testing.T) {
	tests := []struct {
		level   wow.Level
		plan    team.Plan
		want    wow.Level
		changed bool
	}{
		{wow.LevelRi, team.PlanFree, wow.LevelShu, true},
		{wow.LevelHa, team.PlanFree, wow.LevelShu, true},
		{wow.LevelShu, team.PlanFree, wow.LevelShu, false},
		{wow.LevelRi, team.PlanPro, wow.LevelRi, false},
		{wow.LevelHa, team.PlanTeam, wow.LevelHa, false},
	}
	for _, tt := range tests {
		got, changed := ResetForPlan(tt.level, tt.plan)
		if got != tt.want || changed != tt.changed {
			t.Errorf("ResetForPlan(%s, %s) = %s, %v; want %s, %v", tt.level, tt.plan, got, changed, tt.want, tt.changed)
		}
	}
}

func TestCheckPlan(t *testing.T) {
	tests := []struct {
		level   wow.Level
		plan    team.Plan
		wantErr bool
	}{
		{wow.LevelShu, team.PlanFree, false},
		{wow.LevelHa, team.PlanFree, true},
		{wow.LevelRi, team.PlanFree, true},
		{wow.LevelHa, team.PlanTeam, false},
		{wow.LevelRi, team.PlanPro, false},
	}
	for _, tt := range tests {
		err := CheckPlan(tt.level, tt.plan)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckPlan(%s, %s) = %v, wantErr %v", tt.level, tt.plan, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrPlanLimit) {
			t.Errorf("CheckPlan(%s, %s) = %v, want ErrPlanLimit", tt.level, tt.plan, err)
		}
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	p := DefaultPolicy()
	p.Unlock[wow.LevelHa] = append(p.Unlock[wow.LevelHa], Rule{Key: "x", Kind: "vibes"})
	if err := p.Validate(); err == nil {
		t.Error("expected unknown kind to be rejected")
	}
}
