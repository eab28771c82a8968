package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/HendryAvila/teampulse/internal/wow"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "teampulse.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// --- Default / Load ---

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeFile(t, `
data_dir: /var/lib/teampulse
log_level: debug
fleet_workers: 2
vibe:
  min_checkins: 5
wow:
  disagreement_variance: 2.0
signal:
  vibe_weight: 0.5
  wow_weight: 0.5
progression:
  risk_window_days:
    ha: 21
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/teampulse" || cfg.LogLevel != "debug" || cfg.FleetWorkers != 2 {
		t.Errorf("top-level overlay not applied: %+v", cfg)
	}
	if cfg.Vibe.MinCheckins != 5 {
		t.Errorf("vibe.min_checkins = %d, want 5", cfg.Vibe.MinCheckins)
	}
	if cfg.Vibe.TrendThreshold != 0.2 {
		t.Errorf("untouched vibe key lost its default: %v", cfg.Vibe.TrendThreshold)
	}
	if cfg.WoW.DisagreementVariance != 2.0 || cfg.WoW.MinResponses != 3 {
		t.Errorf("wow overlay = %+v", cfg.WoW)
	}
	if cfg.Progression.RiskWindowDays[wow.LevelHa] != 21 || cfg.Progression.RiskWindowDays[wow.LevelRi] != 45 {
		t.Errorf("risk windows = %v, want ha 21 / ri 45", cfg.Progression.RiskWindowDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "vibe: [not, a, map]")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate_JoinsProblems(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	cfg.FleetWorkers = 0
	cfg.Signal.VibeWeight = 0.9

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"log_level", "fleet_workers", "sum to 1"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestPath_FlagWinsOverEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/from/env.yaml")
	if got := Path("/from/flag.yaml"); got != "/from/flag.yaml" {
		t.Errorf("Path = %q, want flag value", got)
	}
	if got := Path(""); got != "/from/env.yaml" {
		t.Errorf("Path = %q, want env value", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/data"); got != filepath.Join(home, "data") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome = %q", got)
	}
}
