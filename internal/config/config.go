// Package config loads the TeamPulse configuration.
//
// The file is YAML and overlays the built-in defaults: keys that are absent
// keep their default value. The path comes from --config or, when the flag
// is absent, from the TEAMPULSE_CONFIG environment variable. No path means
// defaults only.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/teampulse/internal/progression"
	"github.com/HendryAvila/teampulse/internal/signal"
	"github.com/HendryAvila/teampulse/internal/vibe"
	"github.com/HendryAvila/teampulse/internal/wow"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "TEAMPULSE_CONFIG"

// Config is the full server configuration.
type Config struct {
	// DataDir holds the SQLite database.
	DataDir string `yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MetricsAddr enables the Prometheus listener when set (e.g. ":9464").
	MetricsAddr string `yaml:"metrics_addr"`

	// CacheEntries bounds each result cache. 0 disables caching.
	CacheEntries int `yaml:"cache_entries"`

	// FleetWorkers bounds concurrent team evaluations in a fleet run.
	FleetWorkers int `yaml:"fleet_workers"`

	Vibe        vibe.Policy        `yaml:"vibe"`
	WoW         wow.Policy         `yaml:"wow"`
	Progression progression.Policy `yaml:"progression"`
	Signal      signal.Policy      `yaml:"signal"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir:      filepath.Join(home, ".teampulse"),
		LogLevel:     "info",
		CacheEntries: 512,
		FleetWorkers: 8,
		Vibe:         vibe.DefaultPolicy(),
		WoW:          wow.DefaultPolicy(),
		Progression:  progression.DefaultPolicy(),
		Signal:       signal.DefaultPolicy(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	return cfg, nil
}

// Path resolves the config path: the flag value wins over the environment.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfig)
}

// Validate checks every section and joins all problems.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of: debug, info, warn, error (got %q)", c.LogLevel))
	}
	if c.CacheEntries < 0 {
		errs = append(errs, errors.New("cache_entries must not be negative"))
	}
	if c.FleetWorkers < 1 {
		errs = append(errs, errors.New("fleet_workers must be at least 1"))
	}
	for _, err := range []error{
		c.Vibe.Validate(),
		c.WoW.Validate(),
		c.Progression.Validate(),
		c.Signal.Validate(),
	} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
