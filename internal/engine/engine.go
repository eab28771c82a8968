// Package engine wires the pure calculators (vibe, wow, progression,
// signal) to the response store. It exposes the outbound operations a
// dashboard or coach layer calls: team metrics, session synthesis, level
// progress and the combined signal, plus the writes that feed them.
//
// Every read path is a recomputation over immutable rows; results are
// memoized under content-addressed keys so a repeat call with the same
// inputs costs one hash.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HendryAvila/teampulse/internal/cache"
	"github.com/HendryAvila/teampulse/internal/config"
	"github.com/HendryAvila/teampulse/internal/progression"
	"github.com/HendryAvila/teampulse/internal/signal"
	"github.com/HendryAvila/teampulse/internal/team"
	"github.com/HendryAvila/teampulse/internal/telemetry"
	"github.com/HendryAvila/teampulse/internal/vibe"
	"github.com/HendryAvila/teampulse/internal/wow"
)

// timeNow is a package-level var so tests can freeze "today".
var timeNow = time.Now

// Window bounds for ComputeVibeMetrics, in days.
const (
	DefaultWindowDays = 30
	MinWindowDays     = 14
	MaxWindowDays     = 365
)

// Store is the persistence the engine needs. *store.Store implements it.
type Store interface {
	UpsertTeam(ctx context.Context, t team.Team) (*team.Team, error)
	Team(ctx context.Context, id string) (*team.Team, error)
	ListTeams(ctx context.Context) ([]team.Team, error)
	UpdateTeam(ctx context.Context, id string, fn func(t *team.Team) error) (*team.Team, error)

	AddCheckin(ctx context.Context, c vibe.Checkin) error
	DailyAggregates(ctx context.Context, teamID string, from, to time.Time) ([]vibe.DailyAggregate, error)

	CreateSession(ctx context.Context, s wow.Session) error
	Session(ctx context.Context, id string) (*wow.Session, error)
	UpdateSessionStatus(ctx context.Context, id string, from, to wow.SessionStatus) error
	CloseSession(ctx context.Context, id string, fn func(s *wow.Session, responses []wow.Response) (wow.SynthesisResult, error)) (*wow.Session, error)
	ClosedSynthesis(ctx context.Context, id string) (*wow.SynthesisResult, error)
	SaveFollowup(ctx context.Context, s wow.Session) error
	ClosedSessions(ctx context.Context, teamID string) ([]wow.Session, error)
	ListSessions(ctx context.Context, teamID string) ([]wow.Session, error)

	AddResponse(ctx context.Context, r wow.Response) error
	SessionResponses(ctx context.Context, sessionID string) ([]wow.Response, error)
}

// Engine is safe for concurrent use.
type Engine struct {
	store   Store
	log     *zap.Logger
	metrics *telemetry.Metrics

	vibePolicy   vibe.Policy
	wowPolicy    wow.Policy
	progPolicy   progression.Policy
	signalPolicy signal.Policy
	workers      int

	metricsCache   *cache.Cache[vibe.TeamMetrics]
	synthesisCache *cache.Cache[wow.SynthesisResult]
}

// New builds an engine. A nil logger or metrics is allowed.
func New(st Store, cfg *config.Config, log *zap.Logger, m *telemetry.Metrics) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:          st,
		log:            log,
		metrics:        m,
		vibePolicy:     cfg.Vibe,
		wowPolicy:      cfg.WoW,
		progPolicy:     cfg.Progression,
		signalPolicy:   cfg.Signal,
		workers:        max(cfg.FleetWorkers, 1),
		metricsCache:   cache.New[vibe.TeamMetrics](cfg.CacheEntries),
		synthesisCache: cache.New[wow.SynthesisResult](cfg.CacheEntries),
	}
}

// Policies exposes the active policy set, for the policy resource.
func (e *Engine) Policies() map[string]any {
	return map[string]any{
		"vibe":        e.vibePolicy,
		"wow":         e.wowPolicy,
		"progression": e.progPolicy,
		"signal":      e.signalPolicy,
	}
}

// --- Fingerprints ---

// metricsFingerprint is every input ComputeVibeMetrics reads.
type metricsFingerprint struct {
	TeamID   string                `cbor:"1,keyasint"`
	Today    string                `cbor:"2,keyasint"`
	Window   int                   `cbor:"3,keyasint"`
	TeamSize int                   `cbor:"4,keyasint"`
	Rows     []vibe.DailyAggregate `cbor:"5,keyasint"`
}

// synthesisFingerprint is every input a session synthesis reads. The
// statements follow from angle and level.
type synthesisFingerprint struct {
	SessionID string         `cbor:"1,keyasint"`
	Angle     wow.Angle      `cbor:"2,keyasint"`
	Level     wow.Level      `cbor:"3,keyasint"`
	Responses []wow.Response `cbor:"4,keyasint"`
}

func lookup[V any](e *Engine, c *cache.Cache[V], d cache.Domain, fp any, compute func() V) V {
	key, err := cache.KeyFor(d, fp)
	if err != nil {
		e.log.Warn("cache key failed, computing uncached", zap.Error(err))
		return compute()
	}
	if v, ok := c.Get(key); ok {
		e.metrics.CacheLookup(true)
		e.log.Debug("cache hit", zap.String("key", key.String()))
		return v
	}
	e.metrics.CacheLookup(false)
	v := compute()
	c.Put(key, v)
	return v
}
