// Package telemetry holds the diagnostic counters of the engine and the
// optional /metrics listener that exposes them.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry       *prometheus.Registry
	answersDropped *prometheus.CounterVec
	duplicates     *prometheus.CounterVec
	syntheses      *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	fleetFailures  prometheus.Counter
	fleetDuration  prometheus.Histogram
}

// NewMetrics registers the counters on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		answersDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teampulse_answers_dropped_total",
			Help: "Malformed answers excluded from aggregation, by reason.",
		}, []string{"reason"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teampulse_duplicates_rejected_total",
			Help: "Duplicate submissions rejected, by kind (checkin, response).",
		}, []string{"kind"}),
		syntheses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teampulse_syntheses_total",
			Help: "Session syntheses computed, by status.",
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teampulse_cache_lookups_total",
			Help: "Result cache lookups, by result (hit, miss).",
		}, []string{"result"}),
		fleetFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teampulse_fleet_failures_total",
			Help: "Per-team failures during fleet evaluation.",
		}),
		fleetDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teampulse_fleet_duration_seconds",
			Help:    "Wall time of fleet evaluations.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.answersDropped,
		m.duplicates,
		m.syntheses,
		m.cacheLookups,
		m.fleetFailures,
		m.fleetDuration,
	)
	return m
}

// Label values.
const (
	ReasonOutOfRange = "out_of_range"
	ReasonUnknown    = "unknown_statement"
	KindCheckin      = "checkin"
	KindResponse     = "response"
)

func (m *Metrics) AnswersDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.answersDropped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) DuplicateRejected(kind string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(kind).Inc()
}

func (m *Metrics) Synthesized(status string) {
	if m == nil {
		return
	}
	m.syntheses.WithLabelValues(status).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) FleetFailure() {
	if m == nil {
		return
	}
	m.fleetFailures.Inc()
}

func (m *Metrics) FleetDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.fleetDuration.Observe(d.Seconds())
}

// Gatherer returns the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
