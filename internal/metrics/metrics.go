// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custom_errors "github-activity-service/internal/errors"
)

// Sync kinds.
const (
	KindCommits      = "commits"
	KindPullRequests = "prs"
)

// Sync outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics groups every collector registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	syncRuns       *prometheus.CounterVec
	syncRecords    *prometheus.CounterVec
	syncDuration   *prometheus.HistogramVec
	syncInProgress *prometheus.GaugeVec
	githubRetries  *prometheus.CounterVec
}

// New creates the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Sync runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_records_total",
			Help: "Records written by sync runs",
		}, []string{"kind"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Wall time of sync runs",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"kind"}),
		syncInProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sync_in_progress",
			Help: "Sync runs currently holding a guard",
		}, []string{"kind"}),
		githubRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "github_request_retries_total",
			Help: "Retried GitHub requests by resource",
		}, []string{"resource"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.syncRuns,
		m.syncRecords,
		m.syncDuration,
		m.syncInProgress,
		m.githubRetries,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by chi route pattern so path parameters do not
// explode the label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// SyncStarted marks a run of kind as holding its guard. The returned func
// records the outcome and must be called once the run ends.
func (m *Metrics) SyncStarted(kind string) func(records int, err error) {
	if m == nil {
		return func(int, error) {}
	}
	started := time.Now()
	m.syncInProgress.WithLabelValues(kind).Inc()
	return func(records int, err error) {
		m.syncInProgress.WithLabelValues(kind).Dec()
		m.syncDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
		m.syncRecords.WithLabelValues(kind).Add(float64(records))
		m.syncRuns.WithLabelValues(kind, outcome(err)).Inc()
	}
}

// SyncRejected counts a run refused by the guard.
func (m *Metrics) SyncRejected(kind string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(kind, OutcomeConflict).Inc()
}

// GithubRetry counts one retried upstream request.
func (m *Metrics) GithubRetry(resource string, _ error) {
	if m == nil {
		return
	}
	m.githubRetries.WithLabelValues(resource).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, custom_errors.ErrSyncInProgress):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
