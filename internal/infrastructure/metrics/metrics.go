// Package metrics exposes Prometheus instruments for the ranking engine.
// Every method is safe on a nil *Metrics, so metrics stay optional.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "confession_ranking"

// Metrics holds the ranking collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	awards         *prometheus.CounterVec
	points         *prometheus.CounterVec
	awardLatency   prometheus.Histogram
	unlocks        *prometheus.CounterVec
	rankChanges    *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderFailures *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	breakerChanges *prometheus.CounterVec
}

// New creates the collectors and registers them with Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "awards_total",
			Help:      "Scoring events processed, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		points: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_total",
			Help:      "Absolute points written to the ledger, by direction.",
		}, []string{"direction"}),
		awardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "award_duration_seconds",
			Help:      "End-to-end latency of AwardPoints.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievement unlocks, by category.",
		}, []string{"category"}),
		rankChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_changes_total",
			Help:      "Rank transitions, by direction.",
		}, []string{"direction"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_renders_total",
			Help:      "Leaderboard reads, by type and source (cache or ledger).",
		}, []string{"type", "source"}),
		renderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_failures_total",
			Help:      "Leaderboard reads answered with an empty board after a source error.",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of all HTTP requests.",
		}, []string{"method", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of all HTTP requests.",
		}, []string{"method", "status_code"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs, by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of background job runs.",
		}, []string{"job"}),
		breakerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions, by breaker and target state.",
		}, []string{"breaker", "state"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.awards, m.points, m.awardLatency, m.unlocks, m.rankChanges,
		m.renders, m.renderFailures, m.httpRequests, m.httpDuration,
		m.jobRuns, m.jobDuration, m.breakerChanges,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAward records one AwardPoints call.
func (m *Metrics) ObserveAward(eventType string, delta int64, took time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case delta == 0:
		outcome = "zero"
	}
	m.awards.WithLabelValues(eventType, outcome).Inc()
	m.awardLatency.Observe(took.Seconds())

	if err == nil {
		m.addPoints(delta)
	}
}

func (m *Metrics) addPoints(delta int64) {
	switch {
	case delta > 0:
		m.points.WithLabelValues("credit").Add(float64(delta))
	case delta < 0:
		m.points.WithLabelValues("debit").Add(float64(-delta))
	}
}

// ObserveUnlock records an achievement unlock and its reward.
func (m *Metrics) ObserveUnlock(category string, reward int64) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(category).Inc()
	m.addPoints(reward)
}

// ObserveRankChange records a tier transition.
func (m *Metrics) ObserveRankChange(promotion bool) {
	if m == nil {
		return
	}
	direction := "down"
	if promotion {
		direction = "up"
	}
	m.rankChanges.WithLabelValues(direction).Inc()
}

// ObserveLeaderboard records a leaderboard read served from source.
func (m *Metrics) ObserveLeaderboard(boardType, source string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(boardType, source).Inc()
}

// ObserveLeaderboardFailure records a source failure answered with an empty board.
func (m *Metrics) ObserveLeaderboardFailure(boardType string) {
	if m == nil {
		return
	}
	m.renderFailures.WithLabelValues(boardType).Inc()
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, code).Inc()
	m.httpDuration.WithLabelValues(method, code).Observe(took.Seconds())
}

// ObserveJob records one background job run.
func (m *Metrics) ObserveJob(name string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(name, outcome).Inc()
	m.jobDuration.WithLabelValues(name).Observe(took.Seconds())
}

// ObserveBreaker records a circuit breaker transition.
func (m *Metrics) ObserveBreaker(name, state string) {
	if m == nil {
		return
	}
	m.breakerChanges.WithLabelValues(name, state).Inc()
}
