// Package metrics holds the Prometheus collectors of the engine.
//
// All methods are safe on a nil *Metrics, so components can be built without
// instrumentation in tests and CLI commands.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector pathwise exports.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	authRejections     *prometheus.CounterVec
	suggestions        *prometheus.CounterVec
	generatorFallbacks *prometheus.CounterVec
	unlocks            *prometheus.CounterVec
	predicateFailures  *prometheus.CounterVec
	versionConflicts   *prometheus.CounterVec
	recalcFailures     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pathwise_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		authRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_auth_rejections_total",
				Help: "Requests rejected before reaching a handler",
			},
			[]string{"reason"},
		),
		suggestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_adaptive_suggestions_total",
				Help: "Adaptive suggestions produced, by generator",
			},
			[]string{"generated_by"},
		),
		generatorFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_generator_fallbacks_total",
				Help: "AI suggestion attempts that fell back to rules, by reason",
			},
			[]string{"reason"},
		),
		unlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_achievement_unlocks_total",
				Help: "Achievements unlocked, by key",
			},
			[]string{"key"},
		),
		predicateFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_achievement_predicate_failures_total",
				Help: "Achievement predicates that errored or panicked, by key",
			},
			[]string{"key"},
		),
		versionConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_progress_version_conflicts_total",
				Help: "Optimistic concurrency conflicts on progress writes, by entity",
			},
			[]string{"entity"},
		),
		recalcFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathwise_progress_recalc_failures_total",
				Help: "Progress recomputations abandoned, by entity",
			},
			[]string{"entity"},
		),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.authRejections,
		m.suggestions,
		m.generatorFallbacks,
		m.unlocks,
		m.predicateFailures,
		m.versionConflicts,
		m.recalcFailures,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(seconds)
}

// AuthRejected counts a request rejected by authentication or user scoping.
func (m *Metrics) AuthRejected(reason string) {
	if m == nil {
		return
	}
	m.authRejections.WithLabelValues(reason).Inc()
}

// SuggestionGenerated counts a suggestion by the path that produced it.
func (m *Metrics) SuggestionGenerated(generatedBy string) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(generatedBy).Inc()
}

// GeneratorFallback counts an AI attempt that fell back to rules.
func (m *Metrics) GeneratorFallback(reason string) {
	if m == nil {
		return
	}
	m.generatorFallbacks.WithLabelValues(reason).Inc()
}

// AchievementUnlocked counts an unlock.
func (m *Metrics) AchievementUnlocked(key string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(key).Inc()
}

// PredicateFailed counts a failing achievement predicate.
func (m *Metrics) PredicateFailed(key string) {
	if m == nil {
		return
	}
	m.predicateFailures.WithLabelValues(key).Inc()
}

// VersionConflict counts a lost optimistic write on plan or goal.
func (m *Metrics) VersionConflict(entity string) {
	if m == nil {
		return
	}
	m.versionConflicts.WithLabelValues(entity).Inc()
}

// RecalcFailed counts a recomputation that gave up.
func (m *Metrics) RecalcFailed(entity string) {
	if m == nil {
		return
	}
	m.recalcFailures.WithLabelValues(entity).Inc()
}
