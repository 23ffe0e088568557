package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// sample returns the counter value (or histogram sample count) of the series
// of family name whose labels include want.
func sample(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue series
				}
			}
			if h := m.GetHistogram(); h != nil {
				return float64(h.GetSampleCount())
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("/api/v1/health", "GET", "200", 0.01)
	m.AuthRejected("missing_token")
	m.SuggestionGenerated("rules")
	m.GeneratorFallback("timeout")
	m.AchievementUnlocked("first_goal")
	m.PredicateFailed("streak_7")
	m.VersionConflict("plan")
	m.RecalcFailed("goal")
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.GeneratorFallback("timeout")
	m.GeneratorFallback("timeout")
	m.GeneratorFallback("malformed_json")
	m.AchievementUnlocked("first_goal")
	m.VersionConflict("plan")
	m.PredicateFailed("streak_7")
	m.RecalcFailed("goal")
	m.SuggestionGenerated("ai")

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"pathwise_generator_fallbacks_total", map[string]string{"reason": "timeout"}, 2},
		{"pathwise_generator_fallbacks_total", map[string]string{"reason": "malformed_json"}, 1},
		{"pathwise_achievement_unlocks_total", map[string]string{"key": "first_goal"}, 1},
		{"pathwise_progress_version_conflicts_total", map[string]string{"entity": "plan"}, 1},
		{"pathwise_achievement_predicate_failures_total", map[string]string{"key": "streak_7"}, 1},
		{"pathwise_progress_recalc_failures_total", map[string]string{"entity": "goal"}, 1},
		{"pathwise_adaptive_suggestions_total", map[string]string{"generated_by": "ai"}, 1},
	}
	for _, tt := range tests {
		if got := sample(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestMetrics_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("/api/v1/achievements", "GET", "200", 0.2)

	labels := map[string]string{"route": "/api/v1/achievements", "method": "GET"}
	if got := sample(t, reg, "pathwise_http_requests_total", labels); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if got := sample(t, reg, "pathwise_http_request_duration_seconds", labels); got != 1 {
		t.Errorf("duration samples = %v, want 1", got)
	}
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering collectors twice")
		}
	}()
	New(reg)
}
