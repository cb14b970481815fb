package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics counts decisions by stage and outcome code.
type DecisionMetrics struct {
	decisions *prometheus.CounterVec
}

var _ DecisionListener = (*DecisionMetrics)(nil)

// NewDecisionMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewDecisionMetrics(reg prometheus.Registerer) (*DecisionMetrics, error) {
	m := &DecisionMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wedding_auth",
			Name:      "decisions_total",
			Help:      "Access decisions by stage and code.",
		}, []string{"stage", "code"}),
	}
	if reg != nil {
		if err := reg.Register(m.decisions); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OnDecision satisfies DecisionListener.
func (m *DecisionMetrics) OnDecision(event DecisionEvent) {
	code := string(event.Decision.Code)
	if event.Decision.Authenticated {
		code = "ALLOW"
	}
	m.decisions.WithLabelValues(string(event.Stage), code).Inc()
}

// Collector exposes the underlying counter, mainly for tests.
func (m *DecisionMetrics) Collector() *prometheus.CounterVec {
	return m.decisions
}
