package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

const namespace = "salesagent"

// Metrics holds the agent collectors. It satisfies graph.Metrics and nodes.FallbackRecorder.
type Metrics struct {
	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	fallbacks    *prometheus.CounterVec
	leads        *prometheus.CounterVec
	resets       prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total turns processed by resolved intent and status",
		}, []string{"intent", "status"}),
		turnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End to end turn latency including state load and save",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total deterministic fallbacks taken by component and reason",
		}, []string{"component", "reason"}),
		leads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_total",
			Help:      "Total lead registration attempts by outcome",
		}, []string{"status"}),
		resets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resets_total",
			Help:      "Total session resets",
		}),
	}
}

func (m *Metrics) TurnCompleted(intent model.Intent, status model.TurnStatus, elapsed time.Duration) {
	if intent == "" {
		intent = model.IntentUnknown
	}
	m.turns.WithLabelValues(string(intent), string(status)).Inc()
	m.turnDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Fallback(component, reason string) {
	m.fallbacks.WithLabelValues(component, reason).Inc()
}

func (m *Metrics) LeadRegistration(status model.LeadStatus) {
	m.leads.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) SessionReset() {
	m.resets.Inc()
}
