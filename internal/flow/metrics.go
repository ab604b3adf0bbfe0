package flow

import (
	"time"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts session lifecycle events.
type Metrics struct {
	started  *prometheus.CounterVec
	finished *prometheus.CounterVec
	fetch    *prometheus.HistogramVec
}

// NewMetrics creates the session collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Name:      "sessions_started_total",
			Help:      "Flow sessions started, by flow kind.",
		}, []string{"flow"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Name:      "sessions_finished_total",
			Help:      "Flow sessions finished, by flow kind, final state and status code.",
		}, []string{"flow", "state", "code"}),
		fetch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payflow",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of configuration and account-data fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.started, m.finished, m.fetch)
	}
	return m
}

func (m *Metrics) sessionStarted(kind models.FlowKind) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) sessionFinished(kind models.FlowKind, state models.StateType, result models.Result) {
	if m == nil {
		return
	}
	m.finished.WithLabelValues(string(kind), string(state), result.StatusCode()).Inc()
}

func (m *Metrics) observeFetch(call string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetch.WithLabelValues(call, outcome).Observe(time.Since(start).Seconds())
}
