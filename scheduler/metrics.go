package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the scheduler's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	skipped     prometheus.Counter
}

// NewMetrics registers the collectors with reg, labelled with the definition id.
func NewMetrics(reg prometheus.Registerer, definitionID string) *Metrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"dag_id": definitionID}
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "engagement",
			Subsystem:   "scheduler",
			Name:        "runs_total",
			Help:        "Finished runs by final state",
			ConstLabels: labels,
		}, []string{"state"}),
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "engagement",
			Subsystem:   "scheduler",
			Name:        "attempts_total",
			Help:        "Task launches by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "engagement",
			Subsystem:   "scheduler",
			Name:        "run_duration_seconds",
			Help:        "Wall time of a run including retries",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   "engagement",
			Subsystem:   "scheduler",
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last successful run",
			ConstLabels: labels,
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "engagement",
			Subsystem:   "scheduler",
			Name:        "skipped_ticks_total",
			Help:        "Ticks not run because a run was still active",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) observeAttempt(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRun(r Run) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(r.State)).Inc()
	m.duration.Observe(r.EndedAt.Sub(r.StartedAt).Seconds())
	if r.State == RunStateSuccess {
		m.lastSuccess.Set(float64(r.EndedAt.Unix()))
	}
}

func (m *Metrics) observeSkip() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}
