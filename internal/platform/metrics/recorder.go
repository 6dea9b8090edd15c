package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cage"

// Recorder owns the service's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry                *prometheus.Registry
	transitions             *prometheus.CounterVec
	illegalTransitions      *prometheus.CounterVec
	concurrentModifications *prometheus.CounterVec
	recallRuns              *prometheus.CounterVec
	recallsIssued           *prometheus.CounterVec
	recallSkips             *prometheus.CounterVec
	sideEffectFailures      *prometheus.CounterVec
	jobs                    *prometheus.CounterVec
	jobDuration             *prometheus.HistogramVec
}

func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed game state transitions.",
		}, []string{"transition", "from", "to"}),
		illegalTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "illegal_transitions_total",
			Help:      "Transitions rejected by the transition table.",
		}, []string{"transition", "from"}),
		concurrentModifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrent_modifications_total",
			Help:      "Transition commits that lost a compare-and-set race.",
		}, []string{"transition"}),
		recallRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_runs_total",
			Help:      "Recall fill invocations by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		recallsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalls_issued_total",
			Help:      "Games moved to recalled by the scheduler.",
		}, []string{"trigger"}),
		recallSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recall_skips_total",
			Help:      "Selected games the scheduler could not recall.",
		}, []string{"trigger", "reason"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-commit transition handlers that returned an error.",
		}, []string{"handler"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Background job lifecycle events.",
		}, []string{"kind", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job attempt duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	registry.MustRegister(
		r.transitions,
		r.illegalTransitions,
		r.concurrentModifications,
		r.recallRuns,
		r.recallsIssued,
		r.recallSkips,
		r.sideEffectFailures,
		r.jobs,
		r.jobDuration,
	)
	return r
}

// WithRuntimeCollectors adds Go runtime and process collectors.
func (r *Recorder) WithRuntimeCollectors() *Recorder {
	if r == nil {
		return r
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Transition(transition, from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(transition, from, to).Inc()
}

func (r *Recorder) IllegalTransition(transition, from string) {
	if r == nil {
		return
	}
	r.illegalTransitions.WithLabelValues(transition, from).Inc()
}

func (r *Recorder) ConcurrentModification(transition string) {
	if r == nil {
		return
	}
	r.concurrentModifications.WithLabelValues(transition).Inc()
}

func (r *Recorder) RecallRun(trigger, outcome string) {
	if r == nil {
		return
	}
	r.recallRuns.WithLabelValues(trigger, outcome).Inc()
}

func (r *Recorder) RecallIssued(trigger string) {
	if r == nil {
		return
	}
	r.recallsIssued.WithLabelValues(trigger).Inc()
}

func (r *Recorder) RecallSkipped(trigger, reason string) {
	if r == nil {
		return
	}
	r.recallSkips.WithLabelValues(trigger, reason).Inc()
}

func (r *Recorder) SideEffectFailure(handler string) {
	if r == nil {
		return
	}
	r.sideEffectFailures.WithLabelValues(handler).Inc()
}

func (r *Recorder) Job(kind, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(kind, status).Inc()
	if elapsed > 0 {
		r.jobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}
