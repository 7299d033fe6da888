// Package metrics records the progress of a sweep in a Prometheus
// registry which can be written out in the text exposition format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dqnsweep"

// Experiment outcomes
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Sweep holds the metrics of a single sweep
type Sweep struct {
	registry *prometheus.Registry

	experiments *prometheus.CounterVec
	meanReward  *prometheus.GaugeVec
	steps       prometheus.Counter
	phase       *prometheus.HistogramVec
}

// New returns a new Sweep whose metrics are registered in their own
// registry
func New() *Sweep {
	s := &Sweep{
		registry: prometheus.NewRegistry(),
		experiments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experiments_total",
			Help:      "Number of finished experiments by status.",
		}, []string{"status"}),
		meanReward: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_reward",
			Help:      "Mean evaluation reward of each experiment.",
		}, []string{"exp_id"}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_steps_total",
			Help:      "Environment steps taken while training.",
		}),
		phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each phase of an experiment.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"phase"}),
	}
	s.registry.MustRegister(s.experiments, s.meanReward, s.steps, s.phase)
	return s
}

// Registry returns the registry holding the metrics
func (s *Sweep) Registry() *prometheus.Registry {
	return s.registry
}

// ExperimentSucceeded records a finished experiment and its mean reward
func (s *Sweep) ExperimentSucceeded(id int, meanReward float64) {
	s.experiments.WithLabelValues(StatusSucceeded).Inc()
	s.meanReward.WithLabelValues(strconv.Itoa(id)).Set(meanReward)
}

// ExperimentFailed records a failed experiment
func (s *Sweep) ExperimentFailed(int) {
	s.experiments.WithLabelValues(StatusFailed).Inc()
}

// AddSteps adds n training steps
func (s *Sweep) AddSteps(n int) {
	s.steps.Add(float64(n))
}

// ObservePhase records how long a phase took
func (s *Sweep) ObservePhase(phase string, d time.Duration) {
	s.phase.WithLabelValues(phase).Observe(d.Seconds())
}

// WriteToTextfile writes the metrics to path in the text exposition
// format used by the node exporter textfile collector
func (s *Sweep) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}
