// Package metrics exposes counters for configuration writes, resolutions
// and validation findings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives measurements from the services.
type Recorder interface {
	IncWrite(operation, level string)
	IncResolution(level string)
	ObserveResolve(durationSeconds float64)
	IncValidationIssue(kind string)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) IncWrite(string, string)   {}
func (Noop) IncResolution(string)      {}
func (Noop) ObserveResolve(float64)    {}
func (Noop) IncValidationIssue(string) {}

var _ Recorder = Noop{}

// Prom implements Recorder backed by Prometheus collectors.
type Prom struct {
	writes      *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	latency     prometheus.Histogram
	issues      *prometheus.CounterVec
}

var _ Recorder = (*Prom)(nil)

// NewProm builds the collectors and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prom{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_writes_total",
			Help:      "Configuration value mutations by operation and scope level",
		}, []string{"operation", "level"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolved keys by the level the effective value came from",
		}, []string{"level"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving one key or snapshot",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_issues_total",
			Help:      "Tree validation findings by kind",
		}, []string{"kind"}),
	}
	reg.MustRegister(p.writes, p.resolutions, p.latency, p.issues)
	return p
}

func (p *Prom) IncWrite(operation, level string) {
	p.writes.WithLabelValues(operation, level).Inc()
}

func (p *Prom) IncResolution(level string) {
	p.resolutions.WithLabelValues(level).Inc()
}

func (p *Prom) ObserveResolve(durationSeconds float64) {
	p.latency.Observe(durationSeconds)
}

func (p *Prom) IncValidationIssue(kind string) {
	p.issues.WithLabelValues(kind).Inc()
}
