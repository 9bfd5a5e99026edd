// Package metrics records resource load and save outcomes.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names passed to Recorder.
const (
	OpLoad = "load"
	OpSave = "save"
)

// Recorder observes resource operations.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	Diagnostics(operation string, errors, warnings int)
}

// Noop discards every observation.
type Noop struct{}

// Observe implements Recorder.
func (Noop) Observe(context.Context, string, bool, time.Duration) {}

// Diagnostics implements Recorder.
func (Noop) Diagnostics(string, int, int) {}

// Prometheus exports observations as prometheus collectors.
type Prometheus struct {
	loads       *prometheus.CounterVec
	saves       *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	diagnostics *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg. Collectors
// already registered by an earlier call are shared.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecore_resource_load_total",
			Help: "Resource loads by outcome.",
		}, []string{"outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecore_resource_save_total",
			Help: "Resource saves by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecore_resource_duration_seconds",
			Help:    "Duration of resource loads and saves.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecore_resource_diagnostics_total",
			Help: "Diagnostics recorded on resources by severity.",
		}, []string{"operation", "severity"}),
	}
	var err error
	if p.loads, err = register(reg, p.loads); err != nil {
		return nil, err
	}
	if p.saves, err = register(reg, p.saves); err != nil {
		return nil, err
	}
	if p.duration, err = register(reg, p.duration); err != nil {
		return nil, err
	}
	if p.diagnostics, err = register(reg, p.diagnostics); err != nil {
		return nil, err
	}
	return p, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var dup prometheus.AlreadyRegisteredError
	if errors.As(err, &dup) {
		if existing, ok := dup.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// Observe implements Recorder.
func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	switch operation {
	case OpLoad:
		p.loads.WithLabelValues(outcome).Inc()
	case OpSave:
		p.saves.WithLabelValues(outcome).Inc()
	}
	p.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Diagnostics implements Recorder.
func (p *Prometheus) Diagnostics(operation string, errors, warnings int) {
	if errors > 0 {
		p.diagnostics.WithLabelValues(operation, "error").Add(float64(errors))
	}
	if warnings > 0 {
		p.diagnostics.WithLabelValues(operation, "warning").Add(float64(warnings))
	}
}
