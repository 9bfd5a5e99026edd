package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			found++
		}
	}
	return found == len(labels)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus() error = %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, OpLoad, true, time.Millisecond)
	rec.Observe(ctx, OpLoad, false, time.Millisecond)
	rec.Observe(ctx, OpSave, true, time.Millisecond)
	rec.Diagnostics(OpLoad, 2, 1)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{name: "ecore_resource_load_total", labels: map[string]string{"outcome": "success"}, want: 1},
		{name: "ecore_resource_load_total", labels: map[string]string{"outcome": "error"}, want: 1},
		{name: "ecore_resource_save_total", labels: map[string]string{"outcome": "success"}, want: 1},
		{name: "ecore_resource_diagnostics_total", labels: map[string]string{"operation": "load", "severity": "error"}, want: 2},
		{name: "ecore_resource_diagnostics_total", labels: map[string]string{"operation": "load", "severity": "warning"}, want: 1},
	}
	for _, tt := range tests {
		if got := counterValue(t, reg, tt.name, tt.labels); got != tt.want {
			t.Fatalf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}

	again, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("second NewPrometheus() error = %v", err)
	}
	again.Observe(ctx, OpLoad, true, time.Millisecond)
	if got := counterValue(t, reg, "ecore_resource_load_total", map[string]string{"outcome": "success"}); got != 2 {
		t.Fatalf("shared load counter = %v, want 2", got)
	}
}

func TestPrometheusConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecore_resource_load_total",
		Help: "Resource loads by outcome.",
	}))
	if _, err := NewPrometheus(reg); err == nil {
		t.Fatalf("NewPrometheus() error = nil, want conflict")
	}
}
