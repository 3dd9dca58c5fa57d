package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewIntakeMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveTurn("voice", "ok")
	m.ObserveLLMLatency(0.42)
	m.ObserveLeadSaved()
	m.ObserveLeadSkipped("incomplete")
	m.ObserveExtractionHit("name")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) != 5 {
		t.Fatalf("got %d metric families, want 5", len(families))
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *IntakeMetrics
	m.ObserveTurn("voice", "ok")
	m.ObserveLLMLatency(1)
	m.ObserveLeadSaved()
	m.ObserveLeadSkipped("incomplete")
	m.ObserveExtractionHit("phone")
}
