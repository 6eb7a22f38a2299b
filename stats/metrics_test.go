package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewPrometheusExporterNilRegistryIsNoOp(t *testing.T) {
	e := NewPrometheusExporter(nil)
	if e != nil {
		t.Fatalf("got non-nil exporter for nil registry")
	}
	e.Observe(5, 100, 1, 64, 3) // must not panic on a nil receiver
}

func TestObserveAccumulatesCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewPrometheusExporter(reg)
	if e == nil {
		t.Fatal("expected non-nil exporter")
	}

	e.Observe(3, 300, 1, 128, 3)
	e.Observe(2, 200, 0, 64, 5)

	if got := testutil.ToFloat64(e.datagrams); got != 5 {
		t.Fatalf("got datagrams_total %v, want 5", got)
	}
	if got := testutil.ToFloat64(e.bytes); got != 500 {
		t.Fatalf("got bytes_total %v, want 500", got)
	}
	if got := testutil.ToFloat64(e.dropped); got != 1 {
		t.Fatalf("got datagrams_dropped_total %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.backlogUsed); got != 64 {
		t.Fatalf("got ring_backlog_bytes %v, want 64 (last call's value)", got)
	}
}

func TestObserveIgnoresNonPositiveDeltas(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := NewPrometheusExporter(reg)
	e.Observe(0, 0, 0, 0, 0)
	if got := testutil.ToFloat64(e.datagrams); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}
