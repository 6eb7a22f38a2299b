package stats

import (
	"testing"
	"time"
)

func TestThroughputExcludesFirstDatagram(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.Source().RecordBatch(1, now)
	r.Ring().RecordDatagram(100)
	r.Source().RecordBatch(1, now.Add(time.Second))
	r.Ring().RecordDatagram(100)

	snap := r.Get()
	if snap.Ring.NDatagrams != 2 {
		t.Fatalf("expected 2 datagrams, got %d", snap.Ring.NDatagrams)
	}
	// One second elapsed, 2 datagrams total, first excluded => 1 dps.
	if got := snap.ThroughputDatagramsPerSec(); got < 0.99 || got > 1.01 {
		t.Fatalf("throughput dps = %v, want ~1", got)
	}
}

func TestMeanDatagramSize(t *testing.T) {
	r := NewRegistry()
	r.Ring().RecordDatagram(10)
	r.Ring().RecordDatagram(20)
	snap := r.Get()
	if got := snap.MeanDatagramSize(); got != 15 {
		t.Fatalf("mean size = %v, want 15", got)
	}
}

func TestWarnLogBounded(t *testing.T) {
	w := NewWarnLog(2)
	w.Add("a")
	w.Add("b")
	w.Add("c")
	recent := w.Recent()
	if len(recent) != 2 {
		t.Fatalf("expected 2 retained entries, got %d", len(recent))
	}
	if recent[0].Message != "b" || recent[1].Message != "c" {
		t.Fatalf("unexpected entries: %+v", recent)
	}
}
