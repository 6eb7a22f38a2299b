// Package stats implements the C10 Stats component: per-subsystem
// counters each guarded by their own mutex, combined into a single
// Stats snapshot the way original_source's LockableStats<T> template
// and LockableDgCatStats::get combine SourceStats/DestinationStats/
// BufferStats (include/dg_cat/stats.hpp) — never holding more than one
// sub-lock at a time.
package stats

import (
	"fmt"
	"sync"
	"time"
)

// SourceStats mirrors DgSourceStats.
type SourceStats struct {
	mu             sync.Mutex
	MaxClumpSize   int
	StartClockTime time.Time
	StartTime      time.Time
	EndTime        time.Time
}

func (s *SourceStats) RecordBatch(clumpSize int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clumpSize > s.MaxClumpSize {
		s.MaxClumpSize = clumpSize
	}
	if s.StartTime.IsZero() {
		s.StartTime = at
		s.StartClockTime = at
	}
	s.EndTime = at
}

func (s *SourceStats) Snapshot() SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SourceStats{MaxClumpSize: s.MaxClumpSize, StartClockTime: s.StartClockTime, StartTime: s.StartTime, EndTime: s.EndTime}
}

// ElapsedSecs matches DgSourceStats::elapsed_secs().
func (s SourceStats) ElapsedSecs() float64 {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Seconds()
}

// SinkStats mirrors DgDestinationStats (intentionally minimal, matching
// the original, which leaves this struct empty).
type SinkStats struct {
	mu            sync.Mutex
	DatagramsSent int64
	BytesSent     int64
}

func (s *SinkStats) RecordSend(n int) {
	s.mu.Lock()
	s.DatagramsSent++
	s.BytesSent += int64(n)
	s.mu.Unlock()
}

// RecordBytes tracks raw bytes written without incrementing
// DatagramsSent, used by sinks whose write batches don't align to
// datagram boundaries (the stream sink).
func (s *SinkStats) RecordBytes(n int) {
	s.mu.Lock()
	s.BytesSent += int64(n)
	s.mu.Unlock()
}

func (s *SinkStats) Snapshot() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SinkStats{DatagramsSent: s.DatagramsSent, BytesSent: s.BytesSent}
}

// RingStats mirrors DgBufferStats.
type RingStats struct {
	mu                sync.Mutex
	MaxBacklogBytes   int
	NDatagrams        int64
	NDatagramsDropped int64
	NDatagramBytes    int64
	MinDatagramSize   int
	MaxDatagramSize   int
	FirstDatagramSize int
}

func (s *RingStats) RecordDatagram(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NDatagrams == 0 {
		s.FirstDatagramSize = size
		s.MinDatagramSize = size
		s.MaxDatagramSize = size
	} else {
		if size < s.MinDatagramSize {
			s.MinDatagramSize = size
		}
		if size > s.MaxDatagramSize {
			s.MaxDatagramSize = size
		}
	}
	s.NDatagrams++
	s.NDatagramBytes += int64(size)
}

func (s *RingStats) RecordDiscarded(n int64) {
	s.mu.Lock()
	s.NDatagramsDropped += n
	s.mu.Unlock()
}

func (s *RingStats) RecordBacklog(used int) {
	s.mu.Lock()
	if used > s.MaxBacklogBytes {
		s.MaxBacklogBytes = used
	}
	s.mu.Unlock()
}

func (s *RingStats) Snapshot() RingStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RingStats{
		MaxBacklogBytes:   s.MaxBacklogBytes,
		NDatagrams:        s.NDatagrams,
		NDatagramsDropped: s.NDatagramsDropped,
		NDatagramBytes:    s.NDatagramBytes,
		MinDatagramSize:   s.MinDatagramSize,
		MaxDatagramSize:   s.MaxDatagramSize,
		FirstDatagramSize: s.FirstDatagramSize,
	}
}

// Stats aggregates the three groups plus a monotonically increasing
// sequence number, matching DgCatStats::stat_seq.
type Stats struct {
	Seq    int64
	Source SourceStats
	Sink   SinkStats
	Ring   RingStats
}

// Registry owns the live SourceStats/SinkStats/RingStats and produces
// Stats snapshots, matching LockableDgCatStats.
type Registry struct {
	seq    int64
	mu     sync.Mutex
	source SourceStats
	sink   SinkStats
	ring   RingStats
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Source() *SourceStats { return &r.source }
func (r *Registry) Sink() *SinkStats     { return &r.sink }
func (r *Registry) Ring() *RingStats     { return &r.ring }

// Get returns a consistent-enough snapshot, acquiring each group's own
// lock in turn and never holding two at once, per the original's
// explicit design note.
func (r *Registry) Get() Stats {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()
	return Stats{
		Seq:    seq,
		Source: r.source.Snapshot(),
		Sink:   r.sink.Snapshot(),
		Ring:   r.ring.Snapshot(),
	}
}

// ThroughputDatagramsPerSec matches DgCatStats::throughput_datagrams_per_sec,
// which subtracts the first datagram's own contribution because
// start_time is stamped at the first datagram's arrival, not before it.
func (s Stats) ThroughputDatagramsPerSec() float64 {
	elapsed := s.Source.ElapsedSecs()
	if elapsed <= 0 || s.Ring.NDatagrams <= 1 {
		return 0
	}
	return float64(s.Ring.NDatagrams-1) / elapsed
}

// ThroughputBytesPerSec matches DgCatStats::throughput_bytes_per_sec.
func (s Stats) ThroughputBytesPerSec() float64 {
	elapsed := s.Source.ElapsedSecs()
	if elapsed <= 0 || s.Ring.NDatagrams <= 1 {
		return 0
	}
	return float64(s.Ring.NDatagramBytes-int64(s.Ring.FirstDatagramSize)) / elapsed
}

// MeanDatagramSize matches DgCatStats::mean_datagram_size.
func (s Stats) MeanDatagramSize() float64 {
	if s.Ring.NDatagrams == 0 {
		return 0
	}
	return float64(s.Ring.NDatagramBytes) / float64(s.Ring.NDatagrams)
}

// String is the brief_str() equivalent, printed on SIGUSR1 and at clean
// shutdown.
func (s Stats) String() string {
	return fmt.Sprintf(
		"seq=%d datagrams=%d bytes=%d dropped=%d clump_max=%d size_min=%d size_max=%d size_mean=%.1f elapsed=%.3fs backlog_max=%d throughput_dps=%.1f throughput_bps=%.1f",
		s.Seq, s.Ring.NDatagrams, s.Ring.NDatagramBytes, s.Ring.NDatagramsDropped,
		s.Source.MaxClumpSize, s.Ring.MinDatagramSize, s.Ring.MaxDatagramSize, s.MeanDatagramSize(),
		s.Source.ElapsedSecs(), s.Ring.MaxBacklogBytes,
		s.ThroughputDatagramsPerSec(), s.ThroughputBytesPerSec(),
	)
}
