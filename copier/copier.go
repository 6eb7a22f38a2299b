// Package copier implements the C8 Copier and C9 Signal Surface: it
// aggregates the ring, a Source, and a Sink behind one facade with
// Start/Wait/Close lifecycle methods, grounded on the teacher's
// facade.HioloadWS (facade/hioload.go) applied to the three-subsystem
// shape of original_source's DatagramCopier
// (include/dg_cat/datagram_copier.hpp): source and sink each run on
// their own goroutine, the first error from either is captured and
// propagated from Wait, and ForceEOF/Close forward into the source so
// a blocked receive unblocks via descriptor close.
package copier

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mckelvie-org/dg-cat/config"
	"github.com/mckelvie-org/dg-cat/internal/dgerr"
	"github.com/mckelvie-org/dg-cat/internal/ring"
	"github.com/mckelvie-org/dg-cat/sink"
	"github.com/mckelvie-org/dg-cat/source"
	"github.com/mckelvie-org/dg-cat/stats"
)

// metricsInterval is how often a Copier with an attached
// PrometheusExporter diffs the stats Registry and publishes the
// result, independent of any scrape interval a collector polls
// /metrics with.
const metricsInterval = time.Second

// Copier owns the ring, source, sink, and stats for one run, and the
// two worker goroutines that drive them.
type Copier struct {
	cfg *config.Config
	log *slog.Logger

	ring    *ring.Ring
	src     source.Source
	snk     sink.Sink
	reg     *stats.Registry
	warnLog *stats.WarnLog
	probes  *stats.Probes
	metrics *stats.PrometheusExporter

	mu        sync.Mutex
	started   bool
	done      sync.WaitGroup
	firstErr  error
	sigCancel func()

	metricsStop chan struct{}
	metricsDone sync.WaitGroup
}

// New constructs a Copier from a validated Config. Call cfg.Validate()
// first; New does not validate again.
func New(cfg *config.Config, logger *slog.Logger) (*Copier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := source.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("copier: %w", err)
	}
	snk, err := sink.Open(cfg)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("copier: %w", err)
	}
	c := &Copier{
		cfg:     cfg,
		log:     logger,
		ring:    ring.New(cfg.MaxBacklog),
		src:     src,
		snk:     snk,
		reg:     stats.NewRegistry(),
		warnLog: stats.NewWarnLog(64),
	}
	c.probes = stats.NewProbes(c.reg, c.warnLog)
	return c, nil
}

// WithMetrics attaches an optional Prometheus exporter, matching the
// nil-registry-means-no-op convention used throughout (see
// stats.NewPrometheusExporter).
func (c *Copier) WithMetrics(exp *stats.PrometheusExporter) *Copier {
	c.metrics = exp
	return c
}

// Start launches the source and sink goroutines. Matches
// DatagramCopier::start: the destination (sink) thread is started
// first so it is ready to drain before the source can possibly produce,
// and any construction-time or startup exception on either side forces
// EOF on the other before propagating.
func (c *Copier) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("copier: %w", dgerr.ErrAlreadyStarted)
	}
	c.started = true

	c.done.Add(2)
	go c.runSink()
	go c.runSource()

	if c.metrics != nil {
		c.metricsStop = make(chan struct{})
		c.metricsDone.Add(1)
		go c.runMetrics()
	}
	return nil
}

// runMetrics periodically diffs the stats Registry against the last
// observation and publishes the deltas, since prometheus.Counter only
// moves forward while Registry.Get() returns cumulative totals.
func (c *Copier) runMetrics() {
	defer c.metricsDone.Done()
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	var prev stats.Stats
	for {
		select {
		case <-ticker.C:
			prev = c.observeMetrics(prev)
		case <-c.metricsStop:
			c.observeMetrics(prev)
			return
		}
	}
}

func (c *Copier) observeMetrics(prev stats.Stats) stats.Stats {
	snap := c.reg.Get()
	deltaDatagrams := snap.Ring.NDatagrams - prev.Ring.NDatagrams
	deltaBytes := snap.Ring.NDatagramBytes - prev.Ring.NDatagramBytes
	deltaDropped := snap.Ring.NDatagramsDropped - prev.Ring.NDatagramsDropped
	clumpSize := 0
	if snap.Source.MaxClumpSize > prev.Source.MaxClumpSize {
		clumpSize = snap.Source.MaxClumpSize
	}
	c.metrics.Observe(deltaDatagrams, deltaBytes, deltaDropped, c.ring.Snapshot().Used, clumpSize)
	return snap
}

func (c *Copier) runSink() {
	defer c.done.Done()
	if err := c.snk.CopyFromRing(c.ring, c.reg, c.warnLog); err != nil {
		c.log.Error("sink error", "err", err)
		c.recordFailure(err)
		c.src.ForceEOF()
	}
}

func (c *Copier) runSource() {
	defer c.done.Done()
	if err := c.src.CopyToRing(c.ring, c.reg, c.warnLog); err != nil {
		c.log.Error("source error", "err", err)
		c.recordFailure(err)
		c.ring.SetEOF()
	}
}

func (c *Copier) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firstErr == nil {
		c.firstErr = err
	}
}

// ForceEOF asks the source to stop receiving as soon as possible,
// matching DatagramCopier::force_eof.
func (c *Copier) ForceEOF() {
	c.src.ForceEOF()
}

// Wait blocks until both worker goroutines have exited, then returns
// the first error either of them produced, if any.
func (c *Copier) Wait() error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return fmt.Errorf("copier: %w", dgerr.ErrNotStarted)
	}
	c.done.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstErr
}

// Close forces EOF and waits for shutdown, matching
// DatagramCopier::close.
func (c *Copier) Close() error {
	c.ForceEOF()
	err := c.Wait()
	_ = c.src.Close()
	_ = c.snk.Close()
	if c.metricsStop != nil {
		close(c.metricsStop)
		c.metricsDone.Wait()
	}
	return err
}

// Stats returns the current aggregated stats snapshot.
func (c *Copier) Stats() stats.Stats {
	return c.reg.Get()
}

// DumpDiagnostics returns the probe dump (stats brief line + recent
// warnings) used by the SIGUSR1 handler.
func (c *Copier) DumpDiagnostics() map[string]any {
	return c.probes.DumpState()
}
