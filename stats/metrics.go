// PrometheusExporter optionally mirrors a Stats snapshot into a
// prometheus.Registry, following the nil-registry-means-no-op pattern
// from C360Studio-semstreams's input/udp/udp.go newMetrics: running
// without --metrics-addr costs nothing, since the exporter is simply never
// constructed.
package stats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter registers and updates the Prometheus gauges/
// counters that mirror a Registry's snapshot.
type PrometheusExporter struct {
	datagrams   prometheus.Counter
	bytes       prometheus.Counter
	dropped     prometheus.Counter
	backlogUsed prometheus.Gauge
	clumpSize   prometheus.Histogram
}

// NewPrometheusExporter registers dg-cat's metrics on reg. Returns nil
// if reg is nil, matching semstreams' nil-registry-means-nil-metrics
// convention.
func NewPrometheusExporter(reg prometheus.Registerer) *PrometheusExporter {
	if reg == nil {
		return nil
	}
	e := &PrometheusExporter{
		datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dgcat", Name: "datagrams_total", Help: "Total datagrams copied.",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dgcat", Name: "bytes_total", Help: "Total payload bytes copied.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dgcat", Name: "datagrams_dropped_total", Help: "Datagrams discarded before reaching the ring.",
		}),
		backlogUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dgcat", Name: "ring_backlog_bytes", Help: "Current ring backlog occupancy in bytes.",
		}),
		clumpSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dgcat", Name: "recv_clump_size", Help: "Largest datagrams-per-recv-call batch, observed each time it grows.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	reg.MustRegister(e.datagrams, e.bytes, e.dropped, e.backlogUsed, e.clumpSize)
	return e
}

// Observe mirrors one Stats snapshot's deltas into the Prometheus
// series. Callers pass the delta in datagrams/bytes/dropped since the
// last Observe call, because prometheus.Counter only moves forward.
func (e *PrometheusExporter) Observe(deltaDatagrams, deltaBytes, deltaDropped int64, backlogUsed int, clumpSize int) {
	if e == nil {
		return
	}
	if deltaDatagrams > 0 {
		e.datagrams.Add(float64(deltaDatagrams))
	}
	if deltaBytes > 0 {
		e.bytes.Add(float64(deltaBytes))
	}
	if deltaDropped > 0 {
		e.dropped.Add(float64(deltaDropped))
	}
	e.backlogUsed.Set(float64(backlogUsed))
	if clumpSize > 0 {
		e.clumpSize.Observe(float64(clumpSize))
	}
}
