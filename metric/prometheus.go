package metric

import (
	"time"

	"github.com/hupe1980/mapres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ mapres.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements mapres.MetricsCollector with Prometheus
// counters, gauges and histograms.
type PrometheusCollector struct {
	maps             *prometheus.CounterVec
	mapDuration      prometheus.Histogram
	mappedBytes      prometheus.Gauge
	unmaps           prometheus.Counter
	snapshotLoads    *prometheus.CounterVec
	snapshotDuration prometheus.Histogram
	snapshotBytes    prometheus.Gauge
	snapshotUnloads  prometheus.Counter
}

// NewPrometheusCollector registers the collector's metrics with reg under
// the given metric namespace. A nil reg leaves the metrics unregistered.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	factory := promauto.With(reg)

	// Loads range from a page-cache hit to a remote fetch.
	buckets := []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	return &PrometheusCollector{
		maps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_loads_total",
			Help:      "Resource load attempts by protection and result.",
		}, []string{"prot", "result"}),
		mapDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resource_load_duration_seconds",
			Help:      "Time to resolve and map a resource.",
			Buckets:   buckets,
		}),
		mappedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resource_mapped_bytes",
			Help:      "Bytes currently mapped by resources.",
		}),
		unmaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_unloads_total",
			Help:      "Resource mappings released.",
		}),
		snapshotLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_loads_total",
			Help:      "ELF snapshot load attempts by result.",
		}, []string{"result"}),
		snapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_load_duration_seconds",
			Help:      "Time to open and map an ELF snapshot.",
			Buckets:   buckets,
		}),
		snapshotBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_mapped_bytes",
			Help:      "Bytes currently mapped by ELF snapshots.",
		}),
		snapshotUnloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_unloads_total",
			Help:      "ELF snapshots released.",
		}),
	}
}

// RecordMap implements mapres.MetricsCollector.
func (p *PrometheusCollector) RecordMap(size int, executable bool, duration time.Duration, err error) {
	prot := "r"
	if executable {
		prot = "rx"
	}
	p.maps.WithLabelValues(prot, result(err)).Inc()
	p.mapDuration.Observe(duration.Seconds())
	if err == nil {
		p.mappedBytes.Add(float64(size))
	}
}

// RecordUnmap implements mapres.MetricsCollector.
func (p *PrometheusCollector) RecordUnmap(size int) {
	p.unmaps.Inc()
	p.mappedBytes.Sub(float64(size))
}

// RecordSnapshotLoad implements mapres.MetricsCollector.
func (p *PrometheusCollector) RecordSnapshotLoad(size uintptr, duration time.Duration, err error) {
	p.snapshotLoads.WithLabelValues(result(err)).Inc()
	p.snapshotDuration.Observe(duration.Seconds())
	if err == nil {
		p.snapshotBytes.Add(float64(size))
	}
}

// RecordSnapshotUnload implements mapres.MetricsCollector.
func (p *PrometheusCollector) RecordSnapshotUnload(size uintptr) {
	p.snapshotUnloads.Inc()
	p.snapshotBytes.Sub(float64(size))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
