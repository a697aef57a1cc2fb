package flexrec

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the statistics of a TrackingAllocator as Prometheus metrics.
type Collector struct {
	t *TrackingAllocator

	allocations *prometheus.Desc
	frees       *prometheus.Desc
	failures    *prometheus.Desc
	outstanding *prometheus.Desc
	bytesInUse  *prometheus.Desc
	peakBytes   *prometheus.Desc
}

// NewCollector creates a collector for t. Metric names are prefixed with
// namespace when it is not empty.
func NewCollector(t *TrackingAllocator, namespace string) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(namespace, "records", n)
	}
	return &Collector{
		t: t,
		allocations: prometheus.NewDesc(name("allocations_total"),
			"Total number of record allocations", nil, nil),
		frees: prometheus.NewDesc(name("frees_total"),
			"Total number of record allocations released", nil, nil),
		failures: prometheus.NewDesc(name("allocation_failures_total"),
			"Total number of failed record allocations", nil, nil),
		outstanding: prometheus.NewDesc(name("outstanding"),
			"Number of record allocations not yet released", nil, nil),
		bytesInUse: prometheus.NewDesc(name("bytes_in_use"),
			"Bytes held by outstanding record allocations", nil, nil),
		peakBytes: prometheus.NewDesc(name("peak_bytes_in_use"),
			"High-water mark of bytes held by record allocations", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocations
	ch <- c.frees
	ch <- c.failures
	ch <- c.outstanding
	ch <- c.bytesInUse
	ch <- c.peakBytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.t.Metrics()
	ch <- prometheus.MustNewConstMetric(c.allocations, prometheus.CounterValue, float64(m.Allocations))
	ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(m.Frees))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(m.Failures))
	ch <- prometheus.MustNewConstMetric(c.outstanding, prometheus.GaugeValue, float64(m.Outstanding))
	ch <- prometheus.MustNewConstMetric(c.bytesInUse, prometheus.GaugeValue, float64(m.BytesInUse))
	ch <- prometheus.MustNewConstMetric(c.peakBytes, prometheus.GaugeValue, float64(m.PeakBytesInUse))
}
