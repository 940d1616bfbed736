package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/shadowhome-go/internal/core/domain"
)

// SnapshotFunc returns the current session view.
type SnapshotFunc func() domain.Snapshot

// Collector exports the live session snapshot at scrape time.
type Collector struct {
	snapshot SnapshotFunc

	state   *prometheus.Desc
	loading *prometheus.Desc
	version *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector reading from fn.
func NewCollector(fn SnapshotFunc) *Collector {
	return &Collector{
		snapshot: fn,
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wallet", "state"),
			"Current wallet session state (0 disconnected .. 4 authenticated)",
			nil, nil),
		loading: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wallet", "loading"),
			"1 while a wallet operation is pending",
			nil, nil),
		version: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "wallet", "snapshot_version"),
			"Version of the current session snapshot",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.state
	ch <- c.loading
	ch <- c.version
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()

	loading := 0.0
	if snap.Loading {
		loading = 1
	}
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(snap.State))
	ch <- prometheus.MustNewConstMetric(c.loading, prometheus.GaugeValue, loading)
	ch <- prometheus.MustNewConstMetric(c.version, prometheus.CounterValue, float64(snap.Version))
}
