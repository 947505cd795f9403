package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TrustState is a point-in-time view of the loaded trust anchors.
type TrustState struct {
	Fingerprint     string
	LedgerEntries   int
	ManifestEntries int
	LoadedAt        time.Time
}

// TrustSource reports the current trust anchors. ok is false while no
// anchors are loaded.
type TrustSource interface {
	TrustState() (state TrustState, ok bool)
}

// TrustCollector exports the live trust epoch at scrape time.
type TrustCollector struct {
	source TrustSource

	ledgerEntries   *prometheus.Desc
	manifestEntries *prometheus.Desc
	loadedAt        *prometheus.Desc
	info            *prometheus.Desc
}

// NewTrustCollector creates a collector reading from source.
func NewTrustCollector(source TrustSource) *TrustCollector {
	return &TrustCollector{
		source: source,
		ledgerEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "trust", "ledger_entries"),
			"Blob IDs in the loaded digest ledger.", nil, nil),
		manifestEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "trust", "manifest_entries"),
			"Parameters in the loaded configuration manifest.", nil, nil),
		loadedAt: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "trust", "loaded_timestamp_seconds"),
			"Unix time the current trust anchors were loaded.", nil, nil),
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "trust", "info"),
			"Fingerprint of the loaded trust anchors.", []string{"fingerprint"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *TrustCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ledgerEntries
	ch <- c.manifestEntries
	ch <- c.loadedAt
	ch <- c.info
}

// Collect implements prometheus.Collector.
func (c *TrustCollector) Collect(ch chan<- prometheus.Metric) {
	state, ok := c.source.TrustState()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.ledgerEntries, prometheus.GaugeValue, float64(state.LedgerEntries))
	ch <- prometheus.MustNewConstMetric(c.manifestEntries, prometheus.GaugeValue, float64(state.ManifestEntries))
	ch <- prometheus.MustNewConstMetric(c.loadedAt, prometheus.GaugeValue, float64(state.LoadedAt.Unix()))
	ch <- prometheus.MustNewConstMetric(c.info, prometheus.GaugeValue, 1, state.Fingerprint)
}
