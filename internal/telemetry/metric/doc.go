// Package metric provides Prometheus metrics for vaultgate.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Registry, load sequence recorder and exposition
//   - collector.go: scrape-time collector for the live trust epoch
//
// Metrics include:
//
//   - Load sequence outcomes and refusal kinds
//   - Per-stage check latency histograms
//   - Trust anchor reloads and ledger size
//   - Badger storage sizes (registered by the storage package)
//
// Metrics are exposed through Handler or written once to a
// node_exporter textfile with WriteToTextfile.
package metric
