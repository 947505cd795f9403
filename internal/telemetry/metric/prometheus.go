package metric

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/vaultgate/internal/core/domain"
)

const namespace = "vaultgate"

// Registry holds all application metrics on a private prometheus.Registry.
type Registry struct {
	registry *prometheus.Registry

	// Load sequence metrics
	LoadSequences *prometheus.CounterVec
	Refusals      *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Trust metrics
	TrustReloads *prometheus.CounterVec

	// Vault metrics
	VaultOperations *prometheus.CounterVec
}

// NewRegistry creates a registry with all vaultgate metrics plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		LoadSequences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_sequences_total",
			Help:      "Finished load sequences by outcome.",
		}, []string{"outcome"}),
		Refusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refusals_total",
			Help:      "Load sequences halted, by refusal kind.",
		}, []string{"kind"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each check stage.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"stage"}),
		TrustReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trust_reloads_total",
			Help:      "Trust anchor reload attempts by result.",
		}, []string{"result"}),
		VaultOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vault_operations_total",
			Help:      "Vault store operations by operation and result.",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(r.LoadSequences, r.Refusals, r.StageDuration, r.TrustReloads, r.VaultOperations)

	// Expose every series at zero so dashboards see absent refusals.
	for _, outcome := range []string{"green_light", "halt"} {
		r.LoadSequences.WithLabelValues(outcome)
	}
	for _, kind := range domain.AllRefusalKinds() {
		r.Refusals.WithLabelValues(string(kind))
	}
	for _, result := range []string{"ok", "error"} {
		r.TrustReloads.WithLabelValues(result)
	}

	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Prometheus returns the underlying registry for packages that register
// their own collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// WriteToTextfile writes all metrics to path in the text exposition format.
func (r *Registry) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// ObserveStage records time spent in a check stage.
func (r *Registry) ObserveStage(stage string, elapsed time.Duration) {
	r.StageDuration.WithLabelValues(strings.ToLower(stage)).Observe(elapsed.Seconds())
}

// RecordLoad records a finished load sequence.
func (r *Registry) RecordLoad(outcome, kind string) {
	r.LoadSequences.WithLabelValues(strings.ToLower(outcome)).Inc()
	if kind != "" {
		r.Refusals.WithLabelValues(kind).Inc()
	}
}

// RecordTrustReload records a trust anchor reload attempt.
func (r *Registry) RecordTrustReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.TrustReloads.WithLabelValues(result).Inc()
}

// RecordVaultOp records a vault store operation.
func (r *Registry) RecordVaultOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.VaultOperations.WithLabelValues(op, result).Inc()
}
