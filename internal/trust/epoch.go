package trust

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/yndnr/vaultgate/internal/core/service"
	"github.com/yndnr/vaultgate/internal/infra/confloader"
	"github.com/yndnr/vaultgate/internal/telemetry/logger"
	"github.com/yndnr/vaultgate/internal/telemetry/metric"
)

// Recorder receives reload outcomes.
type Recorder interface {
	RecordTrustReload(err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordTrustReload(error) {}

type epochState struct {
	anchors  *Anchors
	sentinel *service.Sentinel
	seq      uint64
}

// EpochOption configures an Epoch.
type EpochOption func(*Epoch)

// WithEpochLogger sets the epoch logger.
func WithEpochLogger(l logger.Logger) EpochOption {
	return func(e *Epoch) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEpochRecorder sets the reload recorder.
func WithEpochRecorder(r Recorder) EpochOption {
	return func(e *Epoch) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Epoch holds the current trust anchors loaded from a file.
//
// It implements service.SentinelSource and metric.TrustSource.
type Epoch struct {
	path     string
	logger   logger.Logger
	recorder Recorder

	state atomic.Pointer[epochState]

	reloadMu sync.Mutex
	swapMu   sync.RWMutex
	onSwap   []func(*Anchors)

	watcher *confloader.Watcher
}

// NewEpoch loads the anchors at path. The first load must succeed.
func NewEpoch(path string, opts ...EpochOption) (*Epoch, error) {
	e := &Epoch{
		path:     path,
		logger:   logger.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "trust", "anchors", path)

	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Current returns the Sentinel of the current epoch.
func (e *Epoch) Current() *service.Sentinel {
	if s := e.state.Load(); s != nil {
		return s.sentinel
	}
	return nil
}

// Anchors returns the anchors of the current epoch.
func (e *Epoch) Anchors() *Anchors {
	if s := e.state.Load(); s != nil {
		return s.anchors
	}
	return nil
}

// Seq counts successful loads, starting at 1.
func (e *Epoch) Seq() uint64 {
	if s := e.state.Load(); s != nil {
		return s.seq
	}
	return 0
}

// TrustState reports the current epoch for metrics.
func (e *Epoch) TrustState() (metric.TrustState, bool) {
	s := e.state.Load()
	if s == nil {
		return metric.TrustState{}, false
	}
	return metric.TrustState{
		Fingerprint:     s.anchors.Fingerprint(),
		LedgerEntries:   len(s.anchors.ledger),
		ManifestEntries: s.anchors.manifest.Len(),
		LoadedAt:        s.anchors.LoadedAt,
	}, true
}

// OnSwap registers fn to run after each successful load.
func (e *Epoch) OnSwap(fn func(*Anchors)) {
	e.swapMu.Lock()
	defer e.swapMu.Unlock()
	e.onSwap = append(e.onSwap, fn)
}

// Reload reads the anchors file again. On failure the current epoch stays
// in place and the error is returned.
func (e *Epoch) Reload() error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	a, err := Load(e.path)
	e.recorder.RecordTrustReload(err)
	if err != nil {
		if prev := e.state.Load(); prev != nil {
			e.logger.Warn("trust reload failed; keeping previous epoch",
				"seq", prev.seq,
				"error", err)
		}
		return err
	}

	prev := e.state.Load()
	next := &epochState{anchors: a, sentinel: a.Sentinel(), seq: 1}
	if prev != nil {
		next.seq = prev.seq + 1
	}
	e.state.Store(next)

	e.logger.Info("trust epoch loaded",
		"seq", next.seq,
		"fingerprint", a.Fingerprint(),
		"ledger_entries", len(a.ledger),
		"manifest_entries", a.manifest.Len())

	e.swapMu.RLock()
	hooks := e.onSwap
	e.swapMu.RUnlock()
	for _, fn := range hooks {
		fn(a)
	}
	return nil
}

// Watch reloads the epoch whenever the anchors file changes.
func (e *Epoch) Watch() error {
	e.reloadMu.Lock()
	if e.watcher != nil {
		e.reloadMu.Unlock()
		return errors.New("trust: already watching")
	}
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(e.logger))
	if err != nil {
		e.reloadMu.Unlock()
		return err
	}
	if err := w.Watch(e.path); err != nil {
		e.reloadMu.Unlock()
		w.Stop()
		return err
	}
	e.watcher = w
	e.reloadMu.Unlock()

	w.OnChange(func(string) {
		_ = e.Reload()
	})
	w.StartAsync()
	return nil
}

// Close stops watching. The current epoch stays readable.
func (e *Epoch) Close() error {
	e.reloadMu.Lock()
	w := e.watcher
	e.watcher = nil
	e.reloadMu.Unlock()

	if w == nil {
		return nil
	}
	return w.Stop()
}

var (
	_ service.SentinelSource = (*Epoch)(nil)
	_ metric.TrustSource     = (*Epoch)(nil)
)
