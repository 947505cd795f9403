package service

import (
	"time"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/telemetry/logger"
)

// Recorder receives load sequence measurements.
type Recorder interface {
	// ObserveStage records time spent in a check stage.
	ObserveStage(stage string, elapsed time.Duration)
	// RecordLoad records a finished sequence. kind is empty on GREEN_LIGHT.
	RecordLoad(outcome string, kind string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) RecordLoad(string, string)          {}

// LoadReport describes one finished load sequence.
type LoadReport struct {
	BlobID    string                  `json:"blob_id"`
	Stage     Stage                   `json:"stage"`
	Trail     []Stage                 `json:"trail"`
	Refusal   domain.Refusal          `json:"-"`
	Durations map[Stage]time.Duration `json:"durations"`
	StartedAt time.Time               `json:"started_at"`
	Elapsed   time.Duration           `json:"elapsed"`
}

// Ready reports whether the blob may be handed to the destination runtime.
func (r *LoadReport) Ready() bool {
	return r.Stage == StageGreenLight
}

// Err returns the refusal as an error, or nil on GREEN_LIGHT.
func (r *LoadReport) Err() error {
	if r.Refusal == nil {
		return nil
	}
	return r.Refusal
}

// Option configures a LoadSequencer.
type Option func(*LoadSequencer)

// WithLogger sets the logger. Stage progress goes out at Info, halts at Error.
func WithLogger(l logger.Logger) Option {
	return func(q *LoadSequencer) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(q *LoadSequencer) {
		if r != nil {
			q.recorder = r
		}
	}
}

// LoadSequencer chains provenance and drift verification into a single
// all-or-nothing load decision:
//
//	INITIATED -> PROVENANCE_CHECK -> DRIFT_CHECK -> GREEN_LIGHT
//	                    |                 |
//	                    +------> HALT <---+
//
// The first failing check halts the sequence; later checks never run.
// A LoadSequencer is safe for concurrent use.
type LoadSequencer struct {
	source   SentinelSource
	logger   logger.Logger
	recorder Recorder
}

// NewLoadSequencer creates a sequencer reading trust anchors from source.
func NewLoadSequencer(source SentinelSource, opts ...Option) *LoadSequencer {
	q := &LoadSequencer{
		source:   source,
		logger:   logger.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Run executes one load sequence for blob against runtimeConfig.
//
// The returned error is the refusal that halted the sequence, or nil on
// GREEN_LIGHT. The report is always non-nil.
func (q *LoadSequencer) Run(blob *domain.VaultedBlob, runtimeConfig map[string]string) (*LoadReport, error) {
	report := &LoadReport{
		Durations: make(map[Stage]time.Duration, 2),
		StartedAt: time.Now(),
	}
	if blob != nil {
		report.BlobID = blob.ID
	}
	log := q.logger.With("blob_id", report.BlobID)
	m := newStageMachine()

	log.Info("load sequence initiated")

	// One Sentinel per run, even if the source reloads meanwhile.
	var sentinel *Sentinel
	if q.source != nil {
		sentinel = q.source.Current()
	}

	if err := m.advance(StageProvenanceCheck); err != nil {
		return q.abort(m, report, log, err)
	}
	log.Info("verifying blob provenance against trust ledger")
	if sentinel == nil {
		return q.halt(m, report, log, &domain.IntegrityFailure{Reason: "no trust anchors loaded"})
	}

	start := time.Now()
	err := sentinel.VerifyProvenance(blob)
	q.observe(report, StageProvenanceCheck, start)
	if err != nil {
		return q.halt(m, report, log, err)
	}
	log.Info("provenance verified; content matches trusted digest",
		"digest", recordedDigest(sentinel, report.BlobID))

	if err := m.advance(StageDriftCheck); err != nil {
		return q.abort(m, report, log, err)
	}
	log.Info("checking runtime configuration drift")

	start = time.Now()
	err = sentinel.CheckDrift(runtimeConfig)
	q.observe(report, StageDriftCheck, start)
	if err != nil {
		return q.halt(m, report, log, err)
	}
	log.Info("runtime configuration matches manifest", "parameters", sentinel.Manifest().Len())

	if err := m.advance(StageGreenLight); err != nil {
		return q.abort(m, report, log, err)
	}
	q.finish(m, report)
	log.Info("green light: blob cleared for hand-off", "elapsed", report.Elapsed)
	return report, nil
}

// halt moves the sequence to HALT with cause as its refusal.
func (q *LoadSequencer) halt(m *stageMachine, report *LoadReport, log logger.Logger, cause error) (*LoadReport, error) {
	failedAt := m.current
	if err := m.advance(StageHalt); err != nil {
		return q.abort(m, report, log, err)
	}

	r, ok := domain.AsRefusal(cause)
	if !ok {
		r = &domain.IntegrityFailure{Reason: cause.Error()}
	}
	report.Refusal = r
	q.finish(m, report)

	args := []any{"stage", failedAt, "kind", r.Kind(), "code", r.Code(), "error", r.Error()}
	log.Error("load halted", append(args, domain.VisitRefusal[[]any](r, refusalAttrs{})...)...)
	return report, r
}

// refusalAttrs renders the fields of each refusal variant as log attributes.
type refusalAttrs struct{}

func (refusalAttrs) VisitProvenanceMismatch(e *domain.ProvenanceMismatch) []any {
	return []any{"expected_digest", e.Expected, "actual_digest", e.Actual}
}

func (refusalAttrs) VisitConfigDrift(e *domain.ConfigDrift) []any {
	return []any{"parameter", e.Parameter, "expected", e.Expected, "actual", e.Actual}
}

func (refusalAttrs) VisitUnauthorizedReplay(*domain.UnauthorizedReplay) []any {
	return []any{"in_ledger", false}
}

func (refusalAttrs) VisitIntegrityFailure(e *domain.IntegrityFailure) []any {
	return []any{"reason", e.Reason}
}

// abort handles a disallowed stage transition. It cannot happen through
// Run's own control flow; if it does, the load is refused.
func (q *LoadSequencer) abort(m *stageMachine, report *LoadReport, log logger.Logger, cause error) (*LoadReport, error) {
	r := &domain.IntegrityFailure{Reason: cause.Error()}
	failedAt := m.current
	m.current = StageHalt
	m.trail = append(m.trail, StageHalt)
	report.Refusal = r
	q.finish(m, report)

	log.Error("load halted", "stage", failedAt, "kind", r.Kind(), "code", r.Code(), "error", r.Error())
	return report, r
}

func (q *LoadSequencer) observe(report *LoadReport, stage Stage, start time.Time) {
	d := time.Since(start)
	report.Durations[stage] = d
	q.recorder.ObserveStage(string(stage), d)
}

func (q *LoadSequencer) finish(m *stageMachine, report *LoadReport) {
	report.Stage = m.current
	report.Trail = append([]Stage(nil), m.trail...)
	report.Elapsed = time.Since(report.StartedAt)

	var kind string
	if report.Refusal != nil {
		kind = string(report.Refusal.Kind())
	}
	q.recorder.RecordLoad(string(report.Stage), kind)
}

func recordedDigest(s *Sentinel, id string) string {
	d, _ := s.ExpectedDigest(id)
	return d
}

// ExecuteLoadSequence runs a single load sequence with the default logger
// and no metrics. It returns nil on GREEN_LIGHT and the halting refusal
// otherwise.
func ExecuteLoadSequence(sentinel *Sentinel, blob *domain.VaultedBlob, runtimeConfig map[string]string) error {
	var source SentinelSource
	if sentinel != nil {
		source = sentinel
	}
	_, err := NewLoadSequencer(source).Run(blob, runtimeConfig)
	return err
}
