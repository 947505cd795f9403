package domain

import (
	"errors"
	"fmt"
)

// RefusalKind names one variant of the refusal taxonomy.
type RefusalKind string

const (
	KindProvenanceMismatch RefusalKind = "provenance_mismatch"
	KindConfigDrift        RefusalKind = "config_drift"
	KindUnauthorizedReplay RefusalKind = "unauthorized_replay"
	KindIntegrityFailure   RefusalKind = "integrity_failure"
)

// Refusal codes.
const (
	CodeUnauthorizedReplay = "VG-GATE-4010"
	CodeIntegrityFailure   = "VG-GATE-4220"
	CodeProvenanceMismatch = "VG-GATE-4090"
	CodeConfigDrift        = "VG-GATE-4091"
)

// MissingValue is reported as the actual value of a manifest key that the
// runtime configuration does not define.
const MissingValue = "MISSING"

// Refusal is a terminal halt cause produced by the gate.
//
// The set of implementations is closed: ProvenanceMismatch, ConfigDrift,
// UnauthorizedReplay and IntegrityFailure. Use VisitRefusal to branch on
// it; every RefusalVisitor must handle all four.
type Refusal interface {
	error
	Kind() RefusalKind
	Code() string
	refusal()
}

// ProvenanceMismatch: the blob id is trusted but its content digest is not
// the one recorded in the ledger.
type ProvenanceMismatch struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

func (e *ProvenanceMismatch) Error() string {
	return fmt.Sprintf("[%s] provenance mismatch: expected %s, actual %s", e.Code(), e.Expected, e.Actual)
}
func (e *ProvenanceMismatch) Kind() RefusalKind { return KindProvenanceMismatch }
func (e *ProvenanceMismatch) Code() string      { return CodeProvenanceMismatch }
func (*ProvenanceMismatch) refusal()            {}

// ConfigDrift: the runtime configuration differs from the manifest.
type ConfigDrift struct {
	Parameter string `json:"parameter"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
}

func (e *ConfigDrift) Error() string {
	return fmt.Sprintf("[%s] config drift on %q: expected %q, actual %q", e.Code(), e.Parameter, e.Expected, e.Actual)
}
func (e *ConfigDrift) Kind() RefusalKind { return KindConfigDrift }
func (e *ConfigDrift) Code() string      { return CodeConfigDrift }
func (*ConfigDrift) refusal()            {}

// Missing reports whether the parameter was absent from the runtime configuration.
func (e *ConfigDrift) Missing() bool { return e.Actual == MissingValue }

// UnauthorizedReplay: the blob id is not in the ledger at all.
type UnauthorizedReplay struct {
	BlobID string `json:"blob_id"`
}

func (e *UnauthorizedReplay) Error() string {
	return fmt.Sprintf("[%s] unauthorized replay: blob %q is not in the trust ledger", e.Code(), e.BlobID)
}
func (e *UnauthorizedReplay) Kind() RefusalKind { return KindUnauthorizedReplay }
func (e *UnauthorizedReplay) Code() string      { return CodeUnauthorizedReplay }
func (*UnauthorizedReplay) refusal()            {}

// IntegrityFailure: the blob or the sequence is structurally incomplete.
type IntegrityFailure struct {
	Reason string `json:"reason"`
}

func (e *IntegrityFailure) Error() string {
	return fmt.Sprintf("[%s] integrity failure: %s", e.Code(), e.Reason)
}
func (e *IntegrityFailure) Kind() RefusalKind { return KindIntegrityFailure }
func (e *IntegrityFailure) Code() string      { return CodeIntegrityFailure }
func (*IntegrityFailure) refusal()            {}

// RefusalVisitor handles every refusal variant.
type RefusalVisitor[T any] interface {
	VisitProvenanceMismatch(*ProvenanceMismatch) T
	VisitConfigDrift(*ConfigDrift) T
	VisitUnauthorizedReplay(*UnauthorizedReplay) T
	VisitIntegrityFailure(*IntegrityFailure) T
}

// VisitRefusal dispatches r to the matching visitor method.
func VisitRefusal[T any](r Refusal, v RefusalVisitor[T]) T {
	switch r := r.(type) {
	case *ProvenanceMismatch:
		return v.VisitProvenanceMismatch(r)
	case *ConfigDrift:
		return v.VisitConfigDrift(r)
	case *UnauthorizedReplay:
		return v.VisitUnauthorizedReplay(r)
	case *IntegrityFailure:
		return v.VisitIntegrityFailure(r)
	default:
		// Unreachable: refusal() is unexported.
		panic(fmt.Sprintf("domain: unhandled refusal type %T", r))
	}
}

// AsRefusal extracts a Refusal from err's chain.
func AsRefusal(err error) (Refusal, bool) {
	var r Refusal
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsRefusal reports whether err is (or wraps) a refusal of the given kind.
// An empty kind matches any refusal.
func IsRefusal(err error, kind RefusalKind) bool {
	r, ok := AsRefusal(err)
	if !ok {
		return false
	}
	return kind == "" || r.Kind() == kind
}

// AllRefusalKinds lists every variant in a fixed order.
func AllRefusalKinds() []RefusalKind {
	return []RefusalKind{
		KindUnauthorizedReplay,
		KindProvenanceMismatch,
		KindIntegrityFailure,
		KindConfigDrift,
	}
}
