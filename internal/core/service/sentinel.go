package service

import (
	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/pkg/digest"
)

// ReasonMissingSignature is the IntegrityFailure reason for a blob whose
// content is trusted but which carries no signature.
const ReasonMissingSignature = "Missing or invalid blob signature"

// SentinelSource yields the Sentinel that a load sequence should use.
// A *Sentinel is its own source; reloadable sources swap whole Sentinels.
type SentinelSource interface {
	Current() *Sentinel
}

// Sentinel holds the two trust anchors and verifies blobs and runtime
// configuration against them.
//
// The ledger maps blob ID to the expected lowercase hex SHA-256 digest of
// the blob's state vector. The manifest lists configuration parameters
// in the order they are checked.
type Sentinel struct {
	ledger   map[string]string
	manifest domain.Manifest
}

// NewSentinel creates a Sentinel from trusted data. The ledger is copied;
// later changes to the caller's map have no effect. Manifest values are
// already immutable and are shared.
func NewSentinel(ledger map[string]string, manifest domain.Manifest) *Sentinel {
	l := make(map[string]string, len(ledger))
	for id, d := range ledger {
		l[id] = d
	}
	return &Sentinel{
		ledger:   l,
		manifest: manifest,
	}
}

// Current implements SentinelSource.
func (s *Sentinel) Current() *Sentinel {
	return s
}

// VerifyProvenance checks that blob is recorded in the ledger, that its
// state vector hashes to the recorded digest, and that it is signed.
//
// Returns *domain.UnauthorizedReplay, *domain.ProvenanceMismatch or
// *domain.IntegrityFailure, in that order of precedence.
func (s *Sentinel) VerifyProvenance(blob *domain.VaultedBlob) error {
	if blob == nil {
		return &domain.IntegrityFailure{Reason: "nil blob"}
	}

	actual := digest.Hex(blob.StateVector)

	expected, ok := s.ledger[blob.ID]
	if !ok {
		return &domain.UnauthorizedReplay{BlobID: blob.ID}
	}
	if actual != expected {
		return &domain.ProvenanceMismatch{Expected: expected, Actual: actual}
	}

	if !signaturePresent(blob.Signature) {
		return &domain.IntegrityFailure{Reason: ReasonMissingSignature}
	}
	return nil
}

// CheckDrift compares current against the manifest in manifest order and
// reports the first parameter that is absent or differs. Keys in current
// that the manifest does not name are ignored. A nil map is empty.
func (s *Sentinel) CheckDrift(current map[string]string) error {
	var drift *domain.ConfigDrift
	s.manifest.Each(func(key, want string) bool {
		got, ok := current[key]
		if !ok {
			drift = &domain.ConfigDrift{Parameter: key, Expected: want, Actual: domain.MissingValue}
			return false
		}
		if got != want {
			drift = &domain.ConfigDrift{Parameter: key, Expected: want, Actual: got}
			return false
		}
		return true
	})
	if drift != nil {
		return drift
	}
	return nil
}

// ExpectedDigest returns the ledger digest recorded for id.
func (s *Sentinel) ExpectedDigest(id string) (string, bool) {
	d, ok := s.ledger[id]
	return d, ok
}

// LedgerSize returns the number of trusted blob IDs.
func (s *Sentinel) LedgerSize() int {
	return len(s.ledger)
}

// Ledger returns a copy of the ledger.
func (s *Sentinel) Ledger() map[string]string {
	out := make(map[string]string, len(s.ledger))
	for id, d := range s.ledger {
		out[id] = d
	}
	return out
}

// Manifest returns the manifest. Manifest values are read-only.
func (s *Sentinel) Manifest() domain.Manifest {
	return s.manifest
}

// signaturePresent is the whole signature check: no signing scheme is
// wired yet, so any non-empty value passes.
// TODO: verify against a detached signature once trust anchors carry public keys.
func signaturePresent(sig string) bool {
	return sig != ""
}
