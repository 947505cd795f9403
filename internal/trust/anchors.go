package trust

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/core/service"
	"github.com/yndnr/vaultgate/internal/infra/confloader"
	"github.com/yndnr/vaultgate/pkg/digest"
)

// LedgerEntry is one trusted blob.
type LedgerEntry struct {
	ID     string `koanf:"id" json:"id" yaml:"id"`
	Digest string `koanf:"digest" json:"digest" yaml:"digest"`
}

// manifestItem keeps Value untyped so a nested value is reported instead of
// silently decoded. Scalars arrive as the text written in the file.
type manifestItem struct {
	Key   string `koanf:"key"`
	Value any    `koanf:"value"`
}

// Anchors is a validated ledger and manifest.
type Anchors struct {
	Source   string
	LoadedAt time.Time

	ledger   []LedgerEntry
	manifest domain.Manifest
}

// Load reads and validates the anchors file at path.
func Load(path string) (*Anchors, error) {
	if path == "" {
		return nil, domain.ErrTrustAnchorsInvalid.WithDetails("no anchors file given")
	}

	l := confloader.NewLoader(confloader.WithRawScalars())
	if err := l.LoadFile(path); err != nil {
		return nil, domain.ErrTrustAnchorsInvalid.WithCause(err)
	}
	if !l.Exists("ledger") && !l.Exists("manifest") {
		return nil, domain.ErrTrustAnchorsInvalid.WithDetails(path + ": neither ledger nor manifest present")
	}

	var ledger []LedgerEntry
	if err := l.UnmarshalKey("ledger", &ledger); err != nil {
		return nil, domain.ErrLedgerInvalid.WithCause(err)
	}
	var items []manifestItem
	if err := l.UnmarshalKey("manifest", &items); err != nil {
		return nil, domain.ErrManifestInvalid.WithCause(err)
	}

	entries := make([]domain.ManifestEntry, 0, len(items))
	for i, it := range items {
		v, err := confloader.ScalarString(it.Value)
		if err != nil {
			return nil, domain.ErrManifestInvalid.WithDetails(fmt.Sprintf("manifest[%d] %q: %v", i, it.Key, err))
		}
		entries = append(entries, domain.ManifestEntry{Key: it.Key, Value: v})
	}

	a, err := NewAnchors(ledger, entries)
	if err != nil {
		return nil, err
	}
	a.Source = path
	return a, nil
}

// NewAnchors validates a ledger and manifest.
//
// Ledger ids must be non-empty and unique. Digests must be 64 lowercase hex
// characters or a CID, which is converted to hex.
func NewAnchors(ledger []LedgerEntry, manifest []domain.ManifestEntry) (*Anchors, error) {
	seen := make(map[string]struct{}, len(ledger))
	normalized := make([]LedgerEntry, 0, len(ledger))

	for i, e := range ledger {
		if e.ID == "" {
			return nil, domain.ErrLedgerInvalid.WithDetails(fmt.Sprintf("ledger[%d]: empty id", i))
		}
		if len(e.ID) > domain.MaxBlobIDLength {
			return nil, domain.ErrLedgerInvalid.WithDetails(fmt.Sprintf("ledger[%d]: id longer than %d", i, domain.MaxBlobIDLength))
		}
		if _, dup := seen[e.ID]; dup {
			return nil, domain.ErrLedgerInvalid.WithDetails(fmt.Sprintf("ledger[%d]: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = struct{}{}

		d, err := normalizeDigest(e.Digest)
		if err != nil {
			return nil, domain.ErrLedgerInvalid.WithDetails(fmt.Sprintf("ledger[%d] %q: %v", i, e.ID, err))
		}
		normalized = append(normalized, LedgerEntry{ID: e.ID, Digest: d})
	}

	m, err := domain.NewManifest(manifest...)
	if err != nil {
		return nil, err
	}

	return &Anchors{
		LoadedAt: time.Now(),
		ledger:   normalized,
		manifest: m,
	}, nil
}

func normalizeDigest(d string) (string, error) {
	switch {
	case digest.IsHex(d):
		return d, nil
	case strings.HasPrefix(d, "b") || strings.HasPrefix(d, "Qm"):
		hex, err := digest.HexFromCID(d)
		if err != nil {
			return "", fmt.Errorf("digest is not a sha2-256 CID: %w", err)
		}
		return hex, nil
	default:
		return "", fmt.Errorf("digest must be %d lowercase hex characters", digest.HexLength)
	}
}

// Sentinel builds a Sentinel over these anchors.
func (a *Anchors) Sentinel() *service.Sentinel {
	return service.NewSentinel(a.LedgerMap(), a.manifest)
}

// Ledger returns the ledger entries in file order.
func (a *Anchors) Ledger() []LedgerEntry {
	out := make([]LedgerEntry, len(a.ledger))
	copy(out, a.ledger)
	return out
}

// LedgerMap returns the ledger as id to digest.
func (a *Anchors) LedgerMap() map[string]string {
	m := make(map[string]string, len(a.ledger))
	for _, e := range a.ledger {
		m[e.ID] = e.Digest
	}
	return m
}

// Manifest returns the configuration manifest.
func (a *Anchors) Manifest() domain.Manifest {
	return a.manifest
}

// Fingerprint identifies the anchors content. Ledger order does not
// matter; manifest order does, because drift is reported in that order.
func (a *Anchors) Fingerprint() string {
	ledger := a.Ledger()
	sort.Slice(ledger, func(i, j int) bool { return ledger[i].ID < ledger[j].ID })

	var b strings.Builder
	b.WriteString("vaultgate-anchors/v1\nledger\n")
	for _, e := range ledger {
		fmt.Fprintf(&b, "%q %s\n", e.ID, e.Digest)
	}
	b.WriteString("manifest\n")
	a.manifest.Each(func(k, v string) bool {
		fmt.Fprintf(&b, "%q=%q\n", k, v)
		return true
	})

	fp, err := digest.CID([]byte(b.String()))
	if err != nil {
		return digest.Hex([]byte(b.String()))
	}
	return fp
}
