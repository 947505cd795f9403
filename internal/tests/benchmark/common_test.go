package benchmark

import (
	"crypto/rand"
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/internal/core/service"
	"github.com/yndnr/vaultgate/pkg/digest"
)

// LedgerSizes are the ledger sizes used for lookup benchmarks.
var LedgerSizes = []int{100, 10000, 100000}

// StateSizes are the state vector sizes used for hashing benchmarks.
var StateSizes = []int{1 << 10, 64 << 10, 1 << 20, 16 << 20}

func randomState(b *testing.B, size int) []byte {
	b.Helper()
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		b.Fatal(err)
	}
	return buf
}

// newBlob returns a signed blob with the given state.
func newBlob(id string, state []byte) *domain.VaultedBlob {
	return &domain.VaultedBlob{
		ID:          id,
		Timestamp:   1700000000000,
		StateVector: state,
		Metadata:    map[string]string{"core": "bench"},
		Signature:   "bench-signature",
	}
}

// newSentinel builds a sentinel whose ledger holds size entries and trusts
// blob. The manifest has params entries, all satisfied by runtimeFor.
func newSentinel(b *testing.B, size, params int, blob *domain.VaultedBlob) *service.Sentinel {
	b.Helper()
	ledger := make(map[string]string, size)
	for i := 0; i < size-1; i++ {
		ledger[fmt.Sprintf("blob-%d", i)] = digest.Hex([]byte(fmt.Sprintf("state-%d", i)))
	}
	ledger[blob.ID] = digest.Hex(blob.StateVector)

	entries := make([]domain.ManifestEntry, params)
	for i := range entries {
		entries[i] = domain.ManifestEntry{Key: fmt.Sprintf("param.%d", i), Value: fmt.Sprintf("v%d", i)}
	}
	m, err := domain.NewManifest(entries...)
	if err != nil {
		b.Fatal(err)
	}
	return service.NewSentinel(ledger, m)
}

func runtimeFor(params int) map[string]string {
	cfg := make(map[string]string, params)
	for i := 0; i < params; i++ {
		cfg[fmt.Sprintf("param.%d", i)] = fmt.Sprintf("v%d", i)
	}
	return cfg
}

func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

// sizeLabel returns a human-readable size label.
func sizeLabel(size int) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%dMB", size/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%dKB", size/1024)
	default:
		return fmt.Sprintf("%dB", size)
	}
}
