package metric

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeTrust struct {
	state TrustState
	ok    bool
}

func (f *fakeTrust) TrustState() (TrustState, bool) { return f.state, f.ok }

func TestTrustCollector_Describe(t *testing.T) {
	c := NewTrustCollector(&fakeTrust{})
	ch := make(chan *prometheus.Desc, 10)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n != 4 {
		t.Errorf("Describe() sent %d descriptors, want 4", n)
	}
}

func TestTrustCollector_Collect(t *testing.T) {
	src := &fakeTrust{}
	r := NewRegistry()
	r.Prometheus().MustRegister(NewTrustCollector(src))

	if body := scrape(t, r); strings.Contains(body, "vaultgate_trust_ledger_entries") {
		t.Error("no trust metrics expected before anchors are loaded")
	}

	src.state = TrustState{
		Fingerprint:     "bafkreiabc",
		LedgerEntries:   3,
		ManifestEntries: 2,
		LoadedAt:        time.Unix(1700000000, 0),
	}
	src.ok = true

	body := scrape(t, r)
	for _, want := range []string{
		"vaultgate_trust_ledger_entries 3",
		"vaultgate_trust_manifest_entries 2",
		"vaultgate_trust_loaded_timestamp_seconds 1.7e+09",
		`vaultgate_trust_info{fingerprint="bafkreiabc"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}
