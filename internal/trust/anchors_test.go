package trust

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/pkg/digest"
)

const helloDigest = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

const anchorsYAML = `
ledger:
  - id: blob1
    digest: 2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824
  - id: save.slot.2
    digest: 486ea46224d1bb4fb680f34f7c9ad96a8f24ec88be73ea8e5a6c65260e9cb8a7
manifest:
  - key: mode
    value: strict
  - key: video.scale
    value: 2
  - key: audio.enabled
    value: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	a, err := Load(writeFile(t, "anchors.yaml", anchorsYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	ledger := a.LedgerMap()
	if len(ledger) != 2 || ledger["blob1"] != helloDigest {
		t.Errorf("LedgerMap() = %v", ledger)
	}
	if _, ok := ledger["save.slot.2"]; !ok {
		t.Error("dotted ledger id should survive loading")
	}

	var keys []string
	a.Manifest().Each(func(k, _ string) bool {
		keys = append(keys, k)
		return true
	})
	if strings.Join(keys, ",") != "mode,video.scale,audio.enabled" {
		t.Errorf("manifest order = %v", keys)
	}
	if v, _ := a.Manifest().Get("video.scale"); v != "2" {
		t.Errorf("video.scale = %q, want \"2\"", v)
	}
	if v, _ := a.Manifest().Get("audio.enabled"); v != "true" {
		t.Errorf("audio.enabled = %q, want \"true\"", v)
	}
}

func TestLoad_SentinelVerifies(t *testing.T) {
	a, err := Load(writeFile(t, "anchors.yaml", anchorsYAML))
	if err != nil {
		t.Fatal(err)
	}
	s := a.Sentinel()

	blob := &domain.VaultedBlob{ID: "blob1", StateVector: []byte("hello"), Signature: "sig"}
	if err := s.VerifyProvenance(blob); err != nil {
		t.Errorf("VerifyProvenance() error = %v", err)
	}
	runtime := map[string]string{"mode": "strict", "video.scale": "2", "audio.enabled": "true"}
	if err := s.CheckDrift(runtime); err != nil {
		t.Errorf("CheckDrift() error = %v", err)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{
			name:    "empty file",
			content: "",
			code:    domain.ErrTrustAnchorsInvalid.Code,
		},
		{
			name:    "invalid yaml",
			content: "ledger: [",
			code:    domain.ErrTrustAnchorsInvalid.Code,
		},
		{
			name:    "uppercase digest",
			content: "ledger:\n  - id: blob1\n    digest: " + strings.ToUpper(helloDigest) + "\n",
			code:    domain.ErrLedgerInvalid.Code,
		},
		{
			name:    "short digest",
			content: "ledger:\n  - id: blob1\n    digest: abc123\n",
			code:    domain.ErrLedgerInvalid.Code,
		},
		{
			name:    "empty id",
			content: "ledger:\n  - id: \"\"\n    digest: " + helloDigest + "\n",
			code:    domain.ErrLedgerInvalid.Code,
		},
		{
			name:    "duplicate id",
			content: "ledger:\n  - id: blob1\n    digest: " + helloDigest + "\n  - id: blob1\n    digest: " + helloDigest + "\n",
			code:    domain.ErrLedgerInvalid.Code,
		},
		{
			name:    "duplicate manifest key",
			content: "manifest:\n  - key: mode\n    value: a\n  - key: mode\n    value: b\n",
			code:    domain.ErrManifestInvalid.Code,
		},
		{
			name:    "list manifest value",
			content: "manifest:\n  - key: cores\n    value: [nes, snes]\n",
			code:    domain.ErrManifestInvalid.Code,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "anchors.yaml", tt.content))
			if !domain.IsDomainError(err, tt.code) {
				t.Errorf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, domain.ErrTrustAnchorsInvalid) {
		t.Errorf("Load() error = %v, want ErrTrustAnchorsInvalid", err)
	}
	if _, err := Load(""); !errors.Is(err, domain.ErrTrustAnchorsInvalid) {
		t.Errorf("Load(\"\") error = %v", err)
	}
}

func TestNewAnchors_CIDDigest(t *testing.T) {
	cid, err := digest.CID([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	a, err := NewAnchors([]LedgerEntry{{ID: "blob1", Digest: cid}}, nil)
	if err != nil {
		t.Fatalf("NewAnchors() error = %v", err)
	}
	if got := a.LedgerMap()["blob1"]; got != helloDigest {
		t.Errorf("CID digest normalized to %q, want %q", got, helloDigest)
	}
}

func TestAnchors_Fingerprint(t *testing.T) {
	ledger := []LedgerEntry{
		{ID: "a", Digest: helloDigest},
		{ID: "b", Digest: digest.Hex([]byte("world"))},
	}
	manifest := []domain.ManifestEntry{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}

	base, _ := NewAnchors(ledger, manifest)
	fp := base.Fingerprint()
	if !strings.HasPrefix(fp, "bafkrei") {
		t.Errorf("Fingerprint() = %q, want CIDv1", fp)
	}

	reorderedLedger, _ := NewAnchors([]LedgerEntry{ledger[1], ledger[0]}, manifest)
	if reorderedLedger.Fingerprint() != fp {
		t.Error("ledger order should not change the fingerprint")
	}

	reorderedManifest, _ := NewAnchors(ledger, []domain.ManifestEntry{manifest[1], manifest[0]})
	if reorderedManifest.Fingerprint() == fp {
		t.Error("manifest order should change the fingerprint")
	}

	changed, _ := NewAnchors(ledger[:1], manifest)
	if changed.Fingerprint() == fp {
		t.Error("ledger content should change the fingerprint")
	}
}

func TestAnchors_LedgerIsCopy(t *testing.T) {
	a, _ := NewAnchors([]LedgerEntry{{ID: "blob1", Digest: helloDigest}}, nil)

	l := a.Ledger()
	l[0].Digest = "tampered"
	m := a.LedgerMap()
	m["blob1"] = "tampered"

	if a.LedgerMap()["blob1"] != helloDigest {
		t.Error("Anchors ledger was mutated through an accessor")
	}
}
