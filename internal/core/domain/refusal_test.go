package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// kindVisitor reports the kind each visit method saw.
type kindVisitor struct{}

func (kindVisitor) VisitProvenanceMismatch(*ProvenanceMismatch) string { return "pm" }
func (kindVisitor) VisitConfigDrift(*ConfigDrift) string               { return "cd" }
func (kindVisitor) VisitUnauthorizedReplay(*UnauthorizedReplay) string { return "ur" }
func (kindVisitor) VisitIntegrityFailure(*IntegrityFailure) string     { return "if" }

func TestVisitRefusal(t *testing.T) {
	tests := []struct {
		name    string
		refusal Refusal
		want    string
	}{
		{"provenance mismatch", &ProvenanceMismatch{Expected: "a", Actual: "b"}, "pm"},
		{"config drift", &ConfigDrift{Parameter: "mode"}, "cd"},
		{"unauthorized replay", &UnauthorizedReplay{BlobID: "blob2"}, "ur"},
		{"integrity failure", &IntegrityFailure{Reason: "x"}, "if"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisitRefusal[string](tt.refusal, kindVisitor{}); got != tt.want {
				t.Errorf("VisitRefusal() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRefusal_KindAndCode(t *testing.T) {
	tests := []struct {
		refusal Refusal
		kind    RefusalKind
		code    string
	}{
		{&ProvenanceMismatch{}, KindProvenanceMismatch, "VG-GATE-4090"},
		{&ConfigDrift{}, KindConfigDrift, "VG-GATE-4091"},
		{&UnauthorizedReplay{}, KindUnauthorizedReplay, "VG-GATE-4010"},
		{&IntegrityFailure{}, KindIntegrityFailure, "VG-GATE-4220"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.refusal.Kind() != tt.kind {
				t.Errorf("Kind() = %q, want %q", tt.refusal.Kind(), tt.kind)
			}
			if tt.refusal.Code() != tt.code {
				t.Errorf("Code() = %q, want %q", tt.refusal.Code(), tt.code)
			}
			if seen[tt.code] {
				t.Errorf("duplicate code %q", tt.code)
			}
			seen[tt.code] = true
		})
	}

	if len(AllRefusalKinds()) != len(tests) {
		t.Errorf("AllRefusalKinds() has %d entries, want %d", len(AllRefusalKinds()), len(tests))
	}
}

func TestRefusal_ErrorMessages(t *testing.T) {
	tests := []struct {
		refusal Refusal
		parts   []string
	}{
		{&ProvenanceMismatch{Expected: "aaa", Actual: "bbb"}, []string{"VG-GATE-4090", "expected aaa", "actual bbb"}},
		{&ConfigDrift{Parameter: "mode", Expected: "strict", Actual: "loose"}, []string{`"mode"`, `"strict"`, `"loose"`}},
		{&UnauthorizedReplay{BlobID: "blob2"}, []string{`"blob2"`, "not in the trust ledger"}},
		{&IntegrityFailure{Reason: "Missing or invalid blob signature"}, []string{"Missing or invalid blob signature"}},
	}

	for _, tt := range tests {
		msg := tt.refusal.Error()
		for _, p := range tt.parts {
			if !strings.Contains(msg, p) {
				t.Errorf("Error() = %q, missing %q", msg, p)
			}
		}
	}
}

func TestAsRefusal(t *testing.T) {
	drift := &ConfigDrift{Parameter: "mode", Expected: "strict", Actual: MissingValue}
	wrapped := fmt.Errorf("load sequence: %w", drift)

	r, ok := AsRefusal(wrapped)
	if !ok {
		t.Fatal("AsRefusal() should find wrapped refusal")
	}
	if r != drift {
		t.Errorf("AsRefusal() = %v, want the original refusal", r)
	}

	var cd *ConfigDrift
	if !errors.As(wrapped, &cd) || !cd.Missing() {
		t.Error("errors.As should extract *ConfigDrift with Missing() = true")
	}

	if _, ok := AsRefusal(ErrBlobNotFound); ok {
		t.Error("AsRefusal() should not match a DomainError")
	}
	if _, ok := AsRefusal(nil); ok {
		t.Error("AsRefusal(nil) should be false")
	}
}

func TestIsRefusal(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &UnauthorizedReplay{BlobID: "x"})

	if !IsRefusal(err, KindUnauthorizedReplay) {
		t.Error("IsRefusal should match the wrapped kind")
	}
	if !IsRefusal(err, "") {
		t.Error("IsRefusal with empty kind should match any refusal")
	}
	if IsRefusal(err, KindProvenanceMismatch) {
		t.Error("IsRefusal should not match a different kind")
	}
	if IsRefusal(errors.New("plain"), "") {
		t.Error("IsRefusal should not match a plain error")
	}
}
