package adaptive

import (
	"bytes"
	"errors"
	"testing"
)

var key32 = []byte("0123456789abcdef0123456789abcdef")

func TestBlobSealer_RoundTrip(t *testing.T) {
	states := map[string][]byte{
		"empty":  {},
		"small":  []byte("hello"),
		"larger": bytes.Repeat([]byte{0x5a}, 64<<10),
	}

	for _, ct := range Ciphers() {
		s, err := NewBlobSealer(key32, ct)
		if err != nil {
			t.Fatalf("NewBlobSealer(%s) error = %v", ct, err)
		}
		if s.Cipher() != ct {
			t.Errorf("Cipher() = %s, want %s", s.Cipher(), ct)
		}

		for name, state := range states {
			t.Run(string(ct)+"/"+name, func(t *testing.T) {
				sealed, err := s.Seal("blob1", state)
				if err != nil {
					t.Fatalf("Seal() error = %v", err)
				}
				if len(sealed) != len(state)+s.Overhead() {
					t.Errorf("sealed len = %d, want %d", len(sealed), len(state)+s.Overhead())
				}
				if len(state) > 0 && bytes.Contains(sealed, state) {
					t.Error("sealed bytes contain the state vector")
				}

				got, err := s.Open("blob1", sealed)
				if err != nil {
					t.Fatalf("Open() error = %v", err)
				}
				if !bytes.Equal(got, state) {
					t.Error("Open() did not return the sealed state")
				}
			})
		}
	}
}

func TestBlobSealer_BoundToBlobID(t *testing.T) {
	s, _ := NewBlobSealer(key32, DefaultCipher)
	sealed, err := s.Seal("blob1", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"blob2", "blob1 ", "BLOB1"} {
		if _, err := s.Open(id, sealed); !errors.Is(err, ErrOpenFailed) {
			t.Errorf("Open(%q) error = %v, want ErrOpenFailed", id, err)
		}
	}

	if _, err := s.Seal("", []byte("hello")); !errors.Is(err, ErrNoBlobID) {
		t.Errorf("Seal(\"\") error = %v, want ErrNoBlobID", err)
	}
	if _, err := s.Open("", sealed); !errors.Is(err, ErrNoBlobID) {
		t.Errorf("Open(\"\") error = %v, want ErrNoBlobID", err)
	}
}

func TestBlobSealer_RecordedCipherReopens(t *testing.T) {
	writer, _ := NewBlobSealer(key32, CipherChaCha20)
	sealed, err := writer.Seal("blob1", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	recorded := string(writer.Cipher())

	ct, err := ParseCipher(recorded)
	if err != nil {
		t.Fatalf("ParseCipher(%q) error = %v", recorded, err)
	}
	reader, _ := NewBlobSealer(key32, ct)
	if got, err := reader.Open("blob1", sealed); err != nil || string(got) != "hello" {
		t.Errorf("Open() with recorded cipher = %q, %v", got, err)
	}

	other, _ := NewBlobSealer(key32, CipherAESGCM)
	if _, err := other.Open("blob1", sealed); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("Open() with another cipher error = %v, want ErrOpenFailed", err)
	}
}

func TestBlobSealer_Rejects(t *testing.T) {
	s, _ := NewBlobSealer(key32, CipherAESGCM)
	sealed, _ := s.Seal("blob1", []byte("hello"))

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0x01
	if _, err := s.Open("blob1", tampered); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("tampered Open() error = %v, want ErrOpenFailed", err)
	}

	if _, err := s.Open("blob1", sealed[:s.Overhead()-1]); !errors.Is(err, ErrSealedTooShort) {
		t.Errorf("short Open() error = %v, want ErrSealedTooShort", err)
	}

	wrongKey := bytes.Clone(key32)
	wrongKey[0] ^= 0xff
	w, _ := NewBlobSealer(wrongKey, CipherAESGCM)
	if _, err := w.Open("blob1", sealed); !errors.Is(err, ErrOpenFailed) {
		t.Errorf("wrong key Open() error = %v, want ErrOpenFailed", err)
	}
}

func TestBlobSealer_FreshNonce(t *testing.T) {
	s, _ := NewBlobSealer(key32, CipherChaCha20)
	a, _ := s.Seal("blob1", []byte("hello"))
	b, _ := s.Seal("blob1", []byte("hello"))
	if bytes.Equal(a, b) {
		t.Error("sealing the same state twice must not repeat output")
	}
}

func TestNewBlobSealer(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		cipher  CipherType
		want    CipherType
		wantErr error
	}{
		{"default cipher", key32, "", DefaultCipher, nil},
		{"aes-gcm", key32, CipherAESGCM, CipherAESGCM, nil},
		{"chacha20", key32, CipherChaCha20, CipherChaCha20, nil},
		{"aes-128 key", key32[:16], CipherAESGCM, "", ErrKeySize},
		{"short chacha key", key32[:31], CipherChaCha20, "", ErrKeySize},
		{"unknown cipher", key32, "rot13", "", ErrUnknownCipher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewBlobSealer(tt.key, tt.cipher)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewBlobSealer() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && s.Cipher() != tt.want {
				t.Errorf("Cipher() = %s, want %s", s.Cipher(), tt.want)
			}
		})
	}
}

func TestBlobSealer_KeyCanBeZeroed(t *testing.T) {
	key := bytes.Clone(key32)
	s, _ := NewBlobSealer(key, CipherAESGCM)
	sealed, _ := s.Seal("blob1", []byte("hello"))

	ZeroKey(key)
	if _, err := s.Open("blob1", sealed); err != nil {
		t.Errorf("Open() after zeroing the caller's key error = %v", err)
	}
}
