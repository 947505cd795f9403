package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/yndnr/vaultgate/internal/core/domain"
	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
)

func testBlob() *domain.VaultedBlob {
	return &domain.VaultedBlob{
		ID:          "blob1",
		Timestamp:   1700000000000,
		StateVector: []byte("hello"),
		Metadata:    map[string]string{"core": "nes"},
		Signature:   "sig",
	}
}

func encode(t *testing.T, blob *domain.VaultedBlob, enc *EncryptionConfig) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, blob, enc); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestEncodeDecode_Plain(t *testing.T) {
	raw := encode(t, testBlob(), nil)

	if !bytes.HasPrefix(raw, []byte("VGBLOB01")) {
		t.Fatalf("file does not start with magic: %q", raw[:8])
	}
	if !bytes.Contains(raw, []byte("hello")) {
		t.Error("plain file should carry the state vector in the clear")
	}

	blob, hdr, err := Decode(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := testBlob()
	if blob.ID != want.ID || blob.Timestamp != want.Timestamp || blob.Signature != want.Signature {
		t.Errorf("Decode() = %+v, want %+v", blob, want)
	}
	if !bytes.Equal(blob.StateVector, want.StateVector) {
		t.Errorf("StateVector = %q, want %q", blob.StateVector, want.StateVector)
	}
	if blob.Metadata["core"] != "nes" {
		t.Errorf("Metadata = %v", blob.Metadata)
	}
	if hdr.Encrypted || hdr.Size != 5 {
		t.Errorf("header = %+v", hdr)
	}
}

func TestEncodeDecode_EmptyStateVector(t *testing.T) {
	b := testBlob()
	b.StateVector = nil
	b.Metadata = nil

	blob, _, err := Decode(bytes.NewReader(encode(t, b, nil)), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(blob.StateVector) != 0 {
		t.Errorf("StateVector len = %d, want 0", len(blob.StateVector))
	}
	if blob.Metadata == nil {
		t.Error("Metadata should be initialized")
	}
}

func TestEncode_Rejects(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil, nil); err == nil {
		t.Error("Encode(nil) should fail")
	}
	if err := Encode(&buf, &domain.VaultedBlob{}, nil); !domain.IsDomainError(err, domain.ErrBlobValidation.Code) {
		t.Errorf("Encode(no id) error = %v, want %s", err, domain.ErrBlobValidation.Code)
	}
}

func setFileSizeLimit(t *testing.T, n int) {
	t.Helper()
	prev := fileSizeLimit
	fileSizeLimit = n
	t.Cleanup(func() { fileSizeLimit = prev })
}

func TestEncode_SizeLimit(t *testing.T) {
	key := make([]byte, adaptive.KeySize)

	tests := []struct {
		name string
		enc  *EncryptionConfig
	}{
		{"plain", nil},
		{"encrypted", &EncryptionConfig{Key: key, Cipher: adaptive.CipherChaCha20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := testBlob()
			blob.StateVector = bytes.Repeat([]byte{0xa5}, 4096)
			size := len(encode(t, blob, tt.enc))

			setFileSizeLimit(t, size)
			raw := encode(t, blob, tt.enc)
			if len(raw) != size {
				t.Fatalf("encoded size = %d, want %d", len(raw), size)
			}
			dec := &EncryptionConfig{Key: key}
			if _, _, err := Decode(bytes.NewReader(raw), dec); err != nil {
				t.Fatalf("Decode() at the limit error = %v", err)
			}

			setFileSizeLimit(t, size-1)
			var buf bytes.Buffer
			if err := Encode(&buf, blob, tt.enc); !errors.Is(err, ErrTooLarge) {
				t.Fatalf("Encode() over the limit error = %v, want ErrTooLarge", err)
			}
			if buf.Len() != 0 {
				t.Errorf("Encode() over the limit wrote %d bytes", buf.Len())
			}
			if _, _, err := Decode(bytes.NewReader(raw), dec); !errors.Is(err, ErrTooLarge) {
				t.Errorf("Decode() over the limit error = %v, want ErrTooLarge", err)
			}
		})
	}
}

func TestEncode_StateVectorOverLimit(t *testing.T) {
	setFileSizeLimit(t, 1024)

	blob := testBlob()
	blob.StateVector = make([]byte, 1025)
	if err := Encode(io.Discard, blob, nil); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Encode() error = %v, want ErrTooLarge", err)
	}
}

func TestEncodedSize(t *testing.T) {
	blob := testBlob()
	raw := encode(t, blob, nil)

	hdrLen := int(binary.BigEndian.Uint32(raw[len(magicBytes):]))
	if got := encodedSize(hdrLen, len(blob.StateVector)); got != len(raw) {
		t.Errorf("encodedSize() = %d, want %d", got, len(raw))
	}
}

func TestDecode_Corruption(t *testing.T) {
	raw := encode(t, testBlob(), nil)

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{
			name:    "bad magic",
			mutate:  func(b []byte) []byte { b[0] = 'X'; return b },
			wantErr: ErrInvalidMagic,
		},
		{
			name:    "not a blob file",
			mutate:  func([]byte) []byte { return []byte("plain text") },
			wantErr: ErrInvalidMagic,
		},
		{
			name:    "flipped data byte",
			mutate:  func(b []byte) []byte { b[len(b)-checksumSize-1] ^= 0x01; return b },
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "flipped checksum byte",
			mutate:  func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b },
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "magic only",
			mutate:  func(b []byte) []byte { return b[:len(magicBytes)] },
			wantErr: ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.mutate(append([]byte(nil), raw...))
			_, _, err := Decode(bytes.NewReader(b), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecode_Encrypted(t *testing.T) {
	key := make([]byte, adaptive.KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	tests := []struct {
		name string
		enc  *EncryptionConfig
	}{
		{"aes-gcm key", &EncryptionConfig{Key: key, Cipher: adaptive.CipherAESGCM}},
		{"chacha20 key", &EncryptionConfig{Key: key, Cipher: adaptive.CipherChaCha20}},
		{"passphrase", &EncryptionConfig{Passphrase: []byte("correct horse battery")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := encode(t, testBlob(), tt.enc)
			if bytes.Contains(raw, []byte("hello")) {
				t.Error("encrypted file leaks the state vector")
			}

			hdr, err := Inspect(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if !hdr.Encrypted || hdr.Cipher == "" {
				t.Errorf("header = %+v, want encrypted with cipher", hdr)
			}
			if (len(tt.enc.Passphrase) > 0) != (len(hdr.Salt) == adaptive.SaltLength) {
				t.Errorf("salt len = %d", len(hdr.Salt))
			}

			// Decrypt with a config that does not name the cipher.
			dec := &EncryptionConfig{Key: tt.enc.Key, Passphrase: tt.enc.Passphrase}
			blob, _, err := Decode(bytes.NewReader(raw), dec)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if string(blob.StateVector) != "hello" {
				t.Errorf("StateVector = %q", blob.StateVector)
			}

			if _, _, err := Decode(bytes.NewReader(raw), nil); !errors.Is(err, ErrKeyRequired) {
				t.Errorf("Decode() without key error = %v, want ErrKeyRequired", err)
			}
		})
	}
}

func TestDecode_UsesHeaderCipher(t *testing.T) {
	key := make([]byte, adaptive.KeySize)
	raw := encode(t, testBlob(), &EncryptionConfig{Key: key, Cipher: adaptive.CipherChaCha20})

	hdr, err := Inspect(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Cipher != string(adaptive.CipherChaCha20) {
		t.Fatalf("header cipher = %q", hdr.Cipher)
	}

	// The reader's configured cipher only applies to files it writes.
	blob, _, err := Decode(bytes.NewReader(raw), &EncryptionConfig{Key: key, Cipher: adaptive.CipherAESGCM})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(blob.StateVector) != "hello" {
		t.Errorf("StateVector = %q", blob.StateVector)
	}
}

func TestDecode_WrongKey(t *testing.T) {
	raw := encode(t, testBlob(), &EncryptionConfig{Passphrase: []byte("correct horse battery")})

	_, _, err := Decode(bytes.NewReader(raw), &EncryptionConfig{Passphrase: []byte("wrong horse battery")})
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decode() error = %v, want ErrDecryptionFailed", err)
	}

	_, _, err = Decode(bytes.NewReader(raw), &EncryptionConfig{Key: make([]byte, adaptive.KeySize)})
	if !errors.Is(err, ErrKeyRequired) {
		t.Errorf("Decode() of passphrase file with raw key error = %v, want ErrKeyRequired", err)
	}
}

func TestDecode_IDIsAuthenticated(t *testing.T) {
	key := make([]byte, adaptive.KeySize)
	enc := &EncryptionConfig{Key: key, Cipher: adaptive.CipherAESGCM}

	a := testBlob()
	b := testBlob()
	b.ID = "blob2"

	rawA := encode(t, a, enc)
	rawB := encode(t, b, enc)

	// Splice blob1's ciphertext under blob2's header and recompute the checksum.
	hdrB, dataB, err := readFile(bytes.NewReader(rawB))
	if err != nil {
		t.Fatal(err)
	}
	_, dataA, err := readFile(bytes.NewReader(rawA))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(dataA, dataB) {
		t.Fatal("ciphertexts should differ")
	}

	spliced := rewrap(t, hdrB, dataA)
	if _, _, err := Decode(bytes.NewReader(spliced), enc); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Decode() of spliced file error = %v, want ErrDecryptionFailed", err)
	}
}
