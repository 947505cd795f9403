package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// Sealer errors.
var (
	ErrNoBlobID       = errors.New("adaptive: blob id is required")
	ErrSealedTooShort = errors.New("adaptive: sealed data too short")
	ErrOpenFailed     = errors.New("adaptive: open failed")
)

// BlobSealer seals state vectors for one blob id at a time. The blob id is
// the additional data, so sealed bytes only open under the id they were
// sealed for.
//
// Sealed layout: nonce || ciphertext || tag.
type BlobSealer struct {
	aead cipher.AEAD
	kind CipherType
}

// NewBlobSealer returns a sealer using key with cipher t. An empty t is
// DefaultCipher. The sealer keeps its own key schedule; callers may zero
// key afterwards.
func NewBlobSealer(key []byte, t CipherType) (*BlobSealer, error) {
	if t == "" {
		t = DefaultCipher
	}
	aead, err := newAEAD(key, t)
	if err != nil {
		return nil, err
	}
	return &BlobSealer{aead: aead, kind: t}, nil
}

// Cipher returns the cipher to record next to sealed data.
func (s *BlobSealer) Cipher() CipherType {
	return s.kind
}

// Overhead is how many bytes Seal adds to a state vector.
func (s *BlobSealer) Overhead() int {
	return s.aead.NonceSize() + s.aead.Overhead()
}

// Seal encrypts state under a fresh random nonce, bound to blobID.
func (s *BlobSealer) Seal(blobID string, state []byte) ([]byte, error) {
	if blobID == "" {
		return nil, ErrNoBlobID
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(state)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("adaptive: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, state, []byte(blobID)), nil
}

// Open decrypts sealed bytes produced by Seal for blobID. A different id,
// key or cipher, or any modified byte, is ErrOpenFailed.
func (s *BlobSealer) Open(blobID string, sealed []byte) ([]byte, error) {
	if blobID == "" {
		return nil, ErrNoBlobID
	}
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrSealedTooShort
	}
	state, err := s.aead.Open(nil, sealed[:n], sealed[n:], []byte(blobID))
	if err != nil {
		return nil, ErrOpenFailed
	}
	return state, nil
}
