package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherType names an AEAD. It is recorded next to sealed data so the
// reader opens it with the cipher it was sealed with.
type CipherType string

const (
	CipherAESGCM   CipherType = "aes-gcm"
	CipherChaCha20 CipherType = "chacha20-poly1305"

	// DefaultCipher seals new data when no cipher is configured.
	DefaultCipher = CipherAESGCM
)

// KeySize is the key length of every supported cipher.
const KeySize = 32

// Cipher errors.
var (
	ErrUnknownCipher = errors.New("adaptive: unknown cipher")
	ErrKeySize       = fmt.Errorf("adaptive: key must be %d bytes", KeySize)
)

// Ciphers lists the supported ciphers.
func Ciphers() []CipherType {
	return []CipherType{CipherAESGCM, CipherChaCha20}
}

// ParseCipher parses a configured cipher name. The empty name is
// DefaultCipher; "chacha20" is accepted for chacha20-poly1305.
func ParseCipher(name string) (CipherType, error) {
	switch t := CipherType(strings.ToLower(strings.TrimSpace(name))); t {
	case "":
		return DefaultCipher, nil
	case CipherAESGCM, CipherChaCha20:
		return t, nil
	case "chacha20":
		return CipherChaCha20, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, name)
	}
}

func newAEAD(key []byte, t CipherType) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrKeySize
	}
	switch t {
	case CipherAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case CipherChaCha20:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, string(t))
	}
}
