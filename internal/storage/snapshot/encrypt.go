package snapshot

import (
	"errors"
	"fmt"

	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
)

// Encryption errors.
var (
	ErrKeyLength        = fmt.Errorf("snapshot: encryption key must be %d bytes", adaptive.KeySize)
	ErrKeyRequired      = errors.New("snapshot: blob file is encrypted and no key was provided")
	ErrDecryptionFailed = errors.New("snapshot: decryption failed - wrong key or corrupted data")
)

// EncryptionConfig configures blob file encryption.
//
// Exactly one of Key or Passphrase enables encryption. Passphrase wins when
// both are set.
type EncryptionConfig struct {
	// Key is a raw adaptive.KeySize key.
	Key []byte

	// Passphrase derives the key with Argon2id. The salt is stored in the
	// file header.
	Passphrase []byte

	// Cipher selects the AEAD on encode. Empty is adaptive.DefaultCipher.
	// Decode always uses the cipher named in the header.
	Cipher adaptive.CipherType
}

// Enabled reports whether cfg carries key material.
func (cfg *EncryptionConfig) Enabled() bool {
	return cfg != nil && (len(cfg.Passphrase) > 0 || len(cfg.Key) > 0)
}

// ValidateConfig validates the encryption configuration.
func ValidateConfig(cfg EncryptionConfig) error {
	if len(cfg.Passphrase) > 0 {
		if len(cfg.Passphrase) < adaptive.MinPassphraseLength {
			return adaptive.ErrPassphraseTooWeak
		}
		return nil
	}
	if len(cfg.Key) > 0 && len(cfg.Key) != adaptive.KeySize {
		return ErrKeyLength
	}
	if _, err := adaptive.ParseCipher(string(cfg.Cipher)); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// sealer returns the cipher for writing a new file and the salt to persist.
func (cfg *EncryptionConfig) sealer() (*adaptive.BlobSealer, []byte, error) {
	if err := ValidateConfig(*cfg); err != nil {
		return nil, nil, err
	}

	var salt []byte
	key := cfg.Key
	if len(cfg.Passphrase) > 0 {
		var err error
		if salt, err = adaptive.NewSalt(); err != nil {
			return nil, nil, err
		}
		if key, err = adaptive.DeriveKeyFromPassphrase(cfg.Passphrase, salt); err != nil {
			return nil, nil, err
		}
		defer adaptive.ZeroKey(key)
	}

	cipherType, err := adaptive.ParseCipher(string(cfg.Cipher))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}
	s, err := adaptive.NewBlobSealer(key, cipherType)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}
	return s, salt, nil
}

// opener returns the cipher for a file written with the given header.
func (cfg *EncryptionConfig) opener(hdr *Header) (*adaptive.BlobSealer, error) {
	if !cfg.Enabled() {
		return nil, ErrKeyRequired
	}
	if hdr.Cipher == "" {
		return nil, fmt.Errorf("snapshot: encrypted header names no cipher")
	}
	cipherType, err := adaptive.ParseCipher(hdr.Cipher)
	if err != nil {
		return nil, fmt.Errorf("snapshot: header names unknown cipher %q", hdr.Cipher)
	}

	key := cfg.Key
	if len(hdr.Salt) > 0 {
		if len(cfg.Passphrase) == 0 {
			return nil, fmt.Errorf("snapshot: blob file was sealed with a passphrase: %w", ErrKeyRequired)
		}
		if key, err = adaptive.DeriveKeyFromPassphrase(cfg.Passphrase, hdr.Salt); err != nil {
			return nil, err
		}
		defer adaptive.ZeroKey(key)
	} else if len(key) != adaptive.KeySize {
		return nil, ErrKeyLength
	}

	return adaptive.NewBlobSealer(key, cipherType)
}
