package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/vaultgate/internal/telemetry/logger"
	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
)

// Verify validates the configuration.
func Verify(cfg *GateConfig) error {
	if err := verifyVault(&cfg.Vault); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return nil
}

func verifyVault(cfg *VaultSection) error {
	if cfg.Dir == "" {
		return errors.New("vault.dir is required")
	}
	if cfg.GCInterval < 0 {
		return errors.New("vault.gc_interval must not be negative")
	}
	if _, err := adaptive.ParseCipher(cfg.Cipher); err != nil {
		return fmt.Errorf("vault.cipher: %w", err)
	}
	if cfg.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return errors.New("vault.encryption_key must be hex encoded")
		}
		if len(key) != adaptive.KeySize {
			return fmt.Errorf("vault.encryption_key must be %d bytes, got %d", adaptive.KeySize, len(key))
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}

// EncryptionKeyBytes decodes vault.encryption_key. It returns nil when unset.
func (c *VaultSection) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, nil
	}
	return hex.DecodeString(c.EncryptionKey)
}
