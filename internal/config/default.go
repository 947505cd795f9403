package config

import (
	"time"

	"github.com/yndnr/vaultgate/pkg/crypto/adaptive"
)

// Default configuration values.
const (
	DefaultVaultDir   = "/var/lib/vaultgate/vault"
	DefaultCipher     = string(adaptive.DefaultCipher)
	DefaultGCInterval = 10 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default gate configuration.
func Default() *GateConfig {
	return &GateConfig{
		Vault: VaultSection{
			Dir:        DefaultVaultDir,
			Cipher:     DefaultCipher,
			GCInterval: DefaultGCInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
