package config

import "time"

// GateConfig is the root configuration for the vaultgate CLI.
type GateConfig struct {
	Trust   TrustSection   `koanf:"trust" json:"trust" yaml:"trust"`
	Vault   VaultSection   `koanf:"vault" json:"vault" yaml:"vault"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// TrustSection locates the trust anchors and the runtime configuration
// checked for drift.
type TrustSection struct {
	// File is the trust anchor file (ledger and manifest).
	File string `koanf:"file" json:"file" yaml:"file"`

	// RuntimeFile is the runtime configuration compared to the manifest.
	RuntimeFile string `koanf:"runtime_file" json:"runtime_file" yaml:"runtime_file"`
}

// VaultSection configures the local blob vault.
type VaultSection struct {
	// Dir is the Badger data directory.
	Dir string `koanf:"dir" json:"dir" yaml:"dir"`

	// EncryptionKey is a hex-encoded 32-byte master key. Empty stores
	// blobs in plaintext.
	EncryptionKey string `koanf:"encryption_key" json:"encryption_key" yaml:"encryption_key"`

	// Cipher is aes-gcm or chacha20-poly1305.
	Cipher string `koanf:"cipher" json:"cipher" yaml:"cipher"`

	// GCInterval is the value log GC period. Zero disables background GC.
	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`

	// HaltFile receives halt announcements. Empty means stderr.
	HaltFile string `koanf:"halt_file" json:"halt_file" yaml:"halt_file"`
}

// MetricsSection configures metrics export.
type MetricsSection struct {
	// File is a node_exporter textfile written after each command.
	File string `koanf:"file" json:"file" yaml:"file"`

	// Addr serves /metrics during long-running commands.
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
}
