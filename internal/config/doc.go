// Package config provides gate configuration for vaultgate.
//
// This package defines the configuration structure and validation:
//
//   - spec.go: GateConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (levels, formats, key material)
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, VAULTGATE_* environment variables, and flags.
package config
