// Package domain defines the core domain models for vaultgate.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - VaultedBlob: immutable environment snapshot presented for loading
//   - Manifest: ordered, authoritative runtime configuration
//   - Refusal: the closed set of halt causes produced by the gate
//   - Errors: coded domain errors for everything that is not a refusal
//
// Refusals and domain errors share the VG-<AREA>-NNNN code space so
// callers can branch on a stable code instead of matching messages.
package domain
