// Package vault stores vaulted blobs in an embedded KV engine.
//
// The vault is the producer-side store. Nothing read from it is trusted:
// the integrity gate verifies every blob against the ledger before it can
// be handed off.
//
// Records are JSON under the "blob/" key prefix. With an encryption key the
// state vector is sealed with an AEAD whose additional data is the blob id,
// so a record copied under another id fails to open.
package vault
