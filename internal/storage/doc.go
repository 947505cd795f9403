// Package storage provides the embedded key-value engine behind the
// vaultgate blob vault.
//
// Layout:
//
//   - kv.go: KVEngine interface and tuning configuration
//   - badger.go: Badger v3 implementation with background GC and metrics
//   - vault/: blob vault built on a KVEngine
//   - snapshot/: single-blob interchange files
//
// The engine stores whatever it is given. Blobs read back from it are
// untrusted until the integrity gate verifies them against the ledger.
package storage
