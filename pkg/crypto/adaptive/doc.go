// Package adaptive seals vaultgate state vectors at rest.
//
// The cipher adapts per sealed item rather than per process: writers seal
// with the configured cipher (AES-256-GCM by default, or
// ChaCha20-Poly1305) and record its name next to the data, and readers
// open with the recorded cipher. A BlobSealer binds every sealed state
// vector to its blob id through the AEAD additional data, so sealed bytes
// copied under another id do not open.
//
// Keys:
//
//   - DeriveKeyFromPassphrase: Argon2id with a caller-persisted salt
//   - DeriveSubkey: HKDF-SHA256 subkeys from a master key
//
// Usage:
//
//	s, err := adaptive.NewBlobSealer(key, adaptive.CipherAESGCM)
//	sealed, err := s.Seal(blob.ID, blob.StateVector)
//	state, err := s.Open(blob.ID, sealed)
package adaptive
