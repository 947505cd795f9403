// Package snapshot reads and writes single-blob interchange files.
//
// A blob file carries one VaultedBlob from the producer to the gate:
//
//	blob-<timestamp>-<sequence>.vgb   (Manager naming)
//	[magic:8 "VGBLOB01"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (state vector, or AEAD ciphertext with AAD = blob id)
//	[checksum:32 SHA-256 of all bytes above]
//
// The checksum only protects the file in transit. Decoding a blob file says
// nothing about trust; the integrity gate still verifies provenance against
// the ledger.
//
// Encrypted files record the cipher and, for passphrase-derived keys, the
// Argon2id salt in the header, so the same passphrase decrypts them later.
package snapshot
