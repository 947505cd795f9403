// Package digest computes the content digests the gate compares against
// the trust ledger.
//
// Digest Format:
//
//   - Algorithm: SHA2-256 over the raw state vector bytes
//   - Encoding: 64 lowercase hexadecimal characters
//   - Comparison: exact, case-sensitive string equality
//
// Ledgers shared across systems must use exactly this encoding.
//
// The same multihash also yields a CIDv1 (raw codec), which tooling
// prints next to the hex digest so blobs can be cross-referenced with
// content-addressed stores.
package digest
