// Package trust loads the externally supplied trust anchors (digest ledger
// and configuration manifest) and keeps the current trust epoch.
//
// Anchors file:
//
//	ledger:
//	  - id: blob1
//	    digest: 2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824
//	manifest:
//	  - key: mode
//	    value: strict
//
// Both sections are lists so ids and keys containing dots survive koanf's
// key flattening, and manifest order is kept. A ledger digest may also be
// given as a CIDv1 of raw SHA2-256 content.
//
// An Epoch pins one Sentinel at a time. Reloading builds a new Sentinel and
// swaps it in; a Sentinel already handed out is never changed.
package trust
