// Package service provides the integrity gate services for vaultgate.
//
// Services contain the verification logic and orchestrate domain
// models. They carry no IO of their own; trust anchors arrive already
// parsed and results leave as refusals or a LoadReport.
//
// This package contains:
//
//   - Sentinel: trust anchors plus provenance and drift verification
//   - LoadSequencer: fail-fast pipeline from INITIATED to GREEN_LIGHT or HALT
//   - ExecuteLoadSequence: one-shot convenience over LoadSequencer
//
// A Sentinel is immutable after construction and may be shared by any
// number of concurrent load sequences.
package service
