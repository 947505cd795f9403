// Package command defines the vaultgate CLI using urfave/cli/v2.
//
//   - root.go: App, global flags, configuration and logger bootstrap
//   - verify.go: the integrity gate (load sequence) and hand-off
//   - digest.go: SHA-256 and CID of files
//   - blob.go: blob file packing, inspection and archives
//   - vault.go: the Badger-backed blob vault
//   - trust.go: trust anchor checks and the reloading watch loop
//   - version.go: build information
//
// Commands parse their flags, call into the core, and hand a result value
// to the formatter selected by --output.
package command
