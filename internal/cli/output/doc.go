// Package output renders command results for the vaultgate CLI.
//
//   - formatter.go: Format parsing and the Formatter factory
//   - table.go: aligned text tables for terminals
//   - json.go, yaml.go: machine-readable output for scripting
//
// Commands build plain result structs; the formatter chosen by the global
// --output flag decides how they reach the terminal. Struct fields tagged
// `table:"-"` are hidden from tables and `table:"wide"` only shows in wide
// mode.
package output
