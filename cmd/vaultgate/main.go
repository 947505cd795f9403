// Package main provides the entry point for vaultgate.
//
// vaultgate verifies vaulted state blobs against a trusted digest ledger
// and configuration manifest before they are handed to a runtime. Any
// doubt halts the load.
package main

import (
	"os"

	"github.com/yndnr/vaultgate/internal/cli/command"
)

func main() {
	app := command.App()

	// HALT and hand-off failures exit through cli.Exit with their own codes.
	if err := app.Run(os.Args); err != nil {
		command.PrintError("%v", err)
		os.Exit(command.ExitError)
	}
}
