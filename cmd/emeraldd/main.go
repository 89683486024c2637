// Command emeraldd runs the Emerald consensus-engine shim: the App
// Adapter that connects a BFT consensus library to an execution layer
// over the Engine API.
//
// Replaces the teacher's flag-based main.go with a cobra command tree
// (github.com/spf13/cobra, declared but unused in the teacher's go.mod
// until this package wires it), matching cobra's own root-command/
// subcommand-in-sibling-files layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "emeraldd",
		Short: "Emerald consensus-engine shim daemon",
	}
	root.AddCommand(newStartCmd())
	root.AddCommand(newInitConfigCmd())
	root.AddCommand(newShowValidatorCmd())
	return root
}
