// Package cmdapi implements nanopg's command surface. Grounded in
// ariga-atlas/cmd/atlas/internal/cmdapi's per-subcommand factory-function
// pattern (newXxxCmd() *cobra.Command, options struct, RunE delegating to
// a cmdXxxRun helper), generalized down to the three subcommands spec.md's
// Non-goals call for: an intentionally minimal CLI, not a general-purpose
// schema-management shell.
package cmdapi

import (
	"github.com/spf13/cobra"
)

// Root is nanopg's top-level command, executed by cmd/nanopg's main.
var Root = &cobra.Command{
	Use:   "nanopg",
	Short: "Sync a PostgreSQL schema and generate typed Go bindings for it",
}

func init() {
	Root.PersistentFlags().StringVarP(&configPath, "config", "c", "nanopg.yaml", "path to the project config file")
	Root.AddCommand(newSyncCmd())
	Root.AddCommand(newDiffCmd())
	Root.AddCommand(newGenerateCmd())
}

// configPath is shared by every subcommand via Root's persistent flag.
var configPath string
