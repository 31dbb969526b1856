package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/cmd/reposcout/cmd/inspect"
	"github.com/agentstation/reposcout/cmd/reposcout/cmd/origins"
	"github.com/agentstation/reposcout/cmd/reposcout/cmd/reconcile"
	"github.com/agentstation/reposcout/cmd/reposcout/cmd/search"
	"github.com/agentstation/reposcout/cmd/reposcout/cmd/version"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(inspect.NewCommand(a))

	// Tools
	rootCmd.AddCommand(search.NewCommand(a))
	rootCmd.AddCommand(origins.NewCommand(a))

	rootCmd.AddCommand(version.NewCommand(a))
}
