package app

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/cmd/usagesync/cmd/history"
	"github.com/agentstation/usagesync/cmd/usagesync/cmd/inspect"
	"github.com/agentstation/usagesync/cmd/usagesync/cmd/publish"
	"github.com/agentstation/usagesync/cmd/usagesync/cmd/reconcile"
	"github.com/agentstation/usagesync/cmd/usagesync/cmd/stats"
	"github.com/agentstation/usagesync/cmd/usagesync/cmd/status"
	"github.com/agentstation/usagesync/cmd/usagesync/cmd/validate"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(stats.NewCommand(a))
	rootCmd.AddCommand(inspect.NewCommand(a))
	rootCmd.AddCommand(history.NewCommand(a))

	// Sync folder commands
	rootCmd.AddCommand(status.NewCommand(a))
	rootCmd.AddCommand(publish.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.NewVersionCommand())
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("usagesync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
