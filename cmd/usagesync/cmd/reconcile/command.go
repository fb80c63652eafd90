// Package reconcile provides the reconcile command.
package reconcile

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/cmdutil"
)

// Flags holds the reconcile command flags.
type Flags struct {
	cmdutil.LocationFlags
	DryRun   bool
	NoLedger bool
}

// NewCommand creates the reconcile command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Merge every machine export into one session set",
		Args:    cobra.NoArgs,
		Long: `Reconcile reads every machine export in the sync folder and merges them into
one canonical list of sessions.

The command will:
• Discover export files in the sync folder and one level below it
• Normalize each record into a session, skipping files that cannot be read
• Resolve sessions found on several machines (identical content, then the
  most complete record, then the most recently modified file)
• Save the reconciled sessions, a JSON report and a text summary
• Record the run in the ledger

Files that fail to load are reported but never abort the run.`,
		Example: `  usagesync reconcile                          # Reconcile the default sync folder
  usagesync reconcile --sync-dir ./exports     # Reconcile another folder
  usagesync reconcile --dry-run                # Preview without saving
  usagesync reconcile -o json                  # Machine-readable result`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), cmd.OutOrStdout(), app, flags)
		},
	}

	cmdutil.AddSyncDirFlag(cmd, &flags.LocationFlags)
	cmdutil.AddOutputDirFlag(cmd, &flags.LocationFlags, "Directory for the artifacts (default is the sync directory)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "compute everything but save nothing")
	cmd.Flags().BoolVar(&flags.NoLedger, "no-ledger", false, "do not record the run in the ledger")

	return cmd
}
