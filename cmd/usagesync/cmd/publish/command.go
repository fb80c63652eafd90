// Package publish provides the publish command.
package publish

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/cmdutil"
	"github.com/agentstation/usagesync/internal/cmd/emoji"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/internal/cmd/table"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/syncdir"
)

// Flags holds the publish command flags.
type Flags struct {
	cmdutil.LocationFlags
	Force bool
}

// NewCommand creates the publish command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "publish <sessions-file>",
		GroupID: "sync",
		Short:   "Publish this machine's sessions to the sync folder",
		Args:    cobra.ExactArgs(1),
		Long: `Publish wraps a local session list into this machine's export in the sync
folder, data/<machine_id>_usage.json, together with the hostname, platform
and export time.

The sessions file holds either a JSON array of sessions or an object that
wraps them. When the export already holds the same sessions nothing is
written unless --force is given.`,
		Example: `  usagesync publish sessions.json           # Publish to the default sync folder
  usagesync publish sessions.json --force   # Rewrite even when unchanged`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd.Context(), cmd.OutOrStdout(), app, args[0], flags)
		},
	}

	cmdutil.AddSyncDirFlag(cmd, &flags.LocationFlags)
	cmd.Flags().BoolVarP(&flags.Force, "force", "f", false, "publish even when the sessions are unchanged")

	return cmd
}

// Execute publishes the sessions in path and prints the outcome.
func Execute(ctx context.Context, w io.Writer, app application.Application, path string, flags *Flags) error {
	settings := app.Settings().WithSyncDir(flags.SyncDir)

	id, err := app.Identity()
	if err != nil {
		return err
	}

	entries, err := syncdir.ReadLocal(path)
	if err != nil {
		return err
	}

	ctx = logging.WithLogger(ctx, app.Logger())
	result, err := syncdir.Publish(ctx, settings.SyncDir, entries,
		syncdir.WithIdentity(id),
		syncdir.WithForce(flags.Force),
	)
	if err != nil {
		return err
	}

	f := output.Format(app.OutputFormat())
	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, result)
	}

	if result.Skipped {
		fmt.Fprintf(w, "%s Export unchanged, nothing published (use --force to rewrite)\n", emoji.Skipped)
	} else {
		fmt.Fprintf(w, "%s Published %s sessions as %s\n", emoji.Success, table.FormatCount(result.Sessions), result.MachineID)
	}
	fmt.Fprintf(w, "  %s\n", result.Path)
	return nil
}
