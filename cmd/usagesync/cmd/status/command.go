// Package status provides the status command.
package status

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

// NewCommand creates the status command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &cmdutil.LocationFlags{}

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: "sync",
		Short:   "Show the exports in the sync folder",
		Args:    cobra.NoArgs,
		Long: `Status lists every machine export found in the sync folder with its
hostname, platform, export time and session count, marks the export of this
machine and shows the newest reconciled sessions file.`,
		Example: `  usagesync status                        # Default sync folder
  usagesync status --sync-dir ./exports   # Another folder
  usagesync status -o wide                # Include file paths and errors`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), cmd.OutOrStdout(), app, flags.SyncDir)
		},
	}

	cmdutil.AddSyncDirFlag(cmd, flags)

	return cmd
}

// Execute reads the sync folder status and prints it.
func Execute(ctx context.Context, w io.Writer, app application.Application, syncDir string) error {
	settings := app.Settings().WithSyncDir(syncDir)

	id, err := app.Identity()
	if err != nil {
		return err
	}

	ctx = logging.WithLogger(ctx, app.Logger())
	status, err := syncdir.ReadStatus(ctx, settings.SyncDir, settings.OutputDir, id)
	if err != nil {
		return err
	}

	return printStatus(w, app.OutputFormat(), status)
}

func printStatus(w io.Writer, format string, status *syncdir.Status) error {
	f := output.Format(format)
	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, status)
	}

	fmt.Fprintf(w, "Sync folder: %s\n", status.SyncDir)
	fmt.Fprintf(w, "This machine: %s (%s, %s)\n", status.Identity.MachineID, status.Identity.Hostname, status.Identity.Platform)

	if !status.Exists {
		fmt.Fprintf(w, "%s Sync folder does not exist\n", emoji.Warning)
		return nil
	}

	if len(status.Machines) == 0 {
		fmt.Fprintf(w, "%s No usage exports found\n", emoji.Warning)
	} else if err := output.Section(w, "Exports", table.StatusToTableData(status, f == output.FormatWide), f == output.FormatWide); err != nil {
		return err
	}

	if !status.HasCurrent() {
		fmt.Fprintf(w, "\n%s This machine has not published an export\n", emoji.Warning)
	}

	if latest := status.Latest; latest != nil {
		fmt.Fprintf(w, "\n%s Latest reconciliation: %s (%s sessions from %s machines)\n",
			emoji.Info, latest.Timestamp, table.FormatCount(latest.Sessions), table.FormatCount(len(latest.Machines)))
		fmt.Fprintf(w, "  %s\n", latest.Path)
	} else {
		fmt.Fprintf(w, "\n%s No reconciliation yet\n", emoji.Info)
	}
	return nil
}
