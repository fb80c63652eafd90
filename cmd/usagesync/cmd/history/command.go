// Package history provides the history command.
package history

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/emoji"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/internal/cmd/table"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/ledger"
)

// NewCommand creates the history command using app context.
func NewCommand(app application.Application) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:     "history [run-id]",
		GroupID: "core",
		Short:   "List past reconciliation runs",
		Args:    cobra.MaximumNArgs(1),
		Long: `History lists the reconciliation runs recorded in the ledger, newest first,
with their totals, conflicts, errors and the digest of the saved sessions.

Give a run id to show a single run.`,
		Example: `  usagesync history                 # The 20 most recent runs
  usagesync history --limit 0       # Every run
  usagesync history 1c9e4f2a-...    # One run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return Execute(cmd.Context(), cmd.OutOrStdout(), app, runID, limit)
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeRunIDs(cmd.Context(), app), cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs shown (0 for all)")

	return cmd
}

// Execute prints recorded runs, or the run with runID when it is set.
func Execute(ctx context.Context, w io.Writer, app application.Application, runID string, limit int) error {
	l, err := app.Ledger(ctx)
	if err != nil {
		return err
	}
	if l == nil {
		return &errors.ConfigError{Component: "ledger", Message: "the run ledger is disabled"}
	}

	f := output.Format(app.OutputFormat())

	if runID != "" {
		entry, err := l.Get(ctx, runID)
		if err != nil {
			return err
		}
		return output.NewFormatter(f).Format(w, entry)
	}

	entries, err := l.List(ctx, limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintf(w, "%s No runs recorded in %s\n", emoji.Info, l.Path())
		return nil
	}
	return output.NewFormatter(f).Format(w, table.HistoryToTableData(entries, f == output.FormatWide))
}

// completeRunIDs offers the most recent run ids with their start time.
func completeRunIDs(ctx context.Context, app application.Application) []cobra.Completion {
	l, err := app.Ledger(ctx)
	if err != nil || l == nil {
		return nil
	}
	entries, err := l.List(ctx, 50)
	if err != nil {
		return nil
	}
	completions := make([]cobra.Completion, 0, len(entries))
	for _, e := range entries {
		completions = append(completions, cobra.CompletionWithDesc(e.RunID, e.StartedAt.Local().Format("2006-01-02 15:04:05")))
	}
	return completions
}
