// Package inspect provides the inspect command.
package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/cmdutil"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/internal/cmd/table"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/provenance"
	"github.com/agentstation/usagesync/pkg/reconciler"
	"github.com/agentstation/usagesync/pkg/session"
)

// Flags holds the inspect command flags.
type Flags struct {
	cmdutil.LocationFlags
	Fields []string
}

// View is the structured form of an inspected session.
type View struct {
	SessionID  string                             `json:"session_id" yaml:"session_id"`
	Session    *session.Session                   `json:"session" yaml:"session"`
	Conflict   *session.Conflict                  `json:"conflict,omitempty" yaml:"conflict,omitempty"`
	Provenance map[string][]provenance.Provenance `json:"provenance" yaml:"provenance"`
}

// NewCommand creates the inspect command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "inspect <session-id>",
		GroupID: "core",
		Short:   "Show where a reconciled session came from",
		Args:    cobra.ExactArgs(1),
		Long: `Inspect runs a reconciliation without saving anything and shows, for one
session, every candidate record found across machines: the value each
machine reported, the file it came from, which candidate won and why.`,
		Example: `  usagesync inspect 3f2a9c                          # All tracked fields
  usagesync inspect 3f2a9c --fields '*_tokens'       # Token fields only
  usagesync inspect 3f2a9c -o wide                   # Include source files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd.Context(), cmd.OutOrStdout(), app, args[0], flags)
		},
	}

	cmdutil.AddSyncDirFlag(cmd, &flags.LocationFlags)
	cmd.Flags().StringSliceVar(&flags.Fields, "fields", nil, "only show fields matching these glob patterns")

	return cmd
}

// Execute reconciles without saving and prints the provenance of one session.
func Execute(ctx context.Context, w io.Writer, app application.Application, sessionID string, flags *Flags) error {
	settings := app.Settings().WithSyncDir(flags.SyncDir)

	r, err := reconciler.New(
		reconciler.WithSyncDir(settings.SyncDir),
		reconciler.WithOutputDir(settings.OutputDir),
		reconciler.WithDryRun(true),
		reconciler.WithProvenance(true),
		reconciler.WithLogger(app.Logger()),
	)
	if err != nil {
		return err
	}
	result, err := r.Reconcile(ctx)
	if err != nil {
		return err
	}

	sess, ok := result.Sessions.Get(sessionID)
	if !ok {
		return &errors.NotFoundError{Resource: "session", ID: sessionID}
	}

	view := View{
		SessionID:  sessionID,
		Session:    sess,
		Provenance: make(map[string][]provenance.Provenance),
	}
	for i := range result.Conflicts {
		if result.Conflicts[i].SessionID == sessionID {
			view.Conflict = &result.Conflicts[i]
			break
		}
	}
	for field, history := range result.Provenance.Session(sessionID) {
		if table.MatchField(field, flags.Fields) {
			view.Provenance[field] = history
		}
	}

	return printView(w, app.OutputFormat(), view)
}

func printView(w io.Writer, format string, view View) error {
	f := output.Format(format)
	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, view)
	}

	fmt.Fprintf(w, "Session: %s\n", view.SessionID)
	fmt.Fprintf(w, "Machine: %s\n", view.Session.Provenance.MachineID)
	if c := view.Conflict; c != nil {
		fmt.Fprintf(w, "Duplicates: %d across %d machines, resolved by %s\n", c.Duplicates, len(c.Machines), c.Resolution)
	} else {
		fmt.Fprintln(w, "Duplicates: none")
	}

	if len(view.Provenance) == 0 {
		fmt.Fprintln(w, "\nNo fields match the given patterns")
		return nil
	}
	wide := f == output.FormatWide
	return output.Section(w, "Provenance", table.ProvenanceToTableData(view.Provenance, wide), wide)
}
