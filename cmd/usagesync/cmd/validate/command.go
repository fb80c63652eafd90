// Package validate provides the validate command.
package validate

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/cmdutil"
	"github.com/agentstation/usagesync/internal/cmd/emoji"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/internal/cmd/table"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/loader"
	"github.com/agentstation/usagesync/pkg/logging"
)

// FileResult is the validation outcome of one export file.
type FileResult struct {
	File      string `json:"file" yaml:"file"`
	MachineID string `json:"machine_id,omitempty" yaml:"machine_id,omitempty"`
	Sessions  int    `json:"sessions" yaml:"sessions"`
	Valid     bool   `json:"valid" yaml:"valid"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewCommand creates the validate command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &cmdutil.LocationFlags{}

	cmd := &cobra.Command{
		Use:     "validate",
		GroupID: "sync",
		Short:   "Check every export in the sync folder",
		Args:    cobra.NoArgs,
		Long: `Validate discovers the machine exports in the sync folder and checks that
each one parses and has the expected document shape, without reconciling.

The command exits with an error when any export is invalid.`,
		Example: `  usagesync validate                        # Check the default sync folder
  usagesync validate --sync-dir ./exports   # Check another folder`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), cmd.OutOrStdout(), app, flags.SyncDir)
		},
	}

	cmdutil.AddSyncDirFlag(cmd, flags)

	return cmd
}

// Execute validates every discovered export and prints one line per file.
func Execute(ctx context.Context, w io.Writer, app application.Application, syncDir string) error {
	settings := app.Settings().WithSyncDir(syncDir)
	ctx = logging.WithLogger(ctx, app.Logger())

	files, err := loader.Discover(settings.SyncDir)
	if err != nil {
		return err
	}

	l := loader.New(settings.SyncDir, nil)
	results := make([]FileResult, 0, len(files))
	invalid := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := l.LoadFile(ctx, path)
		r := FileResult{
			File:      path,
			MachineID: f.MachineID,
			Sessions:  len(f.Sessions),
			Valid:     f.Err == nil,
		}
		if f.Err != nil {
			invalid++
			r.Type = loader.Classify(f.Err).String()
			r.Error = f.Err.Error()
		}
		results = append(results, r)
	}

	if err := printResults(w, app.OutputFormat(), settings.SyncDir, results); err != nil {
		return err
	}

	if invalid > 0 {
		return &errors.ValidationError{
			Field:   "exports",
			Value:   invalid,
			Message: fmt.Sprintf("%d of %d export files are invalid", invalid, len(results)),
		}
	}
	return nil
}

func printResults(w io.Writer, format, syncDir string, results []FileResult) error {
	f := output.Format(format)
	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, results)
	}

	if len(results) == 0 {
		fmt.Fprintf(w, "%s No usage exports found in %s\n", emoji.Warning, syncDir)
		return nil
	}

	valid := 0
	for _, r := range results {
		name := r.File
		if f != output.FormatWide {
			name = filepath.Base(r.File)
		}
		if r.Valid {
			valid++
			fmt.Fprintf(w, "%s %s: %s sessions from %s\n", emoji.Success, name, table.FormatCount(r.Sessions), r.MachineID)
			continue
		}
		fmt.Fprintf(w, "%s %s: %s: %s\n", emoji.Error, name, r.Type, r.Error)
	}
	fmt.Fprintf(w, "\n%d of %d export files are valid\n", valid, len(results))
	return nil
}
