package reconcile

import (
	"context"
	"io"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/pkg/reconciler"
)

// Execute runs a reconciliation with the resolved settings and prints the result.
func Execute(ctx context.Context, w io.Writer, app application.Application, flags *Flags) error {
	settings := app.Settings().WithSyncDir(flags.SyncDir)
	if flags.OutputDir != "" {
		settings.OutputDir = flags.OutputDir
	}

	opts := []reconciler.Option{
		reconciler.WithSyncDir(settings.SyncDir),
		reconciler.WithOutputDir(settings.OutputDir),
		reconciler.WithDryRun(flags.DryRun),
		reconciler.WithLogger(app.Logger()),
		reconciler.WithProvenance(false),
	}

	if !flags.DryRun && !flags.NoLedger {
		ledger, err := app.Ledger(ctx)
		if err != nil {
			return err
		}
		if ledger != nil {
			opts = append(opts, reconciler.WithLedger(ledger))
		}
	}

	r, err := reconciler.New(opts...)
	if err != nil {
		return err
	}

	result, err := r.Reconcile(ctx)
	if err != nil {
		return err
	}

	return printResult(w, app.OutputFormat(), result)
}
