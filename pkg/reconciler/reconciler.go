// Package reconciler merges the usage exports of several machines into one
// canonical session set. A run discovers and loads the exports, groups
// sessions by id, resolves every duplicated id through an ordered strategy
// chain, builds the report and persists the artifacts.
package reconciler

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/loader"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/normalize"
	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/provenance"
	"github.com/agentstation/usagesync/pkg/report"
	"github.com/agentstation/usagesync/pkg/session"
)

// Reconciler is the main interface for reconciling usage exports.
type Reconciler interface {
	// Reconcile runs discovery, loading, resolution, reporting and persistence.
	Reconcile(ctx context.Context) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	options *options
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{options: options}, nil
}

// reconcileContext holds shared state for one run.
type reconcileContext struct {
	ctx    context.Context
	logger *zerolog.Logger
	result *Result
}

// Reconcile performs reconciliation with a clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context) (*Result, error) {
	// Step 1: Initialize run state
	rctx := r.initialize(ctx)
	result := rctx.result

	// Step 2: Discover export files
	files, err := loader.Discover(r.options.syncDir)
	if err != nil {
		return nil, err
	}
	result.Metadata.Files = append(result.Metadata.Files, files...)
	rctx.logger.Info().Int("files", len(files)).Msgf("Found %d JSON files to process", len(files))
	if len(files) == 0 {
		rctx.logger.Warn().Str("sync_dir", r.options.syncDir).Msg("No usage exports found")
	}

	// Step 3: Load and normalize every file
	norm := normalize.New(normalize.WithNow(result.Metadata.StartTime))
	batch, err := loader.New(r.options.syncDir, norm).Load(rctx.ctx, files)
	if err != nil {
		return nil, err
	}
	result.Errors = append(result.Errors, batch.Errors...)
	result.MachineStats = batch.MachineStats
	result.Metadata.Machines = append(result.Metadata.Machines, batch.Machines()...)
	result.Metadata.Stats.FilesLoaded = len(files) - len(batch.Errors)
	result.Metadata.Stats.SessionsLoaded = len(batch.Sessions)

	// Step 4: Resolve duplicates
	r.resolve(rctx, batch.Sessions)

	// Step 5: Build the report
	resolved := result.Sessions.Sessions()
	result.Report = report.Generate(report.Input{
		RunID:        result.RunID,
		Timestamp:    result.Metadata.StartTime,
		Sessions:     resolved,
		MachineStats: result.MachineStats,
		Conflicts:    result.Conflicts,
		Errors:       result.Errors,
	})
	if result.Digest, err = persist.Digest(resolved); err != nil {
		return nil, err
	}

	// Step 6: Persist artifacts and record the run
	if err := r.persist(rctx, resolved); err != nil {
		return nil, err
	}

	result.Finalize(r.options.clock())
	rctx.logger.Info().
		Int("sessions", result.Sessions.Len()).
		Int("conflicts", len(result.Conflicts)).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Metadata.Duration).
		Msg("Reconciliation finished")
	return result, nil
}

// initialize sets up the run context.
func (r *reconciler) initialize(ctx context.Context) *reconcileContext {
	result := NewResult(r.options.clock())
	result.RunID = uuid.NewString()
	result.Metadata.SyncDir = r.options.syncDir
	result.Metadata.OutputDir = r.options.outputDir
	result.Metadata.DryRun = r.options.dryRun
	result.Metadata.Strategies = r.options.strategies

	logger := r.options.logger.With().Str("run_id", result.RunID).Logger()
	ctx = logging.WithLogger(ctx, &logger)

	logger.Info().
		Str("sync_dir", r.options.syncDir).
		Bool("dry_run", r.options.dryRun).
		Msgf("Starting reconciliation from %s", r.options.syncDir)

	return &reconcileContext{
		ctx:    ctx,
		logger: &logger,
		result: result,
	}
}

// resolve groups sessions by id and reduces each group to one session.
func (r *reconciler) resolve(rctx *reconcileContext, sessions []*session.Session) {
	c := newCollector()
	c.add(sessions...)

	tracker := provenance.NewTracker(r.options.tracking)
	res := &resolver{
		strategies: r.options.strategies,
		tracker:    tracker,
		logger:     rctx.logger,
	}

	set, conflicts := res.resolve(c.list())
	rctx.result.Sessions = set
	rctx.result.Conflicts = conflicts
	rctx.result.Provenance = tracker.Map()
	rctx.result.Metadata.Stats.SessionsResolved = set.Len()
	rctx.result.Metadata.Stats.ConflictsResolved = len(conflicts)
}

// persist writes artifacts and the ledger row unless this is a dry run or
// there was nothing to reconcile.
func (r *reconciler) persist(rctx *reconcileContext, resolved []*session.Session) error {
	result := rctx.result
	if r.options.dryRun {
		rctx.logger.Info().Msg("Dry run: no files were saved")
		return nil
	}
	if !result.HasData() {
		return nil
	}

	writer := r.options.writer
	if writer == nil {
		writer = persist.NewWriter(r.options.outputDir)
	}
	artifacts, err := writer.Write(rctx.ctx, persist.Run{
		RunID:     result.RunID,
		Timestamp: result.Metadata.StartTime,
		Sessions:  resolved,
		Machines:  result.Metadata.Machines,
		Report:    result.Report,
	})
	if err != nil {
		return err
	}
	result.Artifacts = artifacts

	if r.options.ledger == nil {
		return nil
	}
	entry := ledger.Entry{
		RunID:            result.RunID,
		StartedAt:        result.Metadata.StartTime,
		Duration:         r.options.clock().Sub(result.Metadata.StartTime),
		SyncDir:          r.options.syncDir,
		OutputDir:        r.options.outputDir,
		Files:            len(result.Metadata.Files),
		Machines:         len(result.Metadata.Machines),
		Sessions:         result.Sessions.Len(),
		InputTokens:      result.Report.Summary.TotalInputTokens,
		OutputTokens:     result.Report.Summary.TotalOutputTokens,
		TotalCost:        result.Report.Summary.TotalCost,
		Conflicts:        len(result.Conflicts),
		Errors:           len(result.Errors),
		SessionsDigest:   artifacts.Digest,
		SessionsArtifact: artifacts.Sessions,
	}
	if err := r.options.ledger.Record(rctx.ctx, entry); err != nil {
		return err
	}
	rctx.logger.Debug().Str("run_id", result.RunID).Msg("Recorded run in ledger")
	return nil
}
