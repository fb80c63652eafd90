package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/persist"
)

// Writer persists the artifacts of a run.
type Writer interface {
	Write(ctx context.Context, run persist.Run) (*persist.Artifacts, error)
}

// Ledger records completed runs.
type Ledger interface {
	Record(ctx context.Context, entry ledger.Entry) error
}

// Options configures a reconciler.
type options struct {
	syncDir    string
	outputDir  string
	dryRun     bool
	logger     *zerolog.Logger
	clock      func() time.Time
	writer     Writer
	ledger     Ledger
	strategies []Strategy
	tracking   bool
}

func defaultOptions() *options {
	nop := zerolog.Nop()
	return &options{
		logger:     &nop,
		clock:      time.Now,
		strategies: DefaultStrategies(),
		tracking:   true,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.syncDir == "" {
		return nil, &errors.ValidationError{
			Field:   "sync_dir",
			Message: "is required",
		}
	}
	if o.outputDir == "" {
		o.outputDir = o.syncDir
	}
	return o, nil
}

// WithSyncDir sets the directory scanned for machine exports.
func WithSyncDir(dir string) Option {
	return func(r *options) error {
		if dir == "" {
			return &errors.ValidationError{
				Field:   "sync_dir",
				Message: "cannot be empty",
			}
		}
		r.syncDir = dir
		return nil
	}
}

// WithOutputDir sets where artifacts are written. Defaults to the sync directory.
func WithOutputDir(dir string) Option {
	return func(r *options) error {
		r.outputDir = dir
		return nil
	}
}

// WithDryRun computes everything but writes no artifact and no ledger row.
func WithDryRun(dryRun bool) Option {
	return func(r *options) error {
		r.dryRun = dryRun
		return nil
	}
}

// WithLogger sets the logger used for the run.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *options) error {
		if logger == nil {
			return &errors.ValidationError{
				Field:   "logger",
				Message: "cannot be nil",
			}
		}
		r.logger = logger
		return nil
	}
}

// WithClock sets the clock. The start time read at the beginning of a run
// stamps the report, the artifact names and inferred session timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *options) error {
		if clock == nil {
			return &errors.ValidationError{
				Field:   "clock",
				Message: "cannot be nil",
			}
		}
		r.clock = clock
		return nil
	}
}

// WithWriter replaces the artifact writer.
func WithWriter(writer Writer) Option {
	return func(r *options) error {
		r.writer = writer
		return nil
	}
}

// WithLedger records every saved run in ledger.
func WithLedger(ledger Ledger) Option {
	return func(r *options) error {
		r.ledger = ledger
		return nil
	}
}

// WithStrategies replaces the conflict resolution chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *options) error {
		if len(strategies) == 0 {
			return &errors.ValidationError{
				Field:   "strategies",
				Message: "cannot be empty",
			}
		}
		r.strategies = strategies
		return nil
	}
}

// WithProvenance enables field-level tracking.
func WithProvenance(enabled bool) Option {
	return func(r *options) error {
		r.tracking = enabled
		return nil
	}
}
