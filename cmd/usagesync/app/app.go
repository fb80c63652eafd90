// Package app provides the application context and dependency management
// for the usagesync CLI. It centralizes configuration, logging, the run
// ledger and the machine identity, and hands them to commands through the
// application.Application interface.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/syncdir"
)

// App represents the usagesync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Lazily opened resources
	mu       sync.Mutex
	ledger   *ledger.Ledger
	identity *syncdir.Identity
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration from the environment, .env
// files and ~/.usagesync.yaml, which can be replaced with functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the output format, detected from the terminal when
// none was configured.
func (a *App) OutputFormat() string {
	return string(output.DetectFormat(a.config.Format))
}

// Settings returns the resolved configuration commands work with.
func (a *App) Settings() application.Settings {
	return application.Settings{
		SyncDir:    a.config.SyncDir,
		OutputDir:  a.config.ResolvedOutputDir(),
		LedgerPath: a.config.LedgerPath,
		NoLedger:   a.config.NoLedger,
		Timezone:   a.config.Timezone,
		Windows:    append([]int{}, a.config.Windows...),
	}
}

// Ledger returns the run ledger, opening it on first use. It returns nil
// when the ledger is disabled.
func (a *App) Ledger(ctx context.Context) (*ledger.Ledger, error) {
	if a.config.NoLedger {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger != nil {
		return a.ledger, nil
	}
	l, err := ledger.Open(ctx, a.config.LedgerPath)
	if err != nil {
		return nil, err
	}
	a.ledger = l
	return l, nil
}

// Identity returns the identity of the current machine.
func (a *App) Identity() (syncdir.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.identity != nil {
		return *a.identity, nil
	}
	id, err := syncdir.LocalIdentity()
	if err != nil {
		return syncdir.Identity{}, errors.WrapResource("resolve", "identity", "", err)
	}
	a.identity = &id
	return id, nil
}

// Shutdown releases resources held by the application.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ledger == nil {
		return nil
	}
	err := a.ledger.Close()
	a.ledger = nil
	if err != nil {
		return errors.WrapResource("close", "ledger", a.config.LedgerPath, err)
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return &errors.ValidationError{Field: "config", Message: "cannot be nil"}
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithIdentity fixes the machine identity (useful for testing).
func WithIdentity(id syncdir.Identity) Option {
	return func(a *App) error {
		a.identity = &id
		return nil
	}
}

// Ensure App implements application.Application at compile time.
var _ application.Application = (*App)(nil)
