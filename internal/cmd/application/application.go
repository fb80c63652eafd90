// Package application provides the application interface for usagesync commands.
//
// Commands accept the Application interface rather than the concrete App
// type, so they can be tested with Mock.
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            settings := app.Settings()
//	            // ... use settings.SyncDir
//	            return nil
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/syncdir"
)

// Settings are the resolved configuration values commands work with.
type Settings struct {
	SyncDir    string
	OutputDir  string
	LedgerPath string
	NoLedger   bool
	Timezone   string
	Windows    []int
}

// WithSyncDir returns the settings with the sync directory replaced. An
// output directory that defaulted to the old sync directory follows it.
func (s Settings) WithSyncDir(dir string) Settings {
	if dir == "" || dir == s.SyncDir {
		return s
	}
	if s.OutputDir == "" || s.OutputDir == s.SyncDir {
		s.OutputDir = dir
	}
	s.SyncDir = dir
	return s
}

// Application provides what commands need from the application.
type Application interface {
	// Settings returns the resolved configuration.
	Settings() Settings

	// Ledger returns the run ledger, opening it on first use. It returns
	// nil when the ledger is disabled.
	Ledger(ctx context.Context) (*ledger.Ledger, error)

	// Identity returns the identity of the current machine.
	Identity() (syncdir.Identity, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, etc).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
