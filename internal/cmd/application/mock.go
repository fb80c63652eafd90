package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/syncdir"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	mock := &application.Mock{
//	    SettingsFunc: func() application.Settings {
//	        return application.Settings{SyncDir: t.TempDir(), NoLedger: true}
//	    },
//	}
//	cmd := reconcile.NewCommand(mock)
//	// ... test command
type Mock struct {
	SettingsFunc     func() Settings
	LedgerFunc       func(ctx context.Context) (*ledger.Ledger, error)
	IdentityFunc     func() (syncdir.Identity, error)
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Settings returns settings using the mock function or zero settings.
func (m *Mock) Settings() Settings {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return Settings{}
}

// Ledger returns a ledger using the mock function or nil.
func (m *Mock) Ledger(ctx context.Context) (*ledger.Ledger, error) {
	if m.LedgerFunc != nil {
		return m.LedgerFunc(ctx)
	}
	return nil, nil
}

// Identity returns an identity using the mock function or a fixed test identity.
func (m *Mock) Identity() (syncdir.Identity, error) {
	if m.IdentityFunc != nil {
		return m.IdentityFunc()
	}
	return syncdir.Identity{MachineID: "test_000000000000", Hostname: "test", Platform: "Linux"}, nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
