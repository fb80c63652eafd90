// Package constants provides shared constants used throughout the usagesync codebase.
// This includes file permissions, artifact naming, field aliases and limits that
// should be consistent across the loader, the reconciler and the writers.
package constants

import "time"

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Artifact naming constants
const (
	// TimeFormatFilename is the timestamp layout embedded in artifact filenames
	TimeFormatFilename = "20060102_150405"

	// SessionsArtifactPrefix prefixes the resolved session list artifact
	SessionsArtifactPrefix = "reconciled_sessions_"

	// ReportArtifactPrefix prefixes the structured report artifact
	ReportArtifactPrefix = "reconciliation_report_"

	// SummaryArtifactPrefix prefixes the human-readable summary artifact
	SummaryArtifactPrefix = "reconciliation_summary_"

	// ExportDataDir is the sync folder subdirectory machines publish into
	ExportDataDir = "data"

	// ExportFileSuffix is appended to the machine id for published exports
	ExportFileSuffix = "_usage.json"
)

// ExportGlobPatterns are the filename patterns searched for machine exports, in the
// sync directory and one level into its subdirectories.
var ExportGlobPatterns = []string{
	"claude_usage_*.json",
	"usage_data_*.json",
	"*_claude_usage.json",
	"*_usage.json",
	"*.json",
}

// Limit constants
const (
	// MaxConflictDetails bounds the conflict details kept in a report
	MaxConflictDetails = 10

	// CostPrecision is the number of decimal places kept for summary costs
	CostPrecision = 4

	// RecentDays is the number of most recent active days used for daily averages
	RecentDays = 30

	// MonthDays is the month length used for monthly estimates
	MonthDays = 30
)

// DefaultWindows are the default statistics windows in days.
var DefaultWindows = []int{7, 30, 60}

// Default values
const (
	// UnknownModel is the model name used when a session carries none
	UnknownModel = "unknown"

	// UnknownMachinePrefix prefixes machine ids derived from a path digest
	UnknownMachinePrefix = "unknown_"

	// DefaultTimezone is the zone used to bucket sessions into days
	DefaultTimezone = "Local"

	// ShutdownTimeout bounds graceful shutdown after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Path constants
const (
	// DefaultSyncDirName is the shared folder name under the iCloud Drive root
	DefaultSyncDirName = "Claude Usage Data"

	// ICloudDriveDir is the iCloud Drive root relative to the home directory
	ICloudDriveDir = "Library/Mobile Documents/com~apple~CloudDocs"

	// DefaultStateDir is the per-user state directory relative to the home directory
	DefaultStateDir = ".usagesync"

	// LedgerFileName is the SQLite run ledger file name inside the state directory
	LedgerFileName = "ledger.db"
)
