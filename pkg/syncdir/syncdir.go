// Package syncdir manages the shared sync folder: where it lives, which
// machine this is, publishing this machine's export into it and reporting
// what every machine has published.
package syncdir

import (
	"os"
	"path/filepath"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
)

// Default returns the iCloud Drive sync folder of the current user.
func Default() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", &errors.ConfigError{Component: "sync_dir", Message: "cannot resolve home directory", Err: err}
	}
	return filepath.Join(home, constants.ICloudDriveDir, constants.DefaultSyncDirName), nil
}

// DataDir returns the folder machines publish their exports into.
func DataDir(dir string) string {
	return filepath.Join(dir, constants.ExportDataDir)
}

// ExportPath returns where machineID publishes its export.
func ExportPath(dir, machineID string) string {
	return filepath.Join(DataDir(dir), machineID+constants.ExportFileSuffix)
}
