// Package cmdutil provides flags shared by usagesync commands.
package cmdutil

import (
	"github.com/spf13/cobra"
)

// LocationFlags holds the directory overrides a command accepts.
type LocationFlags struct {
	SyncDir   string
	OutputDir string
}

// AddSyncDirFlag adds --sync-dir to a command.
func AddSyncDirFlag(cmd *cobra.Command, flags *LocationFlags) {
	cmd.Flags().StringVar(&flags.SyncDir, "sync-dir", "",
		"Directory holding the machine exports (default from config)")
	_ = cmd.MarkFlagDirname("sync-dir")
}

// AddOutputDirFlag adds --output-dir to a command.
func AddOutputDirFlag(cmd *cobra.Command, flags *LocationFlags, usage string) {
	cmd.Flags().StringVar(&flags.OutputDir, "output-dir", "", usage)
	_ = cmd.MarkFlagDirname("output-dir")
}

// AddLocationFlags adds --sync-dir and --output-dir to a command.
func AddLocationFlags(cmd *cobra.Command) *LocationFlags {
	flags := &LocationFlags{}
	AddSyncDirFlag(cmd, flags)
	AddOutputDirFlag(cmd, flags, "Directory for the artifacts (default is the sync directory)")
	return flags
}
