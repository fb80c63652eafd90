package cmdutil

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLocationFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	flags := AddLocationFlags(cmd)

	cmd.SetArgs([]string{"--sync-dir", "/sync", "--output-dir", "/out"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "/sync", flags.SyncDir)
	assert.Equal(t, "/out", flags.OutputDir)
}

func TestAddSyncDirFlagOnly(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := &LocationFlags{}
	AddSyncDirFlag(cmd, flags)

	assert.NotNil(t, cmd.Flags().Lookup("sync-dir"))
	assert.Nil(t, cmd.Flags().Lookup("output-dir"))
}
