package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSettingsWithSyncDir(t *testing.T) {
	tests := []struct {
		name       string
		settings   Settings
		dir        string
		wantSync   string
		wantOutput string
	}{
		{
			name:       "empty override keeps settings",
			settings:   Settings{SyncDir: "/sync", OutputDir: "/sync"},
			wantSync:   "/sync",
			wantOutput: "/sync",
		},
		{
			name:       "defaulted output follows the sync dir",
			settings:   Settings{SyncDir: "/sync", OutputDir: "/sync"},
			dir:        "/other",
			wantSync:   "/other",
			wantOutput: "/other",
		},
		{
			name:       "explicit output dir is kept",
			settings:   Settings{SyncDir: "/sync", OutputDir: "/reports"},
			dir:        "/other",
			wantSync:   "/other",
			wantOutput: "/reports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.settings.WithSyncDir(tt.dir)
			assert.Equal(t, tt.wantSync, got.SyncDir)
			assert.Equal(t, tt.wantOutput, got.OutputDir)
		})
	}
}

func TestMockDefaults(t *testing.T) {
	m := &Mock{}

	id, err := m.Identity()
	assert.NoError(t, err)
	assert.Equal(t, "test_000000000000", id.MachineID)
	assert.Equal(t, "table", m.OutputFormat())
	assert.NotNil(t, m.Logger())

	l, err := m.Ledger(t.Context())
	assert.NoError(t, err)
	assert.Nil(t, l)
}
