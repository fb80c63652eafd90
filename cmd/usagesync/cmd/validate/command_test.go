package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/pkg/errors"
)

func newMock(dir, format string) *application.Mock {
	return &application.Mock{
		SettingsFunc: func() application.Settings {
			return application.Settings{SyncDir: dir, OutputDir: dir}
		},
		OutputFormatFunc: func() string { return format },
	}
}

func execute(app application.Application, args ...string) (string, error) {
	cmd := NewCommand(app)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestValidateAllValid(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "claude_usage_a.json", `{"machine_id":"mac-a","sessions":[{"session_id":"s1"},{"session_id":"s2"}]}`)
	write(t, dir, "claude_usage_b.json", `{"machine_id":"mac-b","sessions":[]}`)

	out, err := execute(newMock(dir, "table"))
	require.NoError(t, err)

	assert.Contains(t, out, "claude_usage_a.json: 2 sessions from mac-a")
	assert.Contains(t, out, "2 of 2 export files are valid")
}

func TestValidateReportsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "claude_usage_a.json", `{"machine_id":"mac-a","sessions":[{"session_id":"s1"}]}`)
	write(t, dir, "claude_usage_b.json", `{not json`)

	out, err := execute(newMock(dir, "json"))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Contains(t, err.Error(), "1 of 2 export files are invalid")

	var results []FileResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.Equal(t, "mac-a", results[0].MachineID)
	assert.False(t, results[1].Valid)
	assert.Equal(t, "corrupt_file", results[1].Type)
	assert.NotEmpty(t, results[1].Error)
}

func TestValidateEmptyFolder(t *testing.T) {
	out, err := execute(newMock(t.TempDir(), "table"))
	require.NoError(t, err)
	assert.Contains(t, out, "No usage exports found")
}
