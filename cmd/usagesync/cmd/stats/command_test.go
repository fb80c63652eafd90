package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/pkg/errors"
)

// writeReconciled writes a reconciled sessions artifact with sessions two
// days, twenty days and a year old.
func writeReconciled(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	now := time.Now().UTC()
	ts := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }
	content := fmt.Sprintf(`{
  "metadata": {"reconciliation_timestamp": "2024-06-01T10:00:00", "total_sessions": 4, "source_machines": ["mac-a"]},
  "sessions": [
    {"session_id": "s1", "timestamp": %q, "input_tokens": 100, "output_tokens": 50, "total_cost": 1.5, "model": "opus"},
    {"session_id": "s2", "timestamp": %q, "input_tokens": 10, "output_tokens": 5, "total_cost": 0.5, "model": "sonnet"},
    {"session_id": "s3", "timestamp": %q, "input_tokens": 1, "output_tokens": 1, "total_cost": 0.25, "model": "opus"},
    {"session_id": "s4", "timestamp": %q, "input_tokens": 1, "output_tokens": 1, "total_cost": 0.25, "model": "opus", "_timestamp_inferred": true}
  ]
}`, ts(48*time.Hour), ts(20*24*time.Hour), ts(365*24*time.Hour), ts(time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reconciled_sessions_20240601_100000.json"), []byte(content), 0o644))
	return dir
}

func newMock(dir, format string) *application.Mock {
	return &application.Mock{
		SettingsFunc: func() application.Settings {
			return application.Settings{SyncDir: dir, OutputDir: dir, Timezone: "UTC", Windows: []int{7, 30}}
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
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatsJSON(t *testing.T) {
	dir := writeReconciled(t)

	out, err := execute(newMock(dir, "json"))
	require.NoError(t, err)

	var report struct {
		Timezone string `json:"timezone"`
		Sessions int    `json:"sessions"`
		Undated  int    `json:"undated"`
		Periods  []struct {
			Name   string `json:"name"`
			Totals struct {
				Requests int     `json:"requests"`
				Cost     float64 `json:"cost"`
			} `json:"totals"`
		} `json:"periods"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, "UTC", report.Timezone)
	assert.Equal(t, 4, report.Sessions)
	assert.Equal(t, 1, report.Undated)
	require.Len(t, report.Periods, 3)
	assert.Equal(t, "all_time", report.Periods[0].Name)
	assert.Equal(t, 4, report.Periods[0].Totals.Requests)
	assert.Equal(t, "7_days", report.Periods[1].Name)
	assert.Equal(t, 1, report.Periods[1].Totals.Requests)
	assert.Equal(t, "30_days", report.Periods[2].Name)
	assert.Equal(t, 2, report.Periods[2].Totals.Requests)
	assert.InDelta(t, 2.0, report.Periods[2].Totals.Cost, 1e-9)
}

func TestStatsWindowsFlag(t *testing.T) {
	dir := writeReconciled(t)

	out, err := execute(newMock(dir, "json"), "--windows", "400")
	require.NoError(t, err)

	var report struct {
		Periods []struct {
			Name string `json:"name"`
		} `json:"periods"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Periods, 2)
	assert.Equal(t, "400_days", report.Periods[1].Name)
}

func TestStatsTable(t *testing.T) {
	dir := writeReconciled(t)

	out, err := execute(newMock(dir, "table"))
	require.NoError(t, err)

	assert.Contains(t, out, "All time")
	assert.Contains(t, out, "Last 7 days")
	assert.Contains(t, out, "opus")
	assert.Contains(t, out, "4 sessions in UTC, 1 without a recorded timestamp")
}

func TestStatsPeriod(t *testing.T) {
	dir := writeReconciled(t)

	out, err := execute(newMock(dir, "table"), "--period", "30_days")
	require.NoError(t, err)
	assert.Contains(t, out, "Days")
	assert.Contains(t, out, "sonnet")

	_, err = execute(newMock(dir, "table"), "--period", "90_days")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStatsWithoutArtifacts(t *testing.T) {
	_, err := execute(newMock(t.TempDir(), "json"))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStatsInvalidTimezone(t *testing.T) {
	dir := writeReconciled(t)

	_, err := execute(newMock(dir, "json"), "--timezone", "Mars/Olympus")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
