package syncdir

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/report"
	"github.com/agentstation/usagesync/pkg/session"
)

var testIdentity = Identity{MachineID: "studio_a1b2c3d4e5f6", Hostname: "studio", Platform: "Darwin"}

func fixed(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestMachineID(t *testing.T) {
	mac := net.HardwareAddr{0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6}
	assert.Equal(t, "studio_a1b2c3d4e5f6", MachineID("studio", mac))
	assert.Equal(t, "studio_000000000000", MachineID("studio", nil))
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, "Darwin", Platform("darwin"))
	assert.Equal(t, "Linux", Platform("linux"))
	assert.Equal(t, "Windows", Platform("windows"))
	assert.Equal(t, "Freebsd", Platform("freebsd"))
}

func TestLocalIdentity(t *testing.T) {
	id, err := LocalIdentity()
	require.NoError(t, err)
	assert.NotEmpty(t, id.Hostname)
	assert.Regexp(t, `_[0-9a-f]{12}$`, id.MachineID)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/sync", "data", "m1_usage.json"), ExportPath("/sync", "m1"))

	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, "Claude Usage Data", filepath.Base(def))
	assert.Contains(t, def, "com~apple~CloudDocs")
}

func TestReadLocal(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.json")
	wrapped := filepath.Join(dir, "wrapped.json")
	require.NoError(t, os.WriteFile(list, []byte(`[{"session_id":"a"},{"session_id":"b"}]`), 0o644))
	require.NoError(t, os.WriteFile(wrapped, []byte(`{"sessions":[{"session_id":"a"}]}`), 0o644))

	entries, err := ReadLocal(list)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = ReadLocal(wrapped)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = ReadLocal(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	entries := []any{map[string]any{"session_id": "a", "input_tokens": 10}}
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local)

	first, err := Publish(ctx, dir, entries, WithIdentity(testIdentity), WithClock(fixed(at)))
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, ExportPath(dir, testIdentity.MachineID), first.Path)
	assert.Equal(t, 1, first.Sessions)

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	raw, err := session.DecodeBytes(data)
	require.NoError(t, err)
	doc := raw.(*session.Object)
	assert.Equal(t, []string{"machine_id", "hostname", "platform", "exported_at", "sessions"}, doc.Keys())
	exportedAt, _ := doc.Get("exported_at")
	assert.Equal(t, "2024-06-01T09:30:00.000000", exportedAt)

	second, err := Publish(ctx, dir, entries, WithIdentity(testIdentity), WithClock(fixed(at.Add(time.Hour))))
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Digest, second.Digest)

	again, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, data, again, "skipped publish leaves the file untouched")

	forced, err := Publish(ctx, dir, entries, WithIdentity(testIdentity), WithForce(true), WithClock(fixed(at.Add(time.Hour))))
	require.NoError(t, err)
	assert.False(t, forced.Skipped)

	changed, err := Publish(ctx, dir, append(entries, map[string]any{"session_id": "b"}), WithIdentity(testIdentity))
	require.NoError(t, err)
	assert.False(t, changed.Skipped)
	assert.NotEqual(t, first.Digest, changed.Digest)
}

func TestPublishSkipIgnoresKeyOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := ExportPath(dir, testIdentity.MachineID)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"machine_id":"x","sessions":[{"input_tokens":10,"session_id":"a"}]}`), 0o644))

	result, err := Publish(ctx, dir, []any{map[string]any{"session_id": "a", "input_tokens": 10}}, WithIdentity(testIdentity))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
}

func TestReadStatus(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Publish(ctx, dir, []any{map[string]any{"session_id": "a"}, map[string]any{"session_id": "b"}}, WithIdentity(testIdentity))
	require.NoError(t, err)
	other := Identity{MachineID: "laptop_000000000001", Hostname: "laptop", Platform: "Linux"}
	_, err = Publish(ctx, dir, []any{map[string]any{"session_id": "c"}}, WithIdentity(other))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_usage.json"), []byte(`{`), 0o644))

	writer := persist.NewWriter(dir)
	_, err = writer.Write(ctx, persist.Run{
		RunID:     "run-1",
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Sessions:  []*session.Session{{SessionID: "a", Extra: session.NewObject()}},
		Machines:  []string{testIdentity.MachineID},
		Report:    report.Generate(report.Input{RunID: "run-1"}),
	})
	require.NoError(t, err)

	status, err := ReadStatus(ctx, dir, "", testIdentity)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.True(t, status.HasCurrent())
	require.Len(t, status.Machines, 3)

	byID := map[string]Machine{}
	for _, m := range status.Machines {
		byID[m.MachineID] = m
	}
	current := byID[testIdentity.MachineID]
	assert.True(t, current.Current)
	assert.Equal(t, 2, current.Sessions)
	assert.Equal(t, "studio", current.Hostname)
	assert.Equal(t, "Darwin", current.Platform)
	assert.False(t, byID[other.MachineID].Current)

	broken := status.Machines[0]
	assert.Equal(t, filepath.Join(dir, "broken_usage.json"), broken.File)
	assert.NotEmpty(t, broken.Error)

	require.NotNil(t, status.Latest)
	assert.Equal(t, "run-1", status.Latest.RunID)
	assert.Equal(t, 1, status.Latest.Sessions)

	out, err := json.Marshal(current)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"hostname":"studio"`)
}

func TestReadStatusMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	status, err := ReadStatus(context.Background(), dir, "", testIdentity)
	require.NoError(t, err)
	assert.False(t, status.Exists)
	assert.Empty(t, status.Machines)
	assert.Nil(t, status.Latest)
	assert.False(t, status.HasCurrent())
}
