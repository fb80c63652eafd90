package reconciler_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/provenance"
	"github.com/agentstation/usagesync/pkg/reconciler"
	"github.com/agentstation/usagesync/pkg/session"
)

var runStart = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return runStart }

// writeExport writes an export file and sets its modification time.
func writeExport(t *testing.T, dir, name, content string, modified time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, modified, modified))
	return path
}

func reconcile(t *testing.T, dir string, opts ...reconciler.Option) *reconciler.Result {
	t.Helper()
	opts = append([]reconciler.Option{
		reconciler.WithSyncDir(dir),
		reconciler.WithClock(fixedClock),
	}, opts...)
	r, err := reconciler.New(opts...)
	require.NoError(t, err)
	result, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	return result
}

func TestNewRequiresSyncDir(t *testing.T) {
	_, err := reconciler.New()
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = reconciler.New(reconciler.WithSyncDir(""))
	assert.Error(t, err)

	_, err = reconciler.New(reconciler.WithSyncDir("/x"), reconciler.WithLogger(nil))
	assert.Error(t, err)
}

func TestIdenticalContent(t *testing.T) {
	dir := t.TempDir()
	older := runStart.Add(-2 * time.Hour)
	newer := runStart.Add(-1 * time.Hour)
	entry := `{"session_id":"sess-1","timestamp":"2024-05-01T08:00:00Z","input_tokens":100,"output_tokens":40,"total_cost":0.5,"model":"opus"%s}`
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[`+fmt.Sprintf(entry, `,"note":"older"`)+`]}`, older)
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[`+fmt.Sprintf(entry, `,"note":"newer"`)+`]}`, newer)

	result := reconcile(t, dir, reconciler.WithDryRun(true))

	require.Equal(t, 1, result.Sessions.Len())
	require.Len(t, result.Conflicts, 1)
	c := result.Conflicts[0]
	assert.Equal(t, "sess-1", c.SessionID)
	assert.Equal(t, 2, c.Duplicates)
	assert.Equal(t, session.ResolutionIdentical, c.Resolution)
	assert.Equal(t, []string{"mac-1", "mac-2"}, c.Machines)
	assert.Empty(t, c.SelectedMachine)

	winner, ok := result.Sessions.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, "mac-2", winner.Provenance.MachineID, "most recently modified duplicate wins")
	note, _ := winner.Extra.Get("note")
	assert.Equal(t, "newer", note)
}

func TestMostCompleteRecord(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json",
		`{"machine_id":"mac-1","sessions":[{"session_id":"sess-2","timestamp":"2024-05-01T08:00:00Z","input_tokens":100,"model":"opus"}]}`,
		runStart.Add(-time.Hour))
	writeExport(t, dir, "claude_usage_mac2.json",
		`{"machine_id":"mac-2","sessions":[{"session_id":"sess-2","timestamp":"2024-05-01T08:00:00Z","input_tokens":150,"model":"opus","title":"Refactor"}]}`,
		runStart.Add(-2*time.Hour))

	result := reconcile(t, dir, reconciler.WithDryRun(true))

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, session.ResolutionMostComplete, result.Conflicts[0].Resolution)
	assert.Equal(t, "mac-2", result.Conflicts[0].SelectedMachine)

	winner, _ := result.Sessions.Get("sess-2")
	assert.Equal(t, int64(150), winner.InputTokens)
	require.NotNil(t, winner.Title)
	assert.Equal(t, "Refactor", *winner.Title)
}

func TestMostCompleteTieKeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "a_usage.json",
		`{"machine_id":"old","sessions":[{"session_id":"s","input_tokens":10,"output_tokens":10,"model":"x","timestamp":"2024-01-01T00:00:00Z"}]}`,
		runStart.Add(-2*time.Hour))
	writeExport(t, dir, "b_usage.json",
		`{"machine_id":"new","sessions":[{"session_id":"s","input_tokens":5,"output_tokens":15,"model":"x","timestamp":"2024-01-01T00:00:00Z"}]}`,
		runStart.Add(-time.Hour))

	result := reconcile(t, dir, reconciler.WithDryRun(true))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, session.ResolutionMostComplete, result.Conflicts[0].Resolution)
	assert.Equal(t, "new", result.Conflicts[0].SelectedMachine)
}

func TestCorruptFileDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"session_id":"a","total_cost":1}]}`, runStart)
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[{"session_id":`, runStart)

	result := reconcile(t, dir, reconciler.WithDryRun(true))

	assert.Equal(t, 1, result.Report.Errors.Total)
	assert.Equal(t, 1, result.Report.Errors.ByType["corrupt_file"])
	assert.Equal(t, 1, result.Sessions.Len())
	assert.Equal(t, 1, result.Report.Summary.TotalSessions)
	assert.False(t, result.IsSuccess())
}

func TestEntryWithoutIDDropped(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json",
		`{"machine_id":"mac-1","sessions":[{"model":"opus","input_tokens":999},{"session_id":"kept","input_tokens":1}]}`, runStart)

	tl := logging.NewTestLogger(t)
	result := reconcile(t, dir, reconciler.WithDryRun(true), reconciler.WithLogger(tl.Logger))

	assert.Equal(t, []string{"kept"}, result.Sessions.IDs())
	assert.Equal(t, 1, result.Report.Summary.TotalSessions)
	assert.Equal(t, int64(1), result.Report.Summary.TotalInputTokens)
	tl.AssertContains(t, "Dropping entry without session id")
}

func TestTotalCostEqualsResolvedSum(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json",
		`{"machine_id":"mac-1","sessions":[{"id":"a","cost":0.12345},{"id":"b","cost":1.00001},{"id":"c","cost":0.33333}]}`, runStart.Add(-time.Hour))
	writeExport(t, dir, "claude_usage_mac2.json",
		`{"machine_id":"mac-2","sessions":[{"id":"a","cost":0.2},{"id":"d","price":2.5}]}`, runStart)

	result := reconcile(t, dir, reconciler.WithDryRun(true))

	var sum float64
	for _, s := range result.Sessions.Sessions() {
		sum += s.TotalCost
	}
	assert.Equal(t, roundTo4(sum), result.Report.Summary.TotalCost)
}

func roundTo4(v float64) float64 {
	var out float64
	_, _ = fmt.Sscanf(fmt.Sprintf("%.4f", v), "%f", &out)
	return out
}

func TestUniqueIDsAndConservation(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a"},{"id":"b"},{"id":"c"}]}`, runStart)
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[{"id":"b"},{"id":"d"}]}`, runStart)
	writeExport(t, dir, "data/claude_usage_mac3.json", `{"machine_id":"mac-3","usage_data":[{"id":"e"},{"id":"a"}]}`, runStart)

	result := reconcile(t, dir, reconciler.WithDryRun(true))

	ids := result.Sessions.IDs()
	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	loaded := result.Metadata.Stats.SessionsLoaded
	assert.Equal(t, 7, loaded)
	assert.Equal(t, 5, result.Sessions.Len())
	assert.Less(t, result.Sessions.Len(), loaded)
	assert.Len(t, result.Conflicts, 2)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestConservationWithoutDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a"},{"id":"b"}]}`, runStart)
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[{"id":"c"}]}`, runStart)

	result := reconcile(t, dir, reconciler.WithDryRun(true))
	assert.Equal(t, result.Metadata.Stats.SessionsLoaded, result.Sessions.Len())
	assert.Empty(t, result.Conflicts)
}

func TestIdempotence(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json",
		`{"machine_id":"mac-1","sessions":[{"id":"a","input_tokens":5,"cost":0.1},{"id":"b"}]}`, runStart.Add(-time.Hour))
	writeExport(t, dir, "claude_usage_mac2.json",
		`{"machine_id":"mac-2","sessions":[{"id":"a","input_tokens":7,"cost":0.2,"title":"t"}]}`, runStart)

	first := reconcile(t, dir)
	require.NotNil(t, first.Artifacts)

	second := reconcile(t, dir, reconciler.WithClock(func() time.Time { return runStart.Add(time.Minute) }))

	assert.Equal(t, first.Report.Summary.TotalSessions, second.Report.Summary.TotalSessions)
	assert.Equal(t, first.Report.Summary.TotalCost, second.Report.Summary.TotalCost)
	assert.Equal(t, first.Report.Summary.TotalTokens, second.Report.Summary.TotalTokens)
	assert.Empty(t, second.Errors, "own artifacts are not re-ingested")
	assert.Equal(t, len(first.Metadata.Files), len(second.Metadata.Files))
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a","input_tokens":3}]}`, runStart)

	result := reconcile(t, dir, reconciler.WithOutputDir(out))

	require.NotNil(t, result.Artifacts)
	for _, p := range result.Artifacts.Paths() {
		assert.FileExists(t, p)
		assert.Equal(t, out, filepath.Dir(p))
	}
	assert.Equal(t, result.Digest, result.Artifacts.Digest)

	file, _, err := persist.LatestSessions(out)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, file.Metadata.RunID)
	assert.Equal(t, []string{"mac-1"}, file.Metadata.SourceMachines)
}

func TestDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a"}]}`, runStart)
	rec := &recordingLedger{}

	result := reconcile(t, dir, reconciler.WithDryRun(true), reconciler.WithLedger(rec))

	assert.Nil(t, result.Artifacts)
	assert.NotNil(t, result.Report)
	assert.Empty(t, rec.entries)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Contains(t, result.Summary(), "Dry run completed.")
}

func TestMissingSyncDirIsNoData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	rec := &recordingLedger{}

	result := reconcile(t, dir, reconciler.WithLedger(rec))

	assert.False(t, result.HasData())
	assert.Zero(t, result.Sessions.Len())
	assert.Nil(t, result.Artifacts)
	assert.Empty(t, rec.entries)
	assert.NoDirExists(t, dir)
	assert.Equal(t, "No usage exports found.", result.Summary())
}

type recordingLedger struct {
	entries []ledger.Entry
}

func (l *recordingLedger) Record(_ context.Context, e ledger.Entry) error {
	l.entries = append(l.entries, e)
	return nil
}

type failingWriter struct{}

func (failingWriter) Write(context.Context, persist.Run) (*persist.Artifacts, error) {
	return nil, errors.NewIOError("write", "/readonly", os.ErrPermission)
}

func TestLedgerRecordsRun(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a","input_tokens":3,"output_tokens":4,"cost":0.5}]}`, runStart)
	rec := &recordingLedger{}

	result := reconcile(t, dir, reconciler.WithLedger(rec))

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, result.RunID, e.RunID)
	assert.Equal(t, 1, e.Sessions)
	assert.Equal(t, int64(3), e.InputTokens)
	assert.Equal(t, int64(4), e.OutputTokens)
	assert.InDelta(t, 0.5, e.TotalCost, 1e-9)
	assert.Equal(t, result.Artifacts.Sessions, e.SessionsArtifact)
	assert.Equal(t, result.Digest, e.SessionsDigest)
}

func TestWriterFailureEscapes(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a"}]}`, runStart)

	r, err := reconciler.New(reconciler.WithSyncDir(dir), reconciler.WithWriter(failingWriter{}))
	require.NoError(t, err)
	_, err = r.Reconcile(context.Background())
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"sessions":[{"id":"a"}]}`, runStart)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := reconciler.New(reconciler.WithSyncDir(dir))
	require.NoError(t, err)
	_, err = r.Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimestamplessDuplicatesAreIdentical(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a","input_tokens":1}]}`, runStart.Add(-time.Hour))
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[{"id":"a","input_tokens":1}]}`, runStart)

	result := reconcile(t, dir, reconciler.WithDryRun(true))
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, session.ResolutionIdentical, result.Conflicts[0].Resolution)

	winner, _ := result.Sessions.Get("a")
	assert.True(t, winner.Provenance.TimestampInferred)
	assert.Equal(t, "2024-06-01T10:00:00Z", winner.Timestamp)
}

func TestProvenanceTracked(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a","input_tokens":100}]}`, runStart.Add(-time.Hour))
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[{"id":"a","input_tokens":150,"title":"x"},{"id":"b"}]}`, runStart)

	result := reconcile(t, dir, reconciler.WithDryRun(true))

	fields := result.Provenance.Session("a")
	require.Contains(t, fields, "input_tokens")
	require.Len(t, fields["input_tokens"], 2)

	rep := provenance.GenerateReport(result.Provenance)
	input := rep.Sessions["a"].Fields["input_tokens"]
	assert.Equal(t, "mac-2", input.Current.MachineID)
	assert.Equal(t, int64(150), input.Current.Value)
	assert.Equal(t, "most_complete_record", input.Current.Reason)
	require.Len(t, input.Conflicts, 1)

	single := result.Provenance.Session("b")
	require.Contains(t, single, provenance.RecordField)
	assert.Equal(t, "single_source", single[provenance.RecordField][0].Reason)
}

func TestProvenanceDisabled(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"sessions":[{"id":"a"}]}`, runStart)
	result := reconcile(t, dir, reconciler.WithDryRun(true), reconciler.WithProvenance(false))
	assert.Empty(t, result.Provenance)
}

func TestCustomStrategyChain(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "claude_usage_mac1.json", `{"machine_id":"mac-1","sessions":[{"id":"a","input_tokens":1,"title":"more"}]}`, runStart.Add(-time.Hour))
	writeExport(t, dir, "claude_usage_mac2.json", `{"machine_id":"mac-2","sessions":[{"id":"a","input_tokens":2}]}`, runStart)

	result := reconcile(t, dir,
		reconciler.WithDryRun(true),
		reconciler.WithStrategies(reconciler.NewMostRecentStrategy()))

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, session.ResolutionMostRecent, result.Conflicts[0].Resolution)
	assert.Equal(t, "mac-2", result.Conflicts[0].SelectedMachine)
}
