// Package persist writes the artifacts of a reconciliation run and reads
// back the most recent reconciled session list.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/report"
	"github.com/agentstation/usagesync/pkg/session"
)

// Metadata heads a reconciled sessions artifact.
type Metadata struct {
	ReconciliationTimestamp string   `json:"reconciliation_timestamp" yaml:"reconciliation_timestamp"`
	TotalSessions           int      `json:"total_sessions" yaml:"total_sessions"`
	SourceMachines          []string `json:"source_machines" yaml:"source_machines"`
	RunID                   string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	SessionsDigest          string   `json:"sessions_digest,omitempty" yaml:"sessions_digest,omitempty"`
}

// SessionsFile is the content of a reconciled sessions artifact.
type SessionsFile struct {
	Metadata Metadata           `json:"metadata" yaml:"metadata"`
	Sessions []*session.Session `json:"sessions" yaml:"sessions"`
}

// Run is what a Writer persists.
type Run struct {
	RunID     string
	Timestamp time.Time
	Sessions  []*session.Session
	Machines  []string
	Report    *report.Report
}

// Artifacts are the paths written for one run.
type Artifacts struct {
	Sessions string `json:"sessions" yaml:"sessions"`
	Report   string `json:"report" yaml:"report"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Digest   string `json:"digest" yaml:"digest"`
}

// Paths returns the written paths in write order.
func (a *Artifacts) Paths() []string {
	paths := []string{a.Sessions, a.Report}
	if a.Summary != "" {
		paths = append(paths, a.Summary)
	}
	return paths
}

// Writer writes run artifacts into a directory.
type Writer struct {
	dir     string
	options Options
}

// NewWriter creates a writer for dir.
func NewWriter(dir string, opts ...Option) *Writer {
	return &Writer{
		dir:     dir,
		options: Defaults().Apply(opts...),
	}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write saves the sessions, report and summary artifacts of a run. All three
// share one local-time filename timestamp.
func (w *Writer) Write(ctx context.Context, run Run) (*Artifacts, error) {
	logger := logging.FromContext(ctx)

	if run.Report == nil {
		return nil, &errors.ValidationError{Field: "report", Message: "cannot be nil"}
	}
	if err := os.MkdirAll(w.dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", w.dir, err)
	}

	at := run.Timestamp
	if at.IsZero() {
		at = w.options.now()
	}
	stamp := at.Local().Format(constants.TimeFormatFilename)

	sessions := run.Sessions
	if sessions == nil {
		sessions = []*session.Session{}
	}
	machines := run.Machines
	if machines == nil {
		machines = []string{}
	}

	digest, err := Digest(sessions)
	if err != nil {
		return nil, errors.WrapParse("json", "sessions", err)
	}

	artifacts := &Artifacts{
		Sessions: filepath.Join(w.dir, constants.SessionsArtifactPrefix+stamp+".json"),
		Report:   filepath.Join(w.dir, constants.ReportArtifactPrefix+stamp+".json"),
		Digest:   digest,
	}

	file := SessionsFile{
		Metadata: Metadata{
			ReconciliationTimestamp: run.Report.ReconciliationTimestamp,
			TotalSessions:           len(sessions),
			SourceMachines:          machines,
			RunID:                   run.RunID,
			SessionsDigest:          digest,
		},
		Sessions: sessions,
	}
	if err := w.writeJSON(artifacts.Sessions, file); err != nil {
		return nil, err
	}
	logger.Info().Str("path", artifacts.Sessions).Msg("Saved reconciled sessions")

	if err := w.writeJSON(artifacts.Report, run.Report); err != nil {
		return nil, err
	}
	logger.Info().Str("path", artifacts.Report).Msg("Saved reconciliation report")

	if w.options.summary {
		artifacts.Summary = filepath.Join(w.dir, constants.SummaryArtifactPrefix+stamp+".txt")
		if err := WriteFileAtomic(artifacts.Summary, []byte(report.Text(run.Report)), w.options.permissions); err != nil {
			return nil, err
		}
		logger.Info().Str("path", artifacts.Summary).Msg("Saved summary")
	}

	return artifacts, nil
}

func (w *Writer) writeJSON(path string, v any) error {
	data, err := Marshal(v, w.options.indent)
	if err != nil {
		return errors.WrapParse("json", path, err)
	}
	return WriteFileAtomic(path, data, w.options.permissions)
}

// Marshal encodes v as JSON with the given indentation and without HTML
// escaping.
func Marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
