package syncdir

import (
	"context"
	"os"
	"time"

	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/loader"
	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/persist"
)

// Machine is one export found in the sync folder.
type Machine struct {
	MachineID     string `json:"machine_id" yaml:"machine_id"`
	loader.Header `yaml:",inline"`
	Sessions      int       `json:"sessions" yaml:"sessions"`
	File          string    `json:"file" yaml:"file"`
	Modified      time.Time `json:"modified" yaml:"modified"`
	Current       bool      `json:"current" yaml:"current"`
	Error         string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Latest describes the newest reconciled sessions artifact.
type Latest struct {
	Path      string   `json:"path" yaml:"path"`
	Timestamp string   `json:"reconciliation_timestamp" yaml:"reconciliation_timestamp"`
	Sessions  int      `json:"total_sessions" yaml:"total_sessions"`
	Machines  []string `json:"source_machines" yaml:"source_machines"`
	RunID     string   `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// Status is a snapshot of the sync folder.
type Status struct {
	SyncDir  string    `json:"sync_dir" yaml:"sync_dir"`
	Exists   bool      `json:"exists" yaml:"exists"`
	Identity Identity  `json:"identity" yaml:"identity"`
	Machines []Machine `json:"machines" yaml:"machines"`
	Latest   *Latest   `json:"latest,omitempty" yaml:"latest,omitempty"`
}

// HasCurrent reports whether the current machine has published an export.
func (s *Status) HasCurrent() bool {
	for _, m := range s.Machines {
		if m.Current {
			return true
		}
	}
	return false
}

// ReadStatus lists the exports in dir and the newest reconciled artifact in
// outputDir. Unreadable exports are listed with their error.
func ReadStatus(ctx context.Context, dir, outputDir string, id Identity) (*Status, error) {
	status := &Status{
		SyncDir:  dir,
		Identity: id,
		Machines: []Machine{},
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		status.Exists = true
	}

	files, err := loader.Discover(dir)
	if err != nil {
		return nil, err
	}

	l := loader.New(dir, nil)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := l.LoadFile(ctx, path)
		m := Machine{
			MachineID: f.MachineID,
			Header:    f.Header,
			Sessions:  len(f.Sessions),
			File:      path,
			Modified:  f.Modified,
		}
		if f.Err != nil {
			m.Error = f.Err.Error()
		}
		m.Current = m.MachineID != "" && m.MachineID == id.MachineID
		status.Machines = append(status.Machines, m)
	}

	if outputDir == "" {
		outputDir = dir
	}
	file, path, err := persist.LatestSessions(outputDir)
	switch {
	case err == nil:
		status.Latest = &Latest{
			Path:      path,
			Timestamp: file.Metadata.ReconciliationTimestamp,
			Sessions:  file.Metadata.TotalSessions,
			Machines:  file.Metadata.SourceMachines,
			RunID:     file.Metadata.RunID,
		}
	case errors.IsNotFound(err):
	default:
		logging.FromContext(ctx).Warn().Err(err).Msg("Cannot read latest reconciled sessions")
	}

	return status, nil
}
