package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/provenance"
	"github.com/agentstation/usagesync/pkg/report"
	"github.com/agentstation/usagesync/pkg/session"
)

// ResolvedSet maps each session id to its single winning session and keeps
// the order ids were first seen.
type ResolvedSet struct {
	byID  map[string]*session.Session
	order []string
}

// NewResolvedSet creates an empty set.
func NewResolvedSet() *ResolvedSet {
	return &ResolvedSet{byID: make(map[string]*session.Session)}
}

func (s *ResolvedSet) add(sess *session.Session) {
	if _, ok := s.byID[sess.SessionID]; !ok {
		s.order = append(s.order, sess.SessionID)
	}
	s.byID[sess.SessionID] = sess
}

// Get returns the session resolved for id.
func (s *ResolvedSet) Get(id string) (*session.Session, bool) {
	sess, ok := s.byID[id]
	return sess, ok
}

// Len returns the number of resolved sessions.
func (s *ResolvedSet) Len() int {
	return len(s.order)
}

// IDs returns the session ids in first-seen order.
func (s *ResolvedSet) IDs() []string {
	return append([]string{}, s.order...)
}

// Sessions returns the resolved sessions in first-seen order.
func (s *ResolvedSet) Sessions() []*session.Session {
	sessions := make([]*session.Session, 0, len(s.order))
	for _, id := range s.order {
		sessions = append(sessions, s.byID[id])
	}
	return sessions
}

// Result represents the outcome of a reconciliation run.
type Result struct {
	// RunID identifies the run in logs, artifacts and the ledger
	RunID string

	// Core data
	Sessions     *ResolvedSet
	Conflicts    []session.Conflict
	Errors       []session.LoadError
	MachineStats map[string]session.MachineStat
	Report       *report.Report

	// Digest is the canonical sha256 of the resolved session list
	Digest string

	// Artifacts written; nil for a dry run or when there was nothing to reconcile
	Artifacts *persist.Artifacts

	// Provenance tracking
	Provenance provenance.Map

	// Metadata
	Metadata ResultMetadata
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// SyncDir that was scanned and OutputDir artifacts went to
	SyncDir   string
	OutputDir string

	// Files discovered in the sync directory
	Files []string

	// Machines that contributed sessions, in load order
	Machines []string

	// Strategies used for conflict resolution, in order
	Strategies []Strategy

	// DryRun indicates if this was a dry-run
	DryRun bool

	// Statistics about the reconciliation
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	FilesLoaded       int
	SessionsLoaded    int
	SessionsResolved  int
	ConflictsResolved int
	TotalTimeMs       int64
}

// IsSuccess returns true if every discovered file was loaded.
func (r *Result) IsSuccess() bool {
	return len(r.Errors) == 0
}

// HasData returns true if any export file was discovered.
func (r *Result) HasData() bool {
	return len(r.Metadata.Files) > 0
}

// WasSaved returns true if artifacts were written.
func (r *Result) WasSaved() bool {
	return r.Artifacts != nil
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if !r.HasData() {
		return "No usage exports found."
	}

	base := fmt.Sprintf("Reconciled %d sessions from %d machines (%d conflicts, %d errors).",
		r.Metadata.Stats.SessionsResolved, len(r.Metadata.Machines), len(r.Conflicts), len(r.Errors))
	if r.Metadata.DryRun {
		return "Dry run completed. " + base
	}
	return base
}

// NewResult creates a new result with defaults.
func NewResult(start time.Time) *Result {
	return &Result{
		Sessions:     NewResolvedSet(),
		Conflicts:    []session.Conflict{},
		Errors:       []session.LoadError{},
		MachineStats: make(map[string]session.MachineStat),
		Provenance:   make(provenance.Map),
		Metadata: ResultMetadata{
			StartTime: start,
			Files:     []string{},
			Machines:  []string{},
		},
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize(end time.Time) {
	r.Metadata.EndTime = end
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
	r.Metadata.Stats.TotalTimeMs = r.Metadata.Duration.Milliseconds()
}
