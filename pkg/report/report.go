// Package report aggregates a reconciled session set, together with the
// conflicts and load errors of the run, into a structured report and its
// human-readable summary.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/session"
)

// Report is the structured outcome of a reconciliation run.
type Report struct {
	ReconciliationTimestamp string                         `json:"reconciliation_timestamp" yaml:"reconciliation_timestamp"`
	RunID                   string                         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Summary                 Summary                        `json:"summary" yaml:"summary"`
	MachineStats            map[string]session.MachineStat `json:"machine_stats" yaml:"machine_stats"`
	ModelBreakdown          map[string]ModelStats          `json:"model_breakdown" yaml:"model_breakdown"`
	Conflicts               ConflictSection                `json:"conflicts" yaml:"conflicts"`
	Errors                  ErrorSection                   `json:"errors" yaml:"errors"`
}

// Summary holds totals over the resolved set.
type Summary struct {
	TotalSessions     int       `json:"total_sessions" yaml:"total_sessions"`
	TotalInputTokens  int64     `json:"total_input_tokens" yaml:"total_input_tokens"`
	TotalOutputTokens int64     `json:"total_output_tokens" yaml:"total_output_tokens"`
	TotalTokens       int64     `json:"total_tokens" yaml:"total_tokens"`
	TotalCost         float64   `json:"total_cost" yaml:"total_cost"`
	UniqueModels      int       `json:"unique_models" yaml:"unique_models"`
	DateRange         DateRange `json:"date_range" yaml:"date_range"`
}

// DateRange spans the parseable session timestamps.
type DateRange struct {
	Earliest    *string `json:"earliest" yaml:"earliest"`
	Latest      *string `json:"latest" yaml:"latest"`
	DaysCovered int     `json:"days_covered" yaml:"days_covered"`
}

// ModelStats aggregates sessions of one model.
type ModelStats struct {
	Sessions     int     `json:"sessions" yaml:"sessions"`
	InputTokens  int64   `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int64   `json:"output_tokens" yaml:"output_tokens"`
	Cost         float64 `json:"cost" yaml:"cost"`
}

// ConflictSection summarizes resolved duplicates.
type ConflictSection struct {
	Total        int                `json:"total" yaml:"total"`
	ByResolution map[string]int     `json:"by_resolution" yaml:"by_resolution"`
	Details      []session.Conflict `json:"details" yaml:"details"`
}

// ErrorSection summarizes files that could not be loaded.
type ErrorSection struct {
	Total   int                 `json:"total" yaml:"total"`
	ByType  map[string]int      `json:"by_type" yaml:"by_type"`
	Details []session.LoadError `json:"details" yaml:"details"`
}

// Input is everything a report is built from.
type Input struct {
	RunID        string
	Timestamp    time.Time
	Sessions     []*session.Session
	MachineStats map[string]session.MachineStat
	Conflicts    []session.Conflict
	Errors       []session.LoadError
}

// Generate builds the report for a run.
func Generate(in Input) *Report {
	r := &Report{
		ReconciliationTimestamp: in.Timestamp.UTC().Format(time.RFC3339Nano),
		RunID:                   in.RunID,
		MachineStats:            make(map[string]session.MachineStat, len(in.MachineStats)),
		ModelBreakdown:          make(map[string]ModelStats),
		Conflicts: ConflictSection{
			Total:        len(in.Conflicts),
			ByResolution: make(map[string]int),
			Details:      []session.Conflict{},
		},
		Errors: ErrorSection{
			Total:   len(in.Errors),
			ByType:  make(map[string]int),
			Details: []session.LoadError{},
		},
	}

	var totalCost float64
	for _, s := range in.Sessions {
		r.Summary.TotalInputTokens += s.InputTokens
		r.Summary.TotalOutputTokens += s.OutputTokens
		totalCost += s.TotalCost

		ms := r.ModelBreakdown[s.Model]
		ms.Sessions++
		ms.InputTokens += s.InputTokens
		ms.OutputTokens += s.OutputTokens
		ms.Cost += s.TotalCost
		r.ModelBreakdown[s.Model] = ms
	}
	r.Summary.TotalSessions = len(in.Sessions)
	r.Summary.TotalTokens = r.Summary.TotalInputTokens + r.Summary.TotalOutputTokens
	r.Summary.TotalCost = Round(totalCost, constants.CostPrecision)
	r.Summary.UniqueModels = len(r.ModelBreakdown)
	r.Summary.DateRange = dateRange(in.Sessions)

	for id, stat := range in.MachineStats {
		r.MachineStats[id] = stat
	}

	for _, c := range in.Conflicts {
		r.Conflicts.ByResolution[c.Resolution.String()]++
	}
	n := min(len(in.Conflicts), constants.MaxConflictDetails)
	r.Conflicts.Details = append(r.Conflicts.Details, in.Conflicts[:n]...)

	for _, e := range in.Errors {
		r.Errors.ByType[e.Type.String()]++
	}
	r.Errors.Details = append(r.Errors.Details, in.Errors...)

	return r
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// timestampLayouts are accepted when computing the date range. Values
// without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a normalized session timestamp.
func ParseTimestamp(ts string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dateRange(sessions []*session.Session) DateRange {
	var times []time.Time
	for _, s := range sessions {
		if s.Timestamp == "" {
			continue
		}
		if t, ok := ParseTimestamp(s.Timestamp); ok {
			times = append(times, t)
		}
	}
	if len(times) == 0 {
		return DateRange{}
	}

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	earliest := times[0].Format(time.RFC3339Nano)
	latest := times[len(times)-1].Format(time.RFC3339Nano)
	return DateRange{
		Earliest:    &earliest,
		Latest:      &latest,
		DaysCovered: int(times[len(times)-1].Sub(times[0])/(24*time.Hour)) + 1,
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
