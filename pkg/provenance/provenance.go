// Package provenance records which machine and file supplied each value of a
// reconciled session, and why the winning value was chosen.
package provenance

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// RecordField is the pseudo-field under which whole-record decisions are tracked.
const RecordField = "record"

// Provenance tracks the origin of one candidate value.
type Provenance struct {
	MachineID  string    `json:"machine_id" yaml:"machine_id"`             // Machine that exported the value
	SourceFile string    `json:"source_file" yaml:"source_file"`           // Export file the value came from
	Value      any       `json:"value" yaml:"value"`                       // The actual value
	Modified   time.Time `json:"modified" yaml:"modified"`                 // Modification time of the source file
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`               // When the value was tracked
	Selected   bool      `json:"selected" yaml:"selected"`                 // Whether this candidate won
	Reason     string    `json:"reason,omitempty" yaml:"reason,omitempty"` // Reason for selecting this value
}

// Map tracks provenance for multiple sessions.
type Map map[string][]Provenance // key is "sessionID:field"

// Tracker manages provenance tracking during reconciliation.
type Tracker interface {
	// Track records provenance for a field
	Track(sessionID string, field string, history Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(sessionID string, field string) []Provenance

	// FindBySession retrieves all provenance for a session
	FindBySession(sessionID string) map[string][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation.
type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records provenance for a field.
func (p *tracker) Track(sessionID string, field string, history Provenance) {
	if !p.enabled {
		return
	}

	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now()
	}

	key := makeKey(sessionID, field)
	p.provenance[key] = append(p.provenance[key], history)
}

// FindByField retrieves provenance for a specific field.
func (p *tracker) FindByField(sessionID string, field string) []Provenance {
	if !p.enabled {
		return nil
	}
	return p.provenance[makeKey(sessionID, field)]
}

// FindBySession retrieves all provenance for a session.
func (p *tracker) FindBySession(sessionID string) map[string][]Provenance {
	if !p.enabled {
		return nil
	}
	return p.Map().Session(sessionID)
}

// Map returns the complete provenance map.
func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	// Return a copy to prevent external modification
	result := make(Map)
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.provenance = make(Map)
}

// Session returns the provenance of every tracked field of a session.
func (m Map) Session(sessionID string) map[string][]Provenance {
	result := make(map[string][]Provenance)
	for key, infos := range m {
		id, field, ok := splitKey(key)
		if ok && id == sessionID {
			result[field] = infos
		}
	}
	return result
}

// makeKey creates a unique key for provenance tracking.
func makeKey(sessionID string, field string) string {
	return sessionID + ":" + field
}

// splitKey splits on the last colon since field names never contain one.
func splitKey(key string) (string, string, bool) {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}

// Report is a per-session view of a provenance Map.
type Report struct {
	Sessions map[string]SessionProvenance
}

// SessionProvenance contains provenance for a single session.
type SessionProvenance struct {
	ID     string
	Fields map[string]Field
}

// Field contains provenance history for a single field.
type Field struct {
	Current   Provenance   // Selected value and its source
	History   []Provenance // Every candidate value
	Conflicts []ConflictInfo
}

// ConflictInfo describes candidates that disagreed on a field.
type ConflictInfo struct {
	Machines        []string // Machines that had conflicting values
	Values          []any    // The conflicting values
	Resolution      string   // How the conflict was resolved
	SelectedMachine string   // Which machine was selected
}

// GenerateReport creates a provenance report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{
		Sessions: make(map[string]SessionProvenance),
	}

	for key, infos := range provenance {
		id, field, ok := splitKey(key)
		if !ok {
			continue
		}

		sp, exists := report.Sessions[id]
		if !exists {
			sp = SessionProvenance{ID: id, Fields: make(map[string]Field)}
		}

		history := append([]Provenance{}, infos...)
		// Newest source first
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Modified.After(history[j].Modified)
		})

		fp := Field{History: history}
		for _, info := range history {
			if info.Selected {
				fp.Current = info
				break
			}
		}
		if c, ok := detectConflict(history); ok {
			fp.Conflicts = []ConflictInfo{c}
		}

		sp.Fields[field] = fp
		report.Sessions[id] = sp
	}

	return report
}

// detectConflict reports the candidates of a field when their values differ.
func detectConflict(infos []Provenance) (ConflictInfo, bool) {
	if len(infos) < 2 {
		return ConflictInfo{}, false
	}

	differs := false
	for _, info := range infos[1:] {
		if !reflect.DeepEqual(info.Value, infos[0].Value) {
			differs = true
			break
		}
	}
	if !differs {
		return ConflictInfo{}, false
	}

	conflict := ConflictInfo{}
	for _, info := range infos {
		conflict.Machines = append(conflict.Machines, info.MachineID)
		conflict.Values = append(conflict.Values, info.Value)
		if info.Selected {
			conflict.SelectedMachine = info.MachineID
			conflict.Resolution = info.Reason
		}
	}
	return conflict, true
}

// String generates a string representation of the provenance report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	ids := make([]string, 0, len(r.Sessions))
	for id := range r.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sp := r.Sessions[id]
		sb.WriteString(fmt.Sprintf("session: %s\n", sp.ID))
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		fields := make([]string, 0, len(sp.Fields))
		for field := range sp.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			fp := sp.Fields[field]
			sb.WriteString(fmt.Sprintf("  %s:\n", field))
			sb.WriteString(fmt.Sprintf("    Current: %v (from %s)\n", fp.Current.Value, fp.Current.MachineID))

			for _, conflict := range fp.Conflicts {
				sb.WriteString("    Conflict:\n")
				sb.WriteString(fmt.Sprintf("      Machines: %v\n", conflict.Machines))
				sb.WriteString(fmt.Sprintf("      Values: %v\n", conflict.Values))
				sb.WriteString(fmt.Sprintf("      Selected: %s\n", conflict.SelectedMachine))
				sb.WriteString(fmt.Sprintf("      Reason: %s\n", conflict.Resolution))
			}

			if len(fp.History) > 1 {
				sb.WriteString("    Candidates:\n")
				for i, info := range fp.History {
					if i > 3 {
						sb.WriteString(fmt.Sprintf("      ... and %d more\n", len(fp.History)-i))
						break
					}
					sb.WriteString(fmt.Sprintf("      - %v from %s (%s)\n",
						info.Value, info.MachineID, info.Modified.UTC().Format(time.RFC3339)))
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
