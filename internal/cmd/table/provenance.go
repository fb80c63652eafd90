package table

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/usagesync/pkg/provenance"
)

// ProvenanceToTableData converts provenance history to table format.
// Shows all fields and their candidates in a single unified table, the
// selected candidate marked in the Curr column.
func ProvenanceToTableData(fieldProvenance map[string][]provenance.Provenance, wide bool) Data {
	var rows [][]string

	// Sort fields alphabetically
	fields := make([]string, 0, len(fieldProvenance))
	for field := range fieldProvenance {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		history := fieldProvenance[field]
		if len(history) == 0 {
			continue
		}

		// Newest source file first
		sortedHistory := make([]provenance.Provenance, len(history))
		copy(sortedHistory, history)
		sort.SliceStable(sortedHistory, func(i, j int) bool {
			return sortedHistory[i].Modified.After(sortedHistory[j].Modified)
		})

		for i, entry := range sortedHistory {
			// Field name only on first row, blank for subsequent entries
			fieldName := ""
			if i == 0 {
				fieldName = field
			}

			currentIndicator := ""
			if entry.Selected {
				currentIndicator = "→"
			}

			row := []string{
				fieldName,
				currentIndicator,
				formatValueAsYAML(entry.Value),
				entry.MachineID,
				formatTimestamp(entry.Modified),
				entry.Reason,
			}
			if wide {
				row = append(row, entry.SourceFile)
			}
			rows = append(rows, row)
		}
	}

	headers := []string{"Field", "Curr", "Value", "Machine", "Modified", "Reason"}
	align := []Align{
		AlignLeft,   // Field
		AlignCenter, // Curr
		AlignLeft,   // Value
		AlignLeft,   // Machine
		AlignLeft,   // Modified
		AlignLeft,   // Reason
	}
	if wide {
		headers = append(headers, "File")
		align = append(align, AlignLeft)
	}

	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: align,
	}
}

// MatchField checks if a field matches any of the provided glob patterns,
// e.g. "*_tokens" matches "input_tokens". Matching is case-insensitive.
func MatchField(field string, patterns []string) bool {
	if len(patterns) == 0 {
		return true // No patterns means match all
	}

	// Convert field to lowercase for case-insensitive matching
	fieldLower := strings.ToLower(field)

	for _, pattern := range patterns {
		// Convert pattern to lowercase for case-insensitive matching
		patternLower := strings.ToLower(pattern)

		matched, err := filepath.Match(patternLower, fieldLower)
		if err == nil && matched {
			return true
		}
	}

	return false
}

// formatValueAsYAML formats a provenance value as YAML for display.
// Complex values (maps, slices, structs) are formatted as multi-line YAML.
// Simple values (strings, numbers, bools) are kept as-is.
func formatValueAsYAML(val any) string {
	if val == nil {
		return "<nil>"
	}

	// Handle simple types directly
	switch v := val.(type) {
	case string:
		if v == "" {
			return "<empty>"
		}
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return fmt.Sprintf("%t", v)
	}

	// For complex types, use YAML formatting
	yamlBytes, err := yaml.Marshal(val)
	if err != nil {
		// Fall back to simple string representation
		return fmt.Sprintf("%v", val)
	}

	// Convert to string and remove trailing newline
	yamlStr := strings.TrimSuffix(string(yamlBytes), "\n")

	return yamlStr
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	// Show relative time for recent timestamps
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%d min ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%d hr ago", hours)
	}
	if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%d days ago", days)
	}

	// For older timestamps, show the date
	return t.Local().Format("2006-01-02 15:04")
}
