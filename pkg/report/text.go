package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderText writes the human-readable summary of a report.
func RenderText(w io.Writer, r *Report) error {
	_, err := io.WriteString(w, Text(r))
	return err
}

// Text returns the human-readable summary of a report.
func Text(r *Report) string {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 60)

	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, p.Sprintf(format, args...))
	}
	cost := func(v float64) string {
		return fmt.Sprintf("$%.2f", v)
	}

	lines = append(lines, rule, "Claude Usage Data Reconciliation Summary", rule)
	lines = append(lines, "Generated: "+r.ReconciliationTimestamp)
	if r.RunID != "" {
		lines = append(lines, "Run ID: "+r.RunID)
	}
	lines = append(lines, "")

	s := r.Summary
	lines = append(lines, "OVERALL STATISTICS:")
	add("  Total Sessions: %d", s.TotalSessions)
	add("  Total Input Tokens: %d", s.TotalInputTokens)
	add("  Total Output Tokens: %d", s.TotalOutputTokens)
	add("  Total Tokens: %d", s.TotalTokens)
	lines = append(lines, "  Total Cost: "+cost(s.TotalCost))
	if s.DateRange.Earliest != nil && s.DateRange.Latest != nil {
		lines = append(lines, fmt.Sprintf("  Date Range: %s to %s", prefix(*s.DateRange.Earliest, 10), prefix(*s.DateRange.Latest, 10)))
		lines = append(lines, fmt.Sprintf("  Days Covered: %d", s.DateRange.DaysCovered))
	}
	lines = append(lines, "")

	lines = append(lines, "MACHINE STATISTICS:")
	for _, id := range SortedKeys(r.MachineStats) {
		stat := r.MachineStats[id]
		lines = append(lines, fmt.Sprintf("  %s:", id))
		add("    Sessions: %d", stat.SessionCount)
		lines = append(lines, "    Total Cost: "+cost(stat.TotalCost))
		lines = append(lines, "    Last Modified: "+prefix(stat.LastModified, 19))
	}
	lines = append(lines, "")

	lines = append(lines, "MODEL BREAKDOWN:")
	for _, model := range SortedKeys(r.ModelBreakdown) {
		ms := r.ModelBreakdown[model]
		lines = append(lines, fmt.Sprintf("  %s:", model))
		add("    Sessions: %d", ms.Sessions)
		add("    Input Tokens: %d", ms.InputTokens)
		add("    Output Tokens: %d", ms.OutputTokens)
		lines = append(lines, "    Cost: "+cost(ms.Cost))
	}
	lines = append(lines, "")

	if r.Conflicts.Total > 0 {
		lines = append(lines, "CONFLICT RESOLUTION:")
		lines = append(lines, fmt.Sprintf("  Total Conflicts: %d", r.Conflicts.Total))
		lines = append(lines, "  Resolution Methods:")
		for _, method := range SortedKeys(r.Conflicts.ByResolution) {
			lines = append(lines, fmt.Sprintf("    %s: %d", method, r.Conflicts.ByResolution[method]))
		}
	}
	lines = append(lines, "")

	if r.Errors.Total > 0 {
		lines = append(lines, "ERRORS:")
		lines = append(lines, fmt.Sprintf("  Total Errors: %d", r.Errors.Total))
		lines = append(lines, "  Error Types:")
		for _, typ := range SortedKeys(r.Errors.ByType) {
			lines = append(lines, fmt.Sprintf("    %s: %d", typ, r.Errors.ByType[typ]))
		}
	}

	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
