package table

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentstation/usagesync/pkg/ledger"
	"github.com/agentstation/usagesync/pkg/report"
	"github.com/agentstation/usagesync/pkg/stats"
	"github.com/agentstation/usagesync/pkg/syncdir"
)

// SummaryToTableData converts the report summary to a key-value table.
func SummaryToTableData(r *report.Report) Data {
	earliest, latest := "-", "-"
	if r.Summary.DateRange.Earliest != nil {
		earliest = *r.Summary.DateRange.Earliest
	}
	if r.Summary.DateRange.Latest != nil {
		latest = *r.Summary.DateRange.Latest
	}

	rows := [][]string{
		{"Sessions", FormatCount(r.Summary.TotalSessions)},
		{"Machines", FormatCount(len(r.MachineStats))},
		{"Input tokens", FormatNumber(r.Summary.TotalInputTokens)},
		{"Output tokens", FormatNumber(r.Summary.TotalOutputTokens)},
		{"Total tokens", FormatNumber(r.Summary.TotalTokens)},
		{"Total cost", FormatCost(r.Summary.TotalCost)},
		{"Models", FormatCount(r.Summary.UniqueModels)},
		{"Earliest", earliest},
		{"Latest", latest},
		{"Days covered", FormatCount(r.Summary.DateRange.DaysCovered)},
		{"Conflicts", FormatCount(r.Conflicts.Total)},
		{"Errors", FormatCount(r.Errors.Total)},
	}

	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// MachinesToTableData converts per-machine statistics to table format.
func MachinesToTableData(r *report.Report, wide bool) Data {
	headers := []string{"Machine", "Sessions", "Tokens", "Cost", "Modified"}
	align := []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignLeft}
	if wide {
		headers = append(headers, "File")
		align = append(align, AlignLeft)
	}

	rows := make([][]string, 0, len(r.MachineStats))
	for _, id := range report.SortedKeys(r.MachineStats) {
		stat := r.MachineStats[id]
		row := []string{
			id,
			FormatCount(stat.SessionCount),
			FormatNumber(stat.TotalTokens),
			FormatCost(stat.TotalCost),
			stat.LastModified,
		}
		if wide {
			row = append(row, stat.File)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ModelsToTableData converts the model breakdown to table format, most
// expensive first.
func ModelsToTableData(r *report.Report) Data {
	names := report.SortedKeys(r.ModelBreakdown)
	sort.SliceStable(names, func(i, j int) bool {
		return r.ModelBreakdown[names[i]].Cost > r.ModelBreakdown[names[j]].Cost
	})

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		m := r.ModelBreakdown[name]
		rows = append(rows, []string{
			name,
			FormatCount(m.Sessions),
			FormatNumber(m.InputTokens),
			FormatNumber(m.OutputTokens),
			FormatCost(m.Cost),
		})
	}

	return Data{
		Headers:         []string{"Model", "Sessions", "Input", "Output", "Cost"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// ConflictsToTableData converts the reported conflict details to table format.
func ConflictsToTableData(r *report.Report) Data {
	rows := make([][]string, 0, len(r.Conflicts.Details))
	for _, c := range r.Conflicts.Details {
		rows = append(rows, []string{
			c.SessionID,
			FormatCount(c.Duplicates),
			strings.Join(c.Machines, ", "),
			c.Resolution.String(),
			orDash(c.SelectedMachine),
		})
	}
	return Data{
		Headers:         []string{"Session", "Copies", "Machines", "Resolution", "Selected"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignLeft, AlignLeft, AlignLeft},
	}
}

// ErrorsToTableData converts load errors to table format.
func ErrorsToTableData(r *report.Report) Data {
	rows := make([][]string, 0, len(r.Errors.Details))
	for _, e := range r.Errors.Details {
		rows = append(rows, []string{filepath.Base(e.File), e.Type.String(), truncate(e.Error, 80)})
	}
	return Data{
		Headers: []string{"File", "Type", "Error"},
		Rows:    rows,
	}
}

// PeriodsToTableData converts every period of a stats report to one row.
func PeriodsToTableData(r *stats.Report) Data {
	rows := make([][]string, 0, len(r.Periods))
	for _, p := range r.Periods {
		rows = append(rows, []string{
			periodLabel(p),
			FormatCount(p.Totals.Requests),
			FormatNumber(p.TotalTokens),
			FormatNumber(p.Totals.CacheReadTokens),
			FormatCost(p.Totals.Cost),
			FormatCount(p.ActiveDays),
			FormatCost(p.DailyAvgCost),
			FormatCost(p.MonthlyEstCost),
		})
	}
	return Data{
		Headers: []string{"Period", "Requests", "Tokens", "Cache Read", "Cost", "Days", "Daily Avg", "Monthly Est"},
		Rows:    rows,
		ColumnAlignment: []Align{
			AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight,
		},
	}
}

func periodLabel(p stats.Period) string {
	if p.Name == stats.AllTime {
		return "All time"
	}
	return fmt.Sprintf("Last %d days", p.Days)
}

// PeriodModelsToTableData converts the model breakdown of a period.
func PeriodModelsToTableData(p *stats.Period) Data {
	names := p.ModelNames()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		m := p.Models[name]
		rows = append(rows, []string{
			name,
			FormatCount(m.Requests),
			FormatNumber(m.InputTokens),
			FormatNumber(m.OutputTokens),
			FormatNumber(m.CacheCreationTokens),
			FormatNumber(m.CacheReadTokens),
			FormatCost(m.Cost),
		})
	}
	return Data{
		Headers:         []string{"Model", "Requests", "Input", "Output", "Cache Write", "Cache Read", "Cost"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// DailyToTableData converts the newest days of a period, at most limit rows.
func DailyToTableData(p *stats.Period, limit int) Data {
	days := p.Daily
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date,
			FormatCount(d.Requests),
			FormatNumber(d.Tokens()),
			FormatCost(d.Cost),
		})
	}
	return Data{
		Headers:         []string{"Date", "Requests", "Tokens", "Cost"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight},
	}
}

// StatusToTableData converts the machines of a sync folder status.
func StatusToTableData(s *syncdir.Status, wide bool) Data {
	headers := []string{"", "Machine", "Hostname", "Platform", "Exported", "Sessions"}
	align := []Align{AlignCenter, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignRight}
	if wide {
		headers = append(headers, "File", "Error")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(s.Machines))
	for _, m := range s.Machines {
		marker := ""
		if m.Current {
			marker = "→"
		}
		row := []string{
			marker,
			orDash(m.MachineID),
			orDash(m.Hostname),
			orDash(m.Platform),
			orDash(m.ExportedAt),
			FormatCount(m.Sessions),
		}
		if wide {
			row = append(row, m.File, orDash(m.Error))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// HistoryToTableData converts ledger entries to table format.
func HistoryToTableData(entries []ledger.Entry, wide bool) Data {
	headers := []string{"Run", "Started", "Sessions", "Machines", "Tokens", "Cost", "Conflicts", "Errors"}
	align := []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight}
	if wide {
		headers = append(headers, "Duration", "Digest", "Artifact")
		align = append(align, AlignRight, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		runID := e.RunID
		if !wide {
			runID = prefix(runID, 8)
		}
		row := []string{
			runID,
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			FormatCount(e.Sessions),
			FormatCount(e.Machines),
			FormatNumber(e.InputTokens + e.OutputTokens),
			FormatCost(e.TotalCost),
			FormatCount(e.Conflicts),
			FormatCount(e.Errors),
		}
		if wide {
			row = append(row, e.Duration.String(), prefix(e.SessionsDigest, 12), e.SessionsArtifact)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}
