package reconcile

import (
	"fmt"
	"io"

	"github.com/agentstation/usagesync/internal/cmd/emoji"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/internal/cmd/table"
	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/reconciler"
	"github.com/agentstation/usagesync/pkg/report"
)

// resultView is the structured form of a run for json and yaml output.
type resultView struct {
	RunID      string             `json:"run_id" yaml:"run_id"`
	DryRun     bool               `json:"dry_run" yaml:"dry_run"`
	SyncDir    string             `json:"sync_dir" yaml:"sync_dir"`
	OutputDir  string             `json:"output_dir" yaml:"output_dir"`
	Files      []string           `json:"files" yaml:"files"`
	Machines   []string           `json:"machines" yaml:"machines"`
	Digest     string             `json:"sessions_digest" yaml:"sessions_digest"`
	DurationMs int64              `json:"duration_ms" yaml:"duration_ms"`
	Artifacts  *persist.Artifacts `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Report     *report.Report     `json:"report" yaml:"report"`
}

func newResultView(result *reconciler.Result) resultView {
	return resultView{
		RunID:      result.RunID,
		DryRun:     result.Metadata.DryRun,
		SyncDir:    result.Metadata.SyncDir,
		OutputDir:  result.Metadata.OutputDir,
		Files:      result.Metadata.Files,
		Machines:   result.Metadata.Machines,
		Digest:     result.Digest,
		DurationMs: result.Metadata.Stats.TotalTimeMs,
		Artifacts:  result.Artifacts,
		Report:     result.Report,
	}
}

// printResult writes the result in the requested format.
func printResult(w io.Writer, format string, result *reconciler.Result) error {
	f := output.Format(format)
	if !output.IsTable(f) {
		return output.NewFormatter(f).Format(w, newResultView(result))
	}
	wide := f == output.FormatWide

	if !result.HasData() {
		_, err := fmt.Fprintf(w, "%s %s\n", emoji.Warning, result.Summary())
		return err
	}

	r := result.Report
	if err := output.NewFormatter(f).Format(w, table.SummaryToTableData(r)); err != nil {
		return err
	}
	sections := []struct {
		title string
		data  table.Data
	}{
		{"Machines", table.MachinesToTableData(r, wide)},
		{"Models", table.ModelsToTableData(r)},
		{"Conflicts", table.ConflictsToTableData(r)},
		{"Errors", table.ErrorsToTableData(r)},
	}
	for _, s := range sections {
		if err := output.Section(w, s.title, s.data, wide); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	marker := emoji.Success
	if !result.IsSuccess() {
		marker = emoji.Warning
	}
	fmt.Fprintf(w, "%s %s\n", marker, result.Summary())

	if result.WasSaved() {
		for _, path := range result.Artifacts.Paths() {
			fmt.Fprintf(w, "  %s %s\n", emoji.Info, path)
		}
	}
	return nil
}
