package stats

import (
	"fmt"
	"io"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/output"
	"github.com/agentstation/usagesync/internal/cmd/table"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/persist"
	"github.com/agentstation/usagesync/pkg/stats"
)

// Execute analyzes the newest reconciled sessions and prints the report.
func Execute(w io.Writer, app application.Application, flags *Flags) error {
	settings := app.Settings()
	outputDir := settings.OutputDir
	if flags.OutputDir != "" {
		outputDir = flags.OutputDir
	}
	timezone := settings.Timezone
	if flags.Timezone != "" {
		timezone = flags.Timezone
	}
	windows := settings.Windows
	if len(flags.Windows) > 0 {
		windows = flags.Windows
	}

	file, path, err := persist.LatestSessions(outputDir)
	if err != nil {
		return err
	}
	app.Logger().Debug().Str("file", path).Int("sessions", len(file.Sessions)).Msg("Loaded reconciled sessions")

	opts := []stats.Option{}
	if timezone != "" {
		opts = append(opts, stats.WithTimezone(timezone))
	}
	if len(windows) > 0 {
		opts = append(opts, stats.WithWindows(windows...))
	}
	report, err := stats.Analyze(file.Sessions, opts...)
	if err != nil {
		return err
	}

	var period *stats.Period
	if flags.Period != "" {
		p, ok := report.Period(flags.Period)
		if !ok {
			return &errors.NotFoundError{Resource: "period", ID: flags.Period}
		}
		period = p
	}

	return printReport(w, app.OutputFormat(), report, period, flags.Days)
}

// printReport writes the report, or one period of it, in the requested format.
func printReport(w io.Writer, format string, report *stats.Report, period *stats.Period, days int) error {
	f := output.Format(format)
	if !output.IsTable(f) {
		if period != nil {
			return output.NewFormatter(f).Format(w, period)
		}
		return output.NewFormatter(f).Format(w, report)
	}
	wide := f == output.FormatWide

	if period == nil {
		if err := output.NewFormatter(f).Format(w, table.PeriodsToTableData(report)); err != nil {
			return err
		}
		all, _ := report.Period(stats.AllTime)
		if err := output.Section(w, "Models (all time)", table.PeriodModelsToTableData(all), wide); err != nil {
			return err
		}
	} else {
		if err := output.Section(w, "Models", table.PeriodModelsToTableData(period), wide); err != nil {
			return err
		}
		if err := output.Section(w, "Days", table.DailyToTableData(period, days), wide); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\n%s sessions in %s", table.FormatCount(report.Sessions), report.Timezone)
	if report.Undated > 0 {
		fmt.Fprintf(w, ", %s without a recorded timestamp", table.FormatCount(report.Undated))
	}
	fmt.Fprintln(w)
	return nil
}
