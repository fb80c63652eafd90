// Package stats provides the stats command.
package stats

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/usagesync/internal/cmd/application"
	"github.com/agentstation/usagesync/internal/cmd/cmdutil"
)

// Flags holds the stats command flags.
type Flags struct {
	cmdutil.LocationFlags
	Timezone string
	Windows  []int
	Days     int
	Period   string
}

// NewCommand creates the stats command using app context.
func NewCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "stats",
		GroupID: "core",
		Short:   "Show usage statistics from the latest reconciliation",
		Args:    cobra.NoArgs,
		Long: `Stats reads the newest reconciled sessions file and summarizes it over
all time and over the configured windows (7, 30 and 60 days by default).

For every period it shows token and cost totals, the number of active days,
the daily average over the most recent 30 active days and a 30-day estimate.
Sessions whose timestamp had to be inferred count toward all-time totals only.`,
		Example: `  usagesync stats                         # All periods
  usagesync stats --windows 1,7,90        # Custom windows
  usagesync stats --period 30_days        # Models and days of one period
  usagesync stats --timezone UTC -o json  # Bucket days in UTC`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.OutOrStdout(), app, flags)
		},
	}

	cmdutil.AddOutputDirFlag(cmd, &flags.LocationFlags, "Directory holding the reconciled artifacts (default from config)")
	cmd.Flags().StringVar(&flags.Timezone, "timezone", "", "time zone used to bucket days (default from config)")
	cmd.Flags().IntSliceVar(&flags.Windows, "windows", nil, "window lengths in days (default from config)")
	cmd.Flags().IntVar(&flags.Days, "days", 14, "daily rows shown for --period")
	cmd.Flags().StringVar(&flags.Period, "period", "", "show the models and days of one period (all_time, 7_days, ...)")

	return cmd
}
