package cli

import (
	"fmt"
	"time"

	"github.com/ErlanBelekov/campsite-scheduler/internal/scheduler"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect timer schedules",
	}
	cmd.AddCommand(newSchedulePreviewCmd())
	return cmd
}

func newSchedulePreviewCmd() *cobra.Command {
	var (
		interval  int
		createdAt string
		from      string
		tz        string
		count     int
		rebook    bool
	)

	c := &cobra.Command{
		Use:   "preview",
		Short: "Print the cron spec and next firings for a check interval",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("load timezone %q: %w", tz, err)
			}

			start := time.Now().In(loc)
			if from != "" {
				if start, err = time.ParseInLocation(time.RFC3339, from, loc); err != nil {
					return fmt.Errorf("parse --from: %w", err)
				}
			}

			var spec string
			if rebook {
				spec = scheduler.RebookCronSpec(interval)
			} else {
				created := start
				if createdAt != "" {
					if created, err = time.Parse(time.RFC3339, createdAt); err != nil {
						return fmt.Errorf("parse --created-at: %w", err)
					}
				}
				spec = scheduler.WatchCronSpec(interval, created.In(loc))
			}

			sched, err := cron.ParseStandard(spec)
			if err != nil {
				return fmt.Errorf("parse spec %q: %w", spec, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "spec: %s\n", spec)
			next := start.In(loc)
			for range count {
				next = sched.Next(next)
				fmt.Fprintln(out, next.Format(time.RFC3339))
			}
			return nil
		},
	}

	c.Flags().IntVar(&interval, "interval", 60, "check interval in minutes")
	c.Flags().StringVar(&createdAt, "created-at", "", "watch creation time (RFC3339), defaults to --from")
	c.Flags().StringVar(&from, "from", "", "preview start (RFC3339), defaults to now")
	c.Flags().StringVar(&tz, "tz", "UTC", "scheduler timezone")
	c.Flags().IntVar(&count, "count", 5, "number of firings to print")
	c.Flags().BoolVar(&rebook, "rebook", false, "preview a rebooking entry instead of a watch")
	return c
}
