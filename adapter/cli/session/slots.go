package session

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

func newSlotsCmd() *cobra.Command {
	var (
		coach    string
		date     string
		start    string
		duration int
	)

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Check a slot and list free alternatives",
		Long: `Check whether a slot is free without booking anything.

Examples:
  coachbook session slots --date 2025-03-10 --start 09:00 --duration 60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := cli.GetApp()
			if app == nil || app.FindSlotsHandler == nil {
				return fmt.Errorf("application not initialized - database connection required")
			}

			coachID, err := coachID(app, coach)
			if err != nil {
				return err
			}
			day, err := parseDate(date)
			if err != nil {
				return err
			}
			startClock, err := domain.ParseClock(start)
			if err != nil {
				return err
			}

			result, err := app.FindSlotsHandler.Handle(cmd.Context(), queries.FindSlotsQuery{
				ResourceID:      coachID,
				Date:            day,
				Start:           startClock,
				DurationMinutes: duration,
			})
			if err != nil {
				return fmt.Errorf("failed to find slots: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.JSONOutput() {
				return cli.PrintJSON(out, result)
			}
			if result.Free {
				fmt.Fprintf(out, "%s %s is free.\n", day, startClock)
				return nil
			}
			printConflicts(out, result.Conflicts)
			fmt.Fprintln(out)
			printSlots(out, result.Slots)
			return nil
		},
	}

	cmd.Flags().StringVar(&coach, "coach", "", "coach ID (default COACHBOOK_COACH_ID)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&start, "start", "s", "", "start time HH:MM")
	cmd.Flags().IntVarP(&duration, "duration", "m", 60, "duration in minutes")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}
