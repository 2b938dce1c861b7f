package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

func newResolveCmd() *cobra.Command {
	var (
		flags     specFlags
		strategy  string
		slotDate  string
		slotStart string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a conflicting proposal",
		Long: `Book a previously proposed session that conflicted.

Strategies:
  reschedule  Book at one of the offered slots (--slot-start, --slot-date)
  replace     Book at the requested slot and cancel the conflicting sessions
  force       Book at the requested slot, overlapping the others

The candidate flags must match the original proposal.

Examples:
  coachbook session resolve -d 2025-03-10 -s 09:30 --strategy reschedule --slot-start 11:00
  coachbook session resolve -d 2025-03-10 -s 09:30 --strategy replace
  coachbook session resolve -d 2025-03-10 -s 09:30 --strategy force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp()
			if err != nil {
				return err
			}
			spec, err := flags.spec(app)
			if err != nil {
				return err
			}

			resolveCmd := commands.ResolveConflictCommand{
				SessionSpec: spec,
				Strategy:    strategy,
			}
			if slotStart != "" {
				start, err := domain.ParseClock(slotStart)
				if err != nil {
					return err
				}
				resolveCmd.SlotStart = &start
			}
			if slotDate != "" {
				day, err := domain.ParseDate(slotDate)
				if err != nil {
					return err
				}
				resolveCmd.SlotDate = &day
			}

			result, err := app.ResolveConflictHandler.Handle(cmd.Context(), resolveCmd)
			var partial *domain.PartialFailureError
			if err != nil && !errors.As(err, &partial) {
				return fmt.Errorf("failed to resolve conflict: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.JSONOutput() {
				if printErr := cli.PrintJSON(out, result); printErr != nil {
					return printErr
				}
				return err
			}

			fmt.Fprintf(out, "Session booked (%s)!\n", result.Strategy)
			fmt.Fprintln(out, strings.Repeat("-", 50))
			printSession(out, result.Session)
			if len(result.FailedCancellations) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Could not cancel:")
				for _, id := range result.FailedCancellations {
					fmt.Fprintf(out, "  %s\n", id)
				}
			}
			return err
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&strategy, "strategy", "", "resolution strategy: reschedule, replace or force")
	cmd.Flags().StringVar(&slotDate, "slot-date", "", "date of the chosen slot (default the session date)")
	cmd.Flags().StringVar(&slotStart, "slot-start", "", "start of the chosen slot, for reschedule")
	_ = cmd.MarkFlagRequired("strategy")
	return cmd
}
