package session

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
)

func newProposeCmd() *cobra.Command {
	var flags specFlags

	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose a session and book it if the slot is free",
		Long: `Propose a session on the coach's calendar.

If nothing overlaps, the session is booked. Otherwise the conflicting
sessions and free alternative slots are shown and nothing is booked.

Examples:
  coachbook session propose --date 2025-03-10 --start 09:00 --duration 90
  coachbook session propose -d 2025-03-10 -s 17:30 -e 18:15 -a <athlete-id> -t "Track"`,
		Aliases: []string{"book", "add"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp()
			if err != nil {
				return err
			}
			spec, err := flags.spec(app)
			if err != nil {
				return err
			}

			result, err := app.ProposeSessionHandler.Handle(cmd.Context(), commands.ProposeSessionCommand{SessionSpec: spec})
			if err != nil {
				return fmt.Errorf("failed to propose session: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.JSONOutput() {
				return cli.PrintJSON(out, result)
			}

			if result.Committed != nil {
				fmt.Fprintln(out, "Session booked!")
				fmt.Fprintln(out, strings.Repeat("-", 50))
				printSession(out, *result.Committed)
				return nil
			}

			fmt.Fprintln(out, "The slot is taken. Nothing was booked.")
			printConflicts(out, result.Conflicts)
			fmt.Fprintln(out)
			printSlots(out, result.Slots)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Resolve with: coachbook session resolve <same flags> --strategy reschedule|replace|force")
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}
