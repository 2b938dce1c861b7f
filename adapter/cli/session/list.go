package session

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/queries"
	"github.com/felixgeelhaar/coachbook/internal/booking/domain"
)

func newListCmd() *cobra.Command {
	var (
		coach   string
		from    string
		to      string
		days    int
		showAll bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Long: `List a coach's sessions for a day or a range of days.

Examples:
  coachbook session list                       # today
  coachbook session list --from 2025-03-10 --days 7
  coachbook session list --from 2025-03-10 --to 2025-03-14 --all`,
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app := cli.GetApp()
			if app == nil || app.ListSessionsHandler == nil {
				return fmt.Errorf("application not initialized - database connection required")
			}

			coachID, err := coachID(app, coach)
			if err != nil {
				return err
			}
			fromDate, err := parseDate(from)
			if err != nil {
				return err
			}

			query := queries.ListSessionsQuery{
				ResourceID:       coachID,
				From:             fromDate,
				IncludeCancelled: showAll,
			}
			switch {
			case to != "":
				query.To, err = domain.ParseDate(to)
				if err != nil {
					return err
				}
			case days > 1:
				query.To = fromDate.AddDays(days - 1)
			}

			sessions, err := app.ListSessionsHandler.Handle(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.JSONOutput() {
				return cli.PrintJSON(out, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			fmt.Fprintf(out, "Sessions (%d):\n", len(sessions))
			fmt.Fprintln(out, strings.Repeat("-", 50))
			for _, s := range sessions {
				printSession(out, s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&coach, "coach", "", "coach ID (default COACHBOOK_COACH_ID)")
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", 1, "number of days from --from, ignored when --to is set")
	cmd.Flags().BoolVar(&showAll, "all", false, "include cancelled sessions")
	return cmd
}
