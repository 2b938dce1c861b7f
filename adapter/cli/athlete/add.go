package athlete

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	rosterServices "github.com/felixgeelhaar/coachbook/internal/roster/application/services"
)

func newAddCmd() *cobra.Command {
	var (
		email    string
		telegram int64
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an athlete to the roster",
		Long: `Add an athlete. With a Telegram chat ID the athlete is messaged
when sessions are booked or cancelled for them.

Examples:
  coachbook athlete add "Mara Lind" --email mara@example.com
  coachbook athlete add "Jonas" --telegram 123456789`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireDirectory()
			if err != nil {
				return err
			}

			athlete, err := app.Directory.Register(cmd.Context(), rosterServices.RegisterAthleteInput{
				CoachID:        app.CoachID,
				DisplayName:    args[0],
				Email:          email,
				TelegramChatID: telegram,
			})
			if err != nil {
				return fmt.Errorf("failed to add athlete: %w", err)
			}

			if cli.JSONOutput() {
				return cli.PrintJSON(cmd.OutOrStdout(), toView(athlete))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Athlete added: %s\n", athlete.DisplayName())
			fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", athlete.ID())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().Int64Var(&telegram, "telegram", 0, "Telegram chat ID")
	return cmd
}
