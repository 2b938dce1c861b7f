package athlete

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List athletes",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireDirectory()
			if err != nil {
				return err
			}

			athletes, err := app.Directory.List(cmd.Context(), app.CoachID)
			if err != nil {
				return fmt.Errorf("failed to list athletes: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.JSONOutput() {
				views := make([]athleteView, len(athletes))
				for i, a := range athletes {
					views[i] = toView(a)
				}
				return cli.PrintJSON(out, views)
			}
			if len(athletes) == 0 {
				fmt.Fprintln(out, "No athletes yet.")
				return nil
			}

			for _, a := range athletes {
				contact := a.Email()
				if a.HasTelegram() {
					contact += " [telegram]"
				}
				fmt.Fprintf(out, "  %s  %-24s %s\n", a.ID(), a.DisplayName(), contact)
			}
			return nil
		},
	}
}
