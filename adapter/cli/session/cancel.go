package session

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/coachbook/adapter/cli"
	"github.com/felixgeelhaar/coachbook/internal/booking/application/commands"
)

func newCancelCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel a session",
		Long: `Cancel a session, freeing its slot.

Examples:
  coachbook session cancel 550e8400-e29b-41d4-a716-446655440000 --reason "athlete sick"`,
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp()
			if err != nil {
				return err
			}

			sessionID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session ID: %w", err)
			}

			cancelled, err := app.CancelSessionHandler.Handle(cmd.Context(), commands.CancelSessionCommand{
				SessionID: sessionID,
				Reason:    reason,
			})
			if err != nil {
				return fmt.Errorf("failed to cancel session: %w", err)
			}

			if cli.JSONOutput() {
				return cli.PrintJSON(cmd.OutOrStdout(), cancelled)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cancelled.")
			printSession(cmd.OutOrStdout(), *cancelled)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "why the session is cancelled")
	return cmd
}
