package session

import (
	"github.com/spf13/cobra"
)

// Cmd is the session command group
var Cmd = NewCmd()

// NewCmd builds a fresh session command tree.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Book and manage coaching sessions",
		Long: `Propose sessions, resolve conflicts, cancel and list sessions.

A proposal whose slot is free is booked right away. Otherwise the
conflicting sessions and free alternatives are shown, and the booking
waits for 'coachbook session resolve'.`,
		Aliases: []string{"s"},
	}
	cmd.AddCommand(newProposeCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newCancelCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newSlotsCmd())
	return cmd
}
