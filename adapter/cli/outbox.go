package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and repair domain event delivery",
	}
	cmd.AddCommand(newOutboxStatusCmd(), newOutboxRequeueCmd())
	return cmd
}

func newOutboxStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending and dead-lettered events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := outboxOperator()
			if err != nil {
				return err
			}
			backlog, err := op.Backlog(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read outbox: %w", err)
			}
			if JSONOutput() {
				return PrintJSON(cmd.OutOrStdout(), backlog)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pending: %d\n", backlog.Pending)
			fmt.Fprintf(out, "dead:    %d\n", backlog.Dead)
			if backlog.OldestPendingAt != nil {
				lag := backlog.Lag(time.Now()).Round(time.Second)
				fmt.Fprintf(out, "oldest:  %s (%s ago)\n", backlog.OldestPendingAt.Format(time.RFC3339), lag)
			}
			return nil
		},
	}
}

func newOutboxRequeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue [id...]",
		Short: "Retry dead-lettered events",
		Long: `Gives dead-lettered events a fresh retry budget. Without IDs every
dead-lettered event is requeued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := outboxOperator()
			if err != nil {
				return err
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid message id %q", arg)
				}
				ids = append(ids, id)
			}

			requeued, err := op.Requeue(cmd.Context(), ids...)
			if JSONOutput() {
				if printErr := PrintJSON(cmd.OutOrStdout(), map[string]int{"requeued": requeued}); printErr != nil {
					return printErr
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "requeued %d event(s)\n", requeued)
			}
			return err
		},
	}
}

func outboxOperator() (OutboxOperator, error) {
	app := GetApp()
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	if app.Outbox == nil {
		return nil, fmt.Errorf("outbox not available")
	}
	return app.Outbox, nil
}

func init() {
	rootCmd.AddCommand(newOutboxCmd())
}
