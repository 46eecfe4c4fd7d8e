package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTrialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Inspect free trials",
	}

	cmd.AddCommand(newTrialStatusCmd())
	cmd.AddCommand(newTrialRecordCmd())

	return cmd
}

func newTrialStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <account-id>",
		Short: "Show trial state and whether a call may start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			te, err := apiClient.Trial().Status(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get trial status: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(te)
			}

			s := te.Status
			fmt.Printf("State:       %s\n", formatState(s.State))
			fmt.Printf("Used:        %ds of %ds (%ds remaining)\n", s.SecondsUsed, s.CapSeconds, s.SecondsRemaining)
			fmt.Printf("Expires:     %s (%d days)\n", formatTime(s.ExpiresAt), s.DaysRemaining)
			if te.CanCall {
				fmt.Println("Can call:    yes")
			} else {
				fmt.Printf("Can call:    no (%s)\n", te.Reason)
			}
			return nil
		},
	}
}

func newTrialRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <account-id> <seconds>",
		Short: "Charge seconds against the trial",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[1], err)
			}

			s, err := apiClient.Trial().RecordUsage(context.Background(), args[0], seconds)
			if err != nil {
				return fmt.Errorf("trial usage not recorded: %w", err)
			}
			if getOutputFormat() != "table" {
				return printOutput(s)
			}
			fmt.Printf("Recorded. %ds of trial remaining\n", s.SecondsRemaining)
			return nil
		},
	}
}
