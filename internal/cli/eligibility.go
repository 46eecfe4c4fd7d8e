package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newEligibilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Admission checks for billable actions",
	}

	cmd.AddCommand(newEligibilityCheckCmd())

	return cmd
}

func newEligibilityCheckCmd() *cobra.Command {
	var surface string
	var seconds int64

	cmd := &cobra.Command{
		Use:   "check <account-id>",
		Short: "Check whether a billable action may start",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := apiClient.CheckEligibility(context.Background(), args[0], surface, seconds)
			if err != nil {
				return fmt.Errorf("eligibility unknown: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(d)
			}
			if d.Allowed {
				fmt.Printf("%s  %d of %d minutes remaining\n", formatState("allowed"), d.MinutesRemaining, d.MinutesQuota)
				return nil
			}
			fmt.Printf("%s  %s\n", formatState(d.Reason), d.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&surface, "surface", "call", "surface: call, tts or inference")
	cmd.Flags().Int64Var(&seconds, "seconds", 0, "estimated seconds the action will consume")

	return cmd
}
