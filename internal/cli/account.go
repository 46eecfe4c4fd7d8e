package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odiabackend099/callwaiting/pkg/client"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage metered accounts",
	}

	cmd.AddCommand(newAccountCreateCmd())
	cmd.AddCommand(newAccountShowCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountActivateCmd())
	cmd.AddCommand(newAccountResetCmd())
	cmd.AddCommand(newAccountCompleteCallCmd())

	return cmd
}

func newAccountCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <email>",
		Short: "Sign up an account on the free trial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apiClient.Accounts().Create(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			return printAccount(a)
		},
	}
}

func newAccountShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <account-id>",
		Short: "Show an account and its quota",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apiClient.Accounts().Get(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get account: %w", err)
			}
			return printAccount(a)
		},
	}
}

func newAccountListCmd() *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := apiClient.Accounts().List(context.Background(), &client.ListOptions{Page: page, PageSize: pageSize})
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			t := NewTable("ID", "EMAIL", "PLAN", "USED", "QUOTA", "PERIOD ENDS")
			for _, a := range result.Data {
				t.AddRow(
					a.ID,
					truncate(a.Email, 32),
					a.Plan,
					strconv.FormatInt(a.QuotaConsumedMinutes, 10),
					strconv.FormatInt(a.QuotaAllottedMinutes, 10),
					formatTime(a.PeriodEndsAt),
				)
			}
			t.Render()
			fmt.Printf("\nPage %d of %d (%d accounts)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "accounts per page")

	return cmd
}

func newAccountActivateCmd() *cobra.Command {
	var reference string

	cmd := &cobra.Command{
		Use:   "activate <account-id> <plan>",
		Short: "Activate a paid plan after a confirmed payment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apiClient.Billing().Activate(context.Background(), args[0], args[1], reference)
			if err != nil {
				return fmt.Errorf("failed to activate plan: %w", err)
			}
			return printAccount(a)
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "payment reference")

	return cmd
}

func newAccountResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <account-id>",
		Short: "Start a new billing period with nothing consumed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apiClient.Accounts().ResetPeriod(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to reset period: %w", err)
			}
			return printAccount(a)
		},
	}
}

func newAccountCompleteCallCmd() *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:   "complete-call <account-id> <duration-seconds>",
		Short: "Settle a finished call against the trial or paid quota",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[1], err)
			}

			c, err := apiClient.Accounts().CompleteCall(context.Background(), args[0], agentID, seconds)
			if err != nil {
				return fmt.Errorf("failed to complete call: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(c)
			}
			if c.Trial != nil {
				fmt.Printf("Trial call: %ds recorded", c.Trial.RecordedSeconds)
				if c.Trial.OverageSeconds > 0 {
					fmt.Printf(" (%ds over the trial cap)", c.Trial.OverageSeconds)
				}
				fmt.Println()
				return nil
			}
			fmt.Printf("Charged %d minute(s) on plan %s\n", c.ChargedMinutes, c.Plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent that handled the call")

	return cmd
}

func printAccount(a *client.Account) error {
	if getOutputFormat() != "table" {
		return printOutput(a)
	}

	fmt.Printf("ID:              %s\n", a.ID)
	fmt.Printf("Email:           %s\n", a.Email)
	fmt.Printf("Plan:            %s\n", a.Plan)
	fmt.Printf("Minutes:         %d used of %d (%d remaining)\n",
		a.QuotaConsumedMinutes, a.QuotaAllottedMinutes, a.QuotaRemainingMinutes)
	fmt.Printf("Period:          %s to %s\n", formatTime(a.PeriodStartedAt), formatTime(a.PeriodEndsAt))
	fmt.Printf("Created:         %s\n", formatTime(a.CreatedAt))
	return nil
}
