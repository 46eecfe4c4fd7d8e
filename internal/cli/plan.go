package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := apiClient.Billing().Plans(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list plans: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(plans)
			}

			t := NewTable("PLAN", "NAME", "MINUTES", "PRICE")
			for _, p := range plans {
				t.AddRow(p.Type, p.Name, strconv.FormatInt(p.Minutes, 10),
					fmt.Sprintf("%d.%02d %s", p.AmountMinor/100, p.AmountMinor%100, p.Currency))
			}
			t.Render()
			return nil
		},
	}
}
