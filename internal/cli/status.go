package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show API health and the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			health, err := apiClient.Health(ctx)
			if err != nil {
				return fmt.Errorf("API unreachable: %w", err)
			}

			if getOutputFormat() != "table" {
				summary := map[string]interface{}{"health": health}
				if plans, err := apiClient.Billing().Plans(ctx); err == nil {
					summary["plans"] = len(plans)
				}
				return printOutput(summary)
			}

			fmt.Println("CallWaiting Metering")
			fmt.Println(strings.Repeat("=", 40))
			fmt.Printf("  API:           %s\n", formatState(health.Status))
			fmt.Printf("  Database:      %s\n", health.Database)

			plans, err := apiClient.Billing().Plans(ctx)
			if err != nil {
				fmt.Printf("  Plans:         (error: %v)\n", err)
			} else {
				fmt.Printf("  Plans:         %d available\n", len(plans))
			}
			return nil
		},
	}
}
