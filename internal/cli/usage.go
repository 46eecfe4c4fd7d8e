package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/odiabackend099/callwaiting/pkg/client"
)

func newUsageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect and record metered usage",
	}

	cmd.AddCommand(newUsageSummaryCmd())
	cmd.AddCommand(newUsageEventsCmd())
	cmd.AddCommand(newUsageRecordCmd())
	cmd.AddCommand(newUsageExportCmd())

	return cmd
}

func newUsageSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <account-id>",
		Short: "Show minutes used in the current period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := apiClient.Usage().Summary(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get usage summary: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(sum)
			}
			fmt.Printf("Plan:       %s\n", sum.Plan)
			fmt.Printf("Used:       %d min\n", sum.MinutesUsed)
			fmt.Printf("Quota:      %d min\n", sum.MinutesQuota)
			fmt.Printf("Remaining:  %d min\n", sum.Remaining)
			return nil
		},
	}
}

func newUsageEventsCmd() *cobra.Command {
	var (
		kind           string
		since          string
		page, pageSize int
	)

	cmd := &cobra.Command{
		Use:   "events <account-id>",
		Short: "List the usage audit log, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := eventOptions(kind, since)
			if err != nil {
				return err
			}
			opts.Page = page
			opts.PageSize = pageSize

			result, err := apiClient.Usage().Events(context.Background(), args[0], opts)
			if err != nil {
				return fmt.Errorf("failed to list usage events: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			t := NewTable("RECORDED", "KIND", "SECONDS", "AGENT", "EVENT ID")
			for _, ev := range result.Data {
				t.AddRow(
					formatTime(ev.RecordedAt),
					ev.Kind,
					strconv.FormatInt(ev.SecondsConsumed, 10),
					truncate(deref(ev.AgentID), 20),
					ev.ID,
				)
			}
			t.Render()
			fmt.Printf("\nPage %d of %d (%d events)\n", result.Page, result.TotalPages, result.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (tts, inference, call-trial, call)")
	cmd.Flags().StringVar(&since, "since", "", "only events after this time (RFC3339) or duration ago (e.g. 24h)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "events per page")

	return cmd
}

func newUsageRecordCmd() *cobra.Command {
	var agentID string

	cmd := &cobra.Command{
		Use:   "record <account-id> <kind> <seconds>",
		Short: "Charge a completed billable action",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[2], err)
			}

			req := client.RecordUsageRequest{AgentID: agentID, Kind: args[1], Seconds: seconds}
			if err := apiClient.Usage().Record(context.Background(), args[0], req); err != nil {
				return fmt.Errorf("failed to record usage: %w", err)
			}
			fmt.Printf("Recorded %ds of %s\n", seconds, args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent that performed the action")

	return cmd
}

func newUsageExportCmd() *cobra.Command {
	var kind, since, out string

	cmd := &cobra.Command{
		Use:   "export <account-id>",
		Short: "Download the usage audit log as an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := eventOptions(kind, since)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("usage_%s.xlsx", args[0])
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			n, err := apiClient.Usage().Export(context.Background(), args[0], opts, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(out)
				return fmt.Errorf("failed to export usage: %w", err)
			}

			fmt.Printf("Wrote %s (%d bytes)\n", out, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind")
	cmd.Flags().StringVar(&since, "since", "", "only events after this time (RFC3339) or duration ago (e.g. 720h)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default usage_<account-id>.xlsx)")

	return cmd
}

// eventOptions accepts --since as either an RFC3339 time or a duration back from now
func eventOptions(kind, since string) (*client.EventListOptions, error) {
	opts := &client.EventListOptions{Kind: kind}
	if since == "" {
		return opts, nil
	}
	if t, err := time.Parse(time.RFC3339, since); err == nil {
		opts.Since = t
		return opts, nil
	}
	d, err := time.ParseDuration(since)
	if err != nil {
		return nil, fmt.Errorf("invalid --since %q: want RFC3339 or a duration", since)
	}
	opts.Since = time.Now().Add(-d)
	return opts, nil
}
