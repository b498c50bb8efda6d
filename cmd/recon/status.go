package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ledger-recon/internal/aggregate"
	"github.com/Veraticus/ledger-recon/internal/cli"
	"github.com/Veraticus/ledger-recon/internal/model"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <thread-id>",
		Short: "Show the current status of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := initClient()
			if err := requireService(ctx, client); err != nil {
				return err
			}

			status := client.Status(ctx, args[0])
			if status == nil {
				return fmt.Errorf("no status for run %s; is the service running?", args[0])
			}

			summary := aggregate.FromStatus(status)
			period := "unknown period"
			if status.Period != nil {
				period = status.Period.Display()
			}

			fmt.Println(cli.RenderBox("Run "+args[0], fmt.Sprintf(
				"Status:     %s\nPeriod:     %s\nMatched:    %d\nExceptions: %d\nUnmatched:  %d bank / %d ledger",
				status.Status.Canonical(), period,
				summary.MatchedCount, summary.ExceptionsCount,
				summary.UnmatchedCount, len(summary.UnmatchedGl))))

			if status.Status.Canonical() == model.StatusAwaitingReview {
				fmt.Println(cli.FormatInfo("Run 'recon console' to review."))
			}
			return nil
		},
	}
}
