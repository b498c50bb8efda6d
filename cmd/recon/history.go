package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ledger-recon/internal/cli"
	"github.com/Veraticus/ledger-recon/internal/history"
	"github.com/Veraticus/ledger-recon/internal/model"
)

func historyCmd() *cobra.Command {
	var (
		local bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past reconciliation runs",
		Long: `Lists past runs from the service. With --local, lists only runs started
from this machine, read from the local run log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if local {
				runLog, err := initRunLog(ctx)
				if err != nil {
					return fmt.Errorf("local run log unavailable: %w", err)
				}
				defer func() { _ = runLog.Close() }()

				runs, err := runLog.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Println(cli.FormatInfo("No local runs recorded yet."))
					return nil
				}
				for _, run := range runs {
					sim := ""
					if run.Simulation {
						sim = " (sim)"
					}
					fmt.Printf("%-8s %s → %s  %-22s%s\n",
						run.RecID,
						run.PeriodStart.Format("2006-01-02"),
						run.PeriodEnd.Format("2006-01-02"),
						run.Status,
						sim)
				}
				return nil
			}

			client := initClient()
			if err := requireService(ctx, client); err != nil {
				return err
			}
			records := history.NewLoaderWithLimit(client, limit).Load(ctx)
			if records == nil {
				return fmt.Errorf("could not load history; is the service running?")
			}
			if len(records) == 0 {
				fmt.Println(cli.FormatInfo("No runs on the server yet."))
				return nil
			}
			for _, rec := range records {
				sim := ""
				if rec.Simulation {
					sim = " (sim)"
				}
				fmt.Printf("%-8s %s → %s  %-22s%s\n",
					rec.RecID,
					model.DisplayDate(rec.PeriodStart),
					model.DisplayDate(rec.PeriodEnd),
					rec.Status,
					sim)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "list runs started from this machine")
	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "maximum runs to list")
	return cmd
}
