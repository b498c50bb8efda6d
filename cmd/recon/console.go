package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ledger-recon/internal/tui"
	"github.com/Veraticus/ledger-recon/internal/workflow"
)

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive reconciliation console",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client := initClient()
			if err := waitForService(ctx, client); err != nil {
				return err
			}

			runLog, err := initRunLog(ctx)
			if err != nil {
				slog.Warn("Local run log unavailable; runs will not be recorded", "error", err)
				runLog = nil
			} else {
				defer func() { _ = runLog.Close() }()
			}

			machine := workflow.New(client, runLog)
			return tui.Run(ctx, machine)
		},
	}
}
