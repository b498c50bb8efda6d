package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ledger-recon/internal/cli"
)

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <thread-id>",
		Short: "Cancel a running reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := initClient()
			if err := requireService(ctx, client); err != nil {
				return err
			}

			if !client.Cancel(ctx, args[0]) {
				return fmt.Errorf("cancel request for %s failed", args[0])
			}

			fmt.Println(cli.FormatSuccess("Run " + args[0] + " cancelled."))
			return nil
		},
	}
}
