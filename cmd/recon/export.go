package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ledger-recon/internal/aggregate"
	"github.com/Veraticus/ledger-recon/internal/cli"
	"github.com/Veraticus/ledger-recon/internal/service"
	"github.com/Veraticus/ledger-recon/internal/sheets"
)

func exportCmd() *cobra.Command {
	var (
		output   string
		toSheets bool
	)

	cmd := &cobra.Command{
		Use:   "export <thread-id>",
		Short: "Download the spreadsheet report for a run",
		Long: `Downloads the Excel report the service generated for a run. With
--sheets, also publishes the run summary to Google Sheets (configure
credentials via GOOGLE_SHEETS_* environment variables).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := initClient()
			threadID := args[0]
			if err := requireService(ctx, client); err != nil {
				return err
			}

			result := client.ExportExcel(ctx, threadID)
			if result == nil {
				return fmt.Errorf("export failed; the report may not be ready yet")
			}

			switch {
			case len(result.Data) > 0:
				path := output
				if path == "" {
					path = result.Filename
				}
				if err := os.WriteFile(path, result.Data, 0600); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Println(cli.FormatSuccess("Report saved to " + path))
			case result.Message != "":
				fmt.Println(cli.FormatInfo(result.Message))
				for _, p := range result.ReportPaths {
					fmt.Println("  " + p)
				}
			default:
				fmt.Println(cli.FormatInfo("Report generated on the server."))
			}

			if toSheets {
				if err := publishToSheets(cmd, client, threadID); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the report to")
	cmd.Flags().BoolVar(&toSheets, "sheets", false, "also publish the summary to Google Sheets")
	return cmd
}

// publishToSheets pushes the run's summary rows to Google Sheets.
func publishToSheets(cmd *cobra.Command, client service.Jobs, threadID string) error {
	ctx := cmd.Context()

	status := client.Status(ctx, threadID)
	if status == nil {
		return fmt.Errorf("could not fetch run %s for the sheets export", threadID)
	}

	config := sheets.DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, config, slog.Default())
	if err != nil {
		return err
	}

	report := sheets.Report{
		RecID:     threadID,
		Statement: status.Statement,
		Summary:   aggregate.FromStatus(status),
	}
	if status.Period != nil {
		report.Period = *status.Period
	}

	if err := writer.Write(ctx, report); err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess("Summary published to Google Sheets."))
	return nil
}
