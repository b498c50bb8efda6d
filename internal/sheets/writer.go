package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/ledger-recon/internal/aggregate"
	"github.com/Veraticus/ledger-recon/internal/common"
	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/service"
)

// Report is everything the spreadsheet renders for one reconciliation run.
type Report struct {
	Statement *model.Statement
	RecID     string
	Period    model.Period
	Summary   aggregate.Summary
}

// Writer publishes reconciliation reports to a Google spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Write publishes one report, replacing any previous contents.
func (w *Writer) Write(ctx context.Context, report Report) error {
	w.logger.Info("publishing reconciliation report",
		"rec_id", report.RecID,
		"period", report.Period.Display(),
		"matched", report.Summary.MatchedCount,
		"exceptions", report.Summary.ExceptionsCount)

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := w.prepareReportData(report)

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Formatting failures never fail the publish
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report published",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))
	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Reconciliation",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays the report out as rows.
func (w *Writer) prepareReportData(report Report) [][]any {
	summary := report.Summary

	estimatedRows := 24 + len(summary.Matched) + len(summary.Exceptions) +
		len(summary.UnmatchedBank) + len(summary.UnmatchedGl)
	values := make([][]any, 0, estimatedRows)

	values = append(values,
		[]any{"Bank Reconciliation", report.Period.Display()},
		[]any{"Record", report.RecID},
		[]any{},
		[]any{"Summary"},
		[]any{"Matched", summary.MatchedCount},
		[]any{"Exceptions", summary.ExceptionsCount},
		[]any{"Unmatched Bank", summary.UnmatchedCount},
		[]any{"Unmatched Ledger", len(summary.UnmatchedGl)},
	)

	if st := report.Statement; st != nil {
		values = append(values,
			[]any{},
			[]any{"Statement"},
			[]any{"Starting Balance", st.StartingBalance},
			[]any{"Ending Balance", st.EndingBalance},
			[]any{"Net Change", st.NetChange},
			[]any{"Variance", st.Variance},
		)
		for _, adj := range st.Adjustments {
			values = append(values, []any{"Adjustment: " + adj.Description, adj.Amount})
		}
	}

	values = append(values,
		[]any{},
		[]any{"Matched Transactions"},
		[]any{"Bank", "Date", "Description", "Amount", "Ledger Ref", "Type", "Confidence"},
	)
	for _, m := range summary.Matched {
		values = append(values, []any{
			m.Bank,
			model.DisplayDate(m.BankTxn.Date),
			m.BankTxn.DisplayDescription(),
			m.BankTxn.Amount,
			m.GlTxn.TransactionID,
			string(m.MatchType),
			fmt.Sprintf("%.2f", m.Confidence),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Exceptions"},
		[]any{"Bank", "Date", "Description", "Amount", "Confidence"},
	)
	for _, exc := range summary.Exceptions {
		values = append(values, []any{
			exc.Bank,
			model.DisplayDate(exc.BankTransaction.Date),
			exc.BankTransaction.DisplayDescription(),
			exc.BankTransaction.Amount,
			fmt.Sprintf("%.2f", exc.Confidence),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Unmatched Bank Transactions"},
		[]any{"Bank", "Date", "Description", "Amount", "Type"},
	)
	for _, rec := range summary.UnmatchedBank {
		values = append(values, []any{
			rec.Bank,
			model.DisplayDate(rec.Txn.Date),
			rec.Txn.DisplayDescription(),
			rec.Txn.Amount,
			rec.Txn.DisplayType(),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Unmatched Ledger Entries"},
		[]any{"Date", "Description", "Account", "Amount"},
	)
	for _, gl := range summary.UnmatchedGl {
		values = append(values, []any{
			model.DisplayDate(gl.Date),
			gl.Description,
			gl.Account,
			gl.ResolvedAmount(),
		})
	}

	return values
}

// writeData writes the data to the spreadsheet in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		valueRange := &sheets.ValueRange{Values: values[i:end]}
		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", end-i)
	}
	return nil
}

// applyFormatting applies header and number formatting.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 3,
					EndColumnIndex:   4,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{
							Type:    "NUMBER",
							Pattern: "#,##0.00",
						},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   7,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: 0,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount: 2,
					},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}
