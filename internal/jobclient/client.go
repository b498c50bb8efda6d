// Package jobclient is the HTTP client for the external reconciliation job
// service. Every method swallows transport errors and non-success status
// codes into a nil-or-false result: failures here are never fatal to the
// interactive path, and callers branch on presence rather than error type.
// The two failure classes are distinguished in the logs only.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/ledger-recon/internal/model"
)

const (
	defaultTimeout = 30 * time.Second
	healthTimeout  = 5 * time.Second

	excelContentType = "application/vnd.openxmlformats"
	defaultExcelName = "reconciliation_report.xlsx"
)

// Client talks to the job service. It is stateless and safe for concurrent
// use.
type Client struct {
	httpClient   *http.Client
	healthClient *http.Client
	baseURL      string
}

// New creates a job service client for the given base URL.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, defaultTimeout)
}

// NewWithTimeout creates a client with a custom request timeout. The health
// check keeps its own short timeout regardless.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		healthClient: &http.Client{Timeout: healthTimeout},
	}
}

// Health reports whether GET /health answers 200 within its short timeout.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		slog.Debug("Health check failed", "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Start launches a reconciliation run. Returns the server's thread token,
// or "" and false on any failure.
func (c *Client) Start(ctx context.Context, req model.StartRequest) (string, bool) {
	var result struct {
		ThreadID string `json:"thread_id"`
	}
	if !c.postJSON(ctx, "/reconcile/start", req, &result) {
		return "", false
	}
	if result.ThreadID == "" {
		slog.Warn("Start response carried no thread_id")
		return "", false
	}
	return result.ThreadID, true
}

// Status fetches the current run status, or nil on failure.
func (c *Client) Status(ctx context.Context, threadID string) *model.StatusPayload {
	var payload model.StatusPayload
	if !c.getJSON(ctx, "/reconcile/status/"+url.PathEscape(threadID), &payload) {
		return nil
	}
	return &payload
}

// Resolve submits a batch of review actions.
func (c *Client) Resolve(ctx context.Context, threadID string, actions []model.PendingAction) bool {
	body := struct {
		ThreadID string                `json:"thread_id"`
		Actions  []model.PendingAction `json:"actions"`
	}{ThreadID: threadID, Actions: actions}
	return c.postJSON(ctx, "/reconcile/resolve", body, nil)
}

// UpdateException submits a single approve/reject decision for one exception.
func (c *Client) UpdateException(ctx context.Context, threadID, exceptionID, decision, notes string) bool {
	body := struct {
		ThreadID    string `json:"thread_id"`
		ExceptionID string `json:"exception_id"`
		Decision    string `json:"decision"`
		Notes       string `json:"notes"`
	}{ThreadID: threadID, ExceptionID: exceptionID, Decision: decision, Notes: notes}
	return c.postJSON(ctx, "/reconcile/exceptions/update", body, nil)
}

// Approve submits the final approval decision, or nil on failure.
func (c *Client) Approve(ctx context.Context, threadID, decision string) *model.ApprovalResult {
	body := struct {
		ThreadID string `json:"thread_id"`
		Decision string `json:"decision"`
	}{ThreadID: threadID, Decision: decision}
	var result model.ApprovalResult
	if !c.postJSON(ctx, "/reconcile/approve", body, &result) {
		return nil
	}
	return &result
}

// Cancel aborts a running reconciliation.
func (c *Client) Cancel(ctx context.Context, threadID string) bool {
	return c.postJSON(ctx, "/reconcile/cancel/"+url.PathEscape(threadID), nil, nil)
}

// ExportExcel requests the spreadsheet report. The service answers either
// with the spreadsheet itself or with a JSON acknowledgment naming the
// report paths it wrote server-side; both come back as an ExportResult.
func (c *Client) ExportExcel(ctx context.Context, threadID string) *model.ExportResult {
	body, err := json.Marshal(struct {
		ThreadID string `json:"thread_id"`
	}{ThreadID: threadID})
	if err != nil {
		slog.Warn("Failed to encode export request", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reconcile/export/excel", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Export request failed", "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("Export rejected by service", "status", resp.StatusCode)
		return nil
	}

	if strings.Contains(resp.Header.Get("Content-Type"), excelContentType) {
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Warn("Failed to read export body", "error", readErr)
			return nil
		}
		return &model.ExportResult{
			Data:     data,
			Filename: exportFilename(resp.Header.Get("Content-Disposition")),
		}
	}

	var fallback struct {
		Message     string   `json:"message"`
		ReportPaths []string `json:"report_paths"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&fallback); decodeErr != nil {
		slog.Warn("Failed to decode export response", "error", decodeErr)
		return nil
	}
	return &model.ExportResult{
		Message:     fallback.Message,
		ReportPaths: fallback.ReportPaths,
	}
}

// History lists past runs, newest first per the service's own ordering.
func (c *Client) History(ctx context.Context, limit int) ([]model.HistoryRecord, bool) {
	var payload struct {
		History []model.HistoryRecord `json:"history"`
	}
	path := "/reconcile/history?limit=" + strconv.Itoa(limit)
	if !c.getJSON(ctx, path, &payload) {
		return nil, false
	}
	return payload.History, true
}

func (c *Client) getJSON(ctx context.Context, path string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) bool {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			slog.Warn("Failed to encode request body", "path", path, "error", err)
			return false
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return false
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) bool {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("Job service request failed", "path", req.URL.Path, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Warn("Job service rejected request",
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"body", string(detail))
		return false
	}

	if out == nil {
		return true
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Warn("Failed to decode job service response", "path", req.URL.Path, "error", err)
		return false
	}
	return true
}

// exportFilename extracts the filename from a Content-Disposition header,
// falling back to a fixed default.
func exportFilename(disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return defaultExcelName
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string {
	return fmt.Sprintf("jobclient(%s)", c.baseURL)
}
