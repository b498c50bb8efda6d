// Package model defines the core types shared across the reconciliation console.
package model

import (
	"encoding/json"
	"time"
)

// Status is the server-reported lifecycle state of a reconciliation run.
type Status string

// Run statuses as reported by the job service.
const (
	StatusStarting         Status = "starting"
	StatusRunning          Status = "running"
	StatusAwaitingReview   Status = "awaiting_human_review"
	StatusReviewRequired   Status = "review_required" // older name for StatusAwaitingReview
	StatusAwaitingApproval Status = "awaiting_final_approval"
	StatusComplete         Status = "complete"
	StatusCancelled        Status = "cancelled"
	StatusFailed           Status = "failed"

	// StatusRejected is a local marker set when the operator rejects a
	// reconciliation from the export view. The job service never reports it.
	StatusRejected Status = "rejected"
)

// Canonical collapses the synonymous review statuses into one value.
// The service has used both names across releases.
func (s Status) Canonical() Status {
	if s == StatusReviewRequired {
		return StatusAwaitingReview
	}
	return s
}

// Terminal reports whether the run can no longer change state.
func (s Status) Terminal() bool {
	switch s {
	case StatusComplete, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// Checkpoint reports whether the status ends a polling wait: the run either
// needs a human or is finished.
func (s Status) Checkpoint() bool {
	switch s.Canonical() {
	case StatusAwaitingReview, StatusAwaitingApproval:
		return true
	default:
		return s.Terminal()
	}
}

// RunIdentity names a single reconciliation run. Created when the run is
// started and immutable afterwards. RecID comes from the local counter, not
// from the server token.
type RunIdentity struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	RunToken    string
	RecID       string
	Simulation  bool
}

// StartRequest is the body of POST /reconcile/start.
type StartRequest struct {
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	SimulationMode   bool   `json:"simulation_mode"`
	EnableAIMatching bool   `json:"enable_ai_matching"`
}

// StatusPayload is the full response of GET /reconcile/status/{id}.
type StatusPayload struct {
	BankMatches map[string]BankMatches `json:"bank_matches"`
	Period      *Period                `json:"reconciliation_period,omitempty"`
	Statement   *Statement             `json:"reconciliation_statement,omitempty"`
	ThreadID    string                 `json:"thread_id"`
	Status      Status                 `json:"status"`
	UnmatchedGl []GlTxn                `json:"unmatched_gl_transactions"`
}

// BankMatches is the per-bank slice of a status payload.
type BankMatches struct {
	MatchedTransactions       []Match     `json:"matched_transactions"`
	Exceptions                []Exception `json:"exceptions"`
	UnmatchedBankTransactions []BankTxn   `json:"unmatched_bank_transactions"`
}

// Statement carries the balance summary shown on the final approval view.
type Statement struct {
	StartingBalance float64      `json:"starting_balance"`
	EndingBalance   float64      `json:"ending_balance"`
	NetChange       float64      `json:"net_change"`
	Variance        float64      `json:"variance"`
	Adjustments     []Adjustment `json:"adjustments"`
	IsBalanced      bool         `json:"is_balanced"`
}

// Adjustment is a single manual adjustment line on the statement.
type Adjustment struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// ApprovalResult is the response of POST /reconcile/approve.
type ApprovalResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ExportResult is what the export endpoint produced: either a spreadsheet
// (Data + Filename) or a JSON acknowledgment (Message + ReportPaths).
type ExportResult struct {
	Filename    string
	Message     string
	ReportPaths []string
	Data        []byte
}

// Decision values accepted by the exception and approval endpoints.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"

	// Report-level decisions submitted on the approve endpoint from the
	// export surface.
	ReportApproved = "approved"
	ReportRejected = "rejected"
)

// PendingAction is a queued exception decision. Decisions are submitted
// immediately today, but partial submissions must stay representable.
type PendingAction struct {
	ExceptionID string `json:"exception_id"`
	Decision    string `json:"decision"`
	Notes       string `json:"notes"`
}

// HistoryRecord is one entry of GET /reconcile/history. RecID is positional
// (REC-001 = most recent at load time) and is reassigned on every load; it is
// a different numbering scheme from the local counter used for new runs.
type HistoryRecord struct {
	RecID       string          `json:"-"`
	RunToken    string          `json:"thread_id"`
	PeriodStart string          `json:"start_date"`
	PeriodEnd   string          `json:"end_date"`
	Status      Status          `json:"status"`
	CreatedAt   string          `json:"created_at"`
	CompletedAt string          `json:"completed_at"`
	Simulation  bool            `json:"simulation_mode"`
	Metadata    json.RawMessage `json:"metadata"`
}

// CreatedTime parses the record's creation timestamp. The second return is
// false when the service sent something unparsable.
func (h HistoryRecord) CreatedTime() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, h.CreatedAt); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Snapshot decodes the stored result metadata into a status payload.
// Returns nil when the snapshot is absent or malformed; callers fall back to
// a live status fetch.
func (h HistoryRecord) Snapshot() *StatusPayload {
	if len(h.Metadata) == 0 {
		return nil
	}
	var payload StatusPayload
	if err := json.Unmarshal(h.Metadata, &payload); err != nil {
		return nil
	}
	if payload.BankMatches == nil {
		return nil
	}
	return &payload
}

// LocalRun is a run started from this console, as stored in the run log.
// Its RecID uses the monotonic local counter, not the positional history
// numbering.
type LocalRun struct {
	CreatedAt time.Time
	Status    Status
	RunIdentity
}
