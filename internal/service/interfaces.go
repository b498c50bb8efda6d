// Package service defines the interfaces the reconciliation console is built
// against.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/ledger-recon/internal/model"
)

// Jobs is the client contract for the external reconciliation job service.
// Every operation reports failure through its return value — a nil payload
// or false — rather than an error: transport failures and service rejections
// are equivalent to the caller, which branches on presence.
type Jobs interface {
	// Health reports whether the service answers its health check.
	Health(ctx context.Context) bool

	// Start launches a reconciliation run and returns the server's run
	// token, or "" and false on failure.
	Start(ctx context.Context, req model.StartRequest) (string, bool)

	// Status fetches the full run status, or nil on failure.
	Status(ctx context.Context, threadID string) *model.StatusPayload

	// Resolve submits a batch of review actions.
	Resolve(ctx context.Context, threadID string, actions []model.PendingAction) bool

	// UpdateException submits a single approve/reject decision.
	UpdateException(ctx context.Context, threadID, exceptionID, decision, notes string) bool

	// Approve submits the final approval decision.
	Approve(ctx context.Context, threadID, decision string) *model.ApprovalResult

	// Cancel aborts a running reconciliation.
	Cancel(ctx context.Context, threadID string) bool

	// ExportExcel asks the service for the spreadsheet report.
	ExportExcel(ctx context.Context, threadID string) *model.ExportResult

	// History lists past runs, most recent first as far as the service is
	// concerned; callers re-sort defensively.
	History(ctx context.Context, limit int) ([]model.HistoryRecord, bool)
}

// RunLog persists runs started from this console: the monotonic REC counter
// and enough of each run to list it after a restart.
type RunLog interface {
	NextRecID(ctx context.Context) (string, error)
	SaveRun(ctx context.Context, run model.RunIdentity) error
	UpdateRunStatus(ctx context.Context, runToken string, status model.Status) error
	ListRuns(ctx context.Context, limit int) ([]model.LocalRun, error)
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures bounded-retry behavior for startup waits.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
