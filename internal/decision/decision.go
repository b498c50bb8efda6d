// Package decision submits operator decisions on exceptions and keeps the
// cached run status consistent with the job service afterwards.
package decision

import (
	"context"
	"log/slog"

	"github.com/Veraticus/ledger-recon/internal/service"
	"github.com/Veraticus/ledger-recon/internal/session"
)

// Controller issues approve/reject calls for single exceptions. Decisions
// are independent and never batched, even though the session can represent
// a pending-action queue.
type Controller struct {
	jobs service.Jobs
}

// New creates a decision controller.
func New(jobs service.Jobs) *Controller {
	return &Controller{jobs: jobs}
}

// Decide submits one exception decision and reports whether the service
// accepted it (a transport-level success, not a domain acknowledgment).
//
// On acceptance the cached status is replaced wholesale with a fresh fetch:
// the server alone decides which list the exception moved to, so exceptions
// are never patched locally. On rejection the session is left untouched and
// the caller surfaces the failure; the operator retries by deciding again.
func (c *Controller) Decide(ctx context.Context, state *session.State, exceptionID, decision, notes string) bool {
	if !state.HasRun() {
		slog.Warn("Decision without an active run", "exception_id", exceptionID)
		return false
	}

	threadID := state.Run.RunToken
	if !c.jobs.UpdateException(ctx, threadID, exceptionID, decision, notes) {
		return false
	}

	slog.Info("Exception decision accepted",
		"thread_id", threadID,
		"exception_id", exceptionID,
		"decision", decision)

	// Forced refresh. A failed refetch keeps the stale status; the next
	// successful refresh replaces it anyway.
	if fresh := c.jobs.Status(ctx, threadID); fresh != nil {
		state.Status = fresh
	} else {
		slog.Warn("Status refresh after decision failed; keeping previous status",
			"thread_id", threadID)
	}

	return true
}
