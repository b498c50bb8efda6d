// Package poll drives the blocking wait for a reconciliation run to reach a
// checkpoint: a status that needs a human or ends the run.
package poll

import (
	"context"
	"log/slog"
	"time"

	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/service"
)

// Polling bounds. Thirty attempts two seconds apart caps the wait at about
// a minute; exhaustion is a retryable condition for the operator, not an
// error.
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// Poller repeatedly fetches run status until it reaches a checkpoint.
type Poller struct {
	jobs        service.Jobs
	interval    time.Duration
	maxAttempts int
}

// New creates a poller with the default interval and attempt cap.
func New(jobs service.Jobs) *Poller {
	return &Poller{
		jobs:        jobs,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
	}
}

// NewWithOptions creates a poller with custom bounds. Zero values fall back
// to the defaults.
func NewWithOptions(jobs service.Jobs, interval time.Duration, maxAttempts int) *Poller {
	p := New(jobs)
	if interval > 0 {
		p.interval = interval
	}
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	return p
}

// Interval returns the delay between poll attempts.
func (p *Poller) Interval() time.Duration { return p.interval }

// MaxAttempts returns the attempt cap.
func (p *Poller) MaxAttempts() int { return p.maxAttempts }

// Wait blocks until the run reaches a checkpoint status, the attempt cap is
// exhausted, or ctx is canceled. It returns the checkpoint payload, or nil
// as the timeout sentinel.
//
// Every successful poll — checkpoint or not — is handed to observe before
// the checkpoint test, so the caller's cached status tracks the run even
// while waiting and a concurrent cancel is noticed promptly. Failed polls
// are skipped silently; the attempt still counts. The loop yields between
// attempts, so a cancel request issued from the same surface stays
// deliverable.
func (p *Poller) Wait(ctx context.Context, threadID string, observe func(*model.StatusPayload)) *model.StatusPayload {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status := p.jobs.Status(ctx, threadID)
		if status != nil {
			if observe != nil {
				observe(status)
			}
			if status.Status.Checkpoint() {
				slog.Debug("Run reached checkpoint",
					"thread_id", threadID,
					"status", status.Status,
					"attempts", attempt)
				return status
			}
		}

		if attempt == p.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.interval):
		}
	}

	slog.Warn("Polling exhausted without reaching a checkpoint",
		"thread_id", threadID,
		"attempts", p.maxAttempts)
	return nil
}
