// Package history loads past reconciliation runs from the job service
// without stalling the interactive path.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/service"
)

// DefaultLimit caps how many records one load fetches.
const DefaultLimit = 100

// Loader fetches run history. Load is a plain synchronous call; Start and
// Poll form a one-shot future: Start launches a single background fetch per
// session, and the result is consumed exactly once by an opportunistic Poll
// from the interaction goroutine. The background goroutine never writes
// shared state — the channel is its only output.
type Loader struct {
	jobs   service.Jobs
	result chan []model.HistoryRecord
	once   sync.Once
	limit  int
}

// NewLoader creates a history loader.
func NewLoader(jobs service.Jobs) *Loader {
	return NewLoaderWithLimit(jobs, DefaultLimit)
}

// NewLoaderWithLimit creates a history loader with a custom record cap.
func NewLoaderWithLimit(jobs service.Jobs, limit int) *Loader {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Loader{
		jobs:   jobs,
		limit:  limit,
		result: make(chan []model.HistoryRecord, 1),
	}
}

// Load fetches up to the configured limit of records, newest first, and
// assigns positional display IDs (REC-001 = most recent). Returns nil on
// failure. The positional IDs are recomputed on every load: they are not
// stable across refreshes when new runs appear, and they are a different
// scheme from the monotonic counter given to runs started locally.
func (l *Loader) Load(ctx context.Context) []model.HistoryRecord {
	records, ok := l.jobs.History(ctx, l.limit)
	if !ok {
		return nil
	}

	sortByCreationDesc(records)

	for i := range records {
		records[i].RecID = fmt.Sprintf("REC-%03d", i+1)
	}
	return records
}

// Start launches the background load. Safe to call any number of times per
// session; only the first call starts a fetch. Errors are swallowed — a
// failed load simply stages an empty result and the operator sees a soft
// warning at merge time.
func (l *Loader) Start(ctx context.Context) {
	l.once.Do(func() {
		go func() {
			records := l.Load(ctx)
			if records == nil {
				slog.Warn("Background history load failed")
			}
			l.result <- records
		}()
	})
}

// Poll consumes the background result without blocking. The second return
// is true exactly once per session — when the staged result is adopted.
func (l *Loader) Poll() ([]model.HistoryRecord, bool) {
	select {
	case records := <-l.result:
		return records, true
	default:
		return nil, false
	}
}

// sortByCreationDesc re-sorts records newest first. The service claims to
// order them already, but that is not trusted; when any timestamp fails to
// parse the service's order is kept as-is rather than failing the load.
func sortByCreationDesc(records []model.HistoryRecord) {
	for _, rec := range records {
		if _, ok := rec.CreatedTime(); !ok {
			slog.Debug("Unparsable history timestamp; keeping service order",
				"thread_id", rec.RunToken,
				"created_at", rec.CreatedAt)
			return
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		ti, _ := records[i].CreatedTime()
		tj, _ := records[j].CreatedTime()
		return ti.After(tj)
	})
}
