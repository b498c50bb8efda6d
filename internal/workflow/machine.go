// Package workflow owns the operator session: it drives runs through the
// job service, applies poll results, and decides which view the surface
// shows next. All methods must be called from the interaction goroutine;
// the only concurrent work is the poller and the history loader, and both
// hand their results back through explicit adoption calls.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/ledger-recon/internal/aggregate"
	"github.com/Veraticus/ledger-recon/internal/decision"
	"github.com/Veraticus/ledger-recon/internal/history"
	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/poll"
	"github.com/Veraticus/ledger-recon/internal/service"
	"github.com/Veraticus/ledger-recon/internal/session"
)

// Machine coordinates one operator session against the job service.
type Machine struct {
	jobs      service.Jobs
	runLog    service.RunLog
	poller    *poll.Poller
	decisions *decision.Controller
	loader    *history.Loader
	state     *session.State
}

// New creates a machine with a fresh session. runLog may be nil; runs then
// get a placeholder record ID and are not persisted locally.
func New(jobs service.Jobs, runLog service.RunLog) *Machine {
	return &Machine{
		jobs:      jobs,
		runLog:    runLog,
		poller:    poll.New(jobs),
		decisions: decision.New(jobs),
		loader:    history.NewLoader(jobs),
		state:     session.New(),
	}
}

// NewWithPoller creates a machine with custom polling bounds. Used by
// tests and the plain CLI path, which polls faster than the console.
func NewWithPoller(jobs service.Jobs, runLog service.RunLog, poller *poll.Poller) *Machine {
	m := New(jobs, runLog)
	m.poller = poller
	return m
}

// State exposes the session for rendering. Callers must not mutate it.
func (m *Machine) State() *session.State {
	return m.state
}

// SetPeriod sets the reconciliation period for the next run.
func (m *Machine) SetPeriod(start, end time.Time) {
	m.state.StartDate = start
	m.state.EndDate = end
}

// SetSimulation toggles simulation mode and re-derives the default period.
func (m *Machine) SetSimulation(on bool) {
	m.state.Simulation = on
	m.state.DefaultPeriod(time.Now())
}

// SetEnableAI toggles AI-assisted matching for the next run.
func (m *Machine) SetEnableAI(on bool) {
	m.state.EnableAI = on
}

// StartRun launches a reconciliation for the session's period. On success
// the session holds the new run identity and moves to the processing view;
// on failure it stays on the main view with the error surfaced.
func (m *Machine) StartRun(ctx context.Context) bool {
	m.state.ClearMessages()

	req := model.StartRequest{
		StartDate:        m.state.StartDate.Format("2006-01-02"),
		EndDate:          m.state.EndDate.Format("2006-01-02"),
		SimulationMode:   m.state.Simulation,
		EnableAIMatching: m.state.EnableAI,
	}

	token, ok := m.jobs.Start(ctx, req)
	if !ok {
		m.state.LastError = "Failed to start reconciliation. Is the service running?"
		m.state.View = session.ViewMain
		return false
	}

	run := &model.RunIdentity{
		RunToken:    token,
		RecID:       m.nextRecID(ctx),
		PeriodStart: m.state.StartDate,
		PeriodEnd:   m.state.EndDate,
		Simulation:  m.state.Simulation,
	}

	// A new run supersedes any poll still in flight for the old one.
	m.state.PollGen++
	m.state.Run = run
	m.state.Status = nil
	m.state.ResetPagers()
	m.state.View = session.ViewProcessing

	if m.runLog != nil {
		if err := m.runLog.SaveRun(ctx, *run); err != nil {
			slog.Warn("Failed to record run locally", "rec_id", run.RecID, "error", err)
		}
	}

	slog.Info("Reconciliation started",
		"rec_id", run.RecID,
		"thread_id", token,
		"period", model.Period{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
		}.Display())
	return true
}

// nextRecID draws the next local record ID, falling back to a placeholder
// when the run log is unavailable.
func (m *Machine) nextRecID(ctx context.Context) string {
	if m.runLog == nil {
		return "REC-000"
	}
	id, err := m.runLog.NextRecID(ctx)
	if err != nil {
		slog.Warn("Run counter unavailable", "error", err)
		return "REC-000"
	}
	return id
}

// BeginPoll registers a polling pass and returns the thread to poll plus
// the generation the eventual result must present to FinishPoll. ok is
// false when the session has no active run.
func (m *Machine) BeginPoll() (threadID string, gen int, ok bool) {
	if !m.state.HasRun() {
		return "", 0, false
	}
	return m.state.Run.RunToken, m.state.PollGen, true
}

// Observe applies an intermediate status without changing views. The poller
// calls it for every successful poll so a cancellation or progress change is
// visible while the wait continues.
func (m *Machine) Observe(status *model.StatusPayload) {
	if status != nil {
		m.state.Status = status
	}
}

// ObservePoll applies an intermediate status from a polling pass. Returns
// false when the generation went stale, telling the caller to stop polling.
func (m *Machine) ObservePoll(gen int, status *model.StatusPayload) bool {
	if gen != m.state.PollGen {
		return false
	}
	m.Observe(status)
	return true
}

// FinishPoll applies a completed polling pass. Results from a superseded
// generation are discarded: the run was cancelled or replaced while the
// poll was in flight, and its outcome no longer describes this session.
func (m *Machine) FinishPoll(gen int, result *model.StatusPayload) {
	if gen != m.state.PollGen {
		slog.Debug("Discarding stale poll result", "gen", gen, "current", m.state.PollGen)
		return
	}

	if result == nil {
		m.state.View = session.ViewMain
		m.state.LastError = "Reconciliation is taking longer than expected. Check status again shortly."
		return
	}

	m.state.Status = result
	m.recordStatus(result.Status)

	switch result.Status.Canonical() {
	case model.StatusAwaitingReview:
		m.state.View = session.ViewMain
		summary := m.Summary()
		m.state.Notice = fmt.Sprintf("Reconciliation paused for review: %d matched, %d exceptions, %d unmatched.",
			summary.MatchedCount, summary.ExceptionsCount, summary.UnmatchedCount)
	case model.StatusAwaitingApproval:
		m.state.View = session.ViewApproval
	case model.StatusComplete:
		m.state.View = session.ViewMain
		m.state.Notice = "Reconciliation complete."
	case model.StatusCancelled:
		m.state.View = session.ViewMain
		m.state.Notice = "Reconciliation cancelled."
	case model.StatusFailed:
		m.state.View = session.ViewMain
		m.state.LastError = "Reconciliation failed on the server."
	default:
		// Non-checkpoint statuses only reach here through direct refreshes.
		m.state.View = session.ViewProcessing
	}
}

// FetchStatus fetches one status response. It touches no session state, so
// interactive surfaces may call it off the interaction goroutine and apply
// the result there through ObservePoll and FinishPoll.
func (m *Machine) FetchStatus(ctx context.Context, threadID string) *model.StatusPayload {
	return m.jobs.Status(ctx, threadID)
}

// PollBounds returns the poll interval and attempt cap for surfaces that
// drive the polling loop themselves.
func (m *Machine) PollBounds() (time.Duration, int) {
	return m.poller.Interval(), m.poller.MaxAttempts()
}

// AwaitCheckpoint polls until the active run reaches a checkpoint and
// applies the outcome. It blocks; interactive surfaces run it off the
// interaction goroutine and call FinishPoll themselves.
func (m *Machine) AwaitCheckpoint(ctx context.Context) *model.StatusPayload {
	threadID, gen, ok := m.BeginPoll()
	if !ok {
		return nil
	}
	result := m.poller.Wait(ctx, threadID, m.Observe)
	m.FinishPoll(gen, result)
	return result
}

// Cancel aborts the active run. Any in-flight poll result is discarded so
// a late checkpoint cannot overwrite the cancellation.
func (m *Machine) Cancel(ctx context.Context) bool {
	if !m.state.HasRun() {
		m.state.LastError = "No active reconciliation to cancel."
		return false
	}

	if !m.jobs.Cancel(ctx, m.state.Run.RunToken) {
		m.state.LastError = "Cancel request failed."
		return false
	}

	m.state.PollGen++
	if m.state.Status != nil {
		m.state.Status.Status = model.StatusCancelled
	}
	m.recordStatus(model.StatusCancelled)
	m.state.View = session.ViewMain
	m.state.Notice = "Reconciliation cancelled."
	return true
}

// Summary aggregates the cached status into the cross-bank view.
func (m *Machine) Summary() aggregate.Summary {
	return aggregate.FromStatus(m.state.Status)
}

// Refresh refetches the active run's status without changing views.
func (m *Machine) Refresh(ctx context.Context) bool {
	if !m.state.HasRun() {
		return false
	}
	status := m.jobs.Status(ctx, m.state.Run.RunToken)
	if status == nil {
		m.state.LastError = "Could not refresh run status."
		return false
	}
	m.state.Status = status
	return true
}

// Decide submits one exception decision and re-syncs the cached status.
func (m *Machine) Decide(ctx context.Context, exceptionID, decided, notes string) bool {
	if !m.decisions.Decide(ctx, m.state, exceptionID, decided, notes) {
		m.state.LastError = "Decision was not accepted. Try again."
		return false
	}
	m.state.Notice = fmt.Sprintf("Exception %s %sd.", exceptionID, decided)
	return true
}

// ApproveFinal submits the final approval decision. Approval sends the run
// back to processing for report generation; rejection returns to the main
// view with the run still at its approval checkpoint on the server.
func (m *Machine) ApproveFinal(ctx context.Context, decided string) bool {
	if !m.state.HasRun() {
		m.state.LastError = "No active reconciliation."
		return false
	}

	result := m.jobs.Approve(ctx, m.state.Run.RunToken, decided)
	if result == nil {
		m.state.LastError = "Approval submission failed."
		return false
	}

	if decided == model.DecisionApprove {
		m.state.View = session.ViewProcessing
		m.state.Notice = "Final approval submitted."
	} else {
		m.state.View = session.ViewMain
		m.state.Notice = "Reconciliation sent back for rework."
	}
	return true
}

// ConfirmReport approves the reconciliation from the export view. The
// approval is submitted to the service, which starts report generation;
// the cached status flips to complete only once the service accepted it.
// Refused while exceptions remain undecided.
func (m *Machine) ConfirmReport(ctx context.Context) bool {
	if !m.state.HasRun() || m.state.Status == nil {
		m.state.LastError = "No reconciliation results to confirm."
		return false
	}

	if count := m.Summary().ExceptionsCount; count > 0 {
		m.state.LastError = fmt.Sprintf("%d exceptions still need a decision.", count)
		return false
	}

	if m.jobs.Approve(ctx, m.state.Run.RunToken, model.ReportApproved) == nil {
		m.state.LastError = "Approval submission failed."
		return false
	}

	if m.state.Status.Status != model.StatusComplete {
		m.state.Status.Status = model.StatusComplete
		m.recordStatus(model.StatusComplete)
	}
	m.state.Notice = "Reconciliation approved. Reports are being generated."
	return true
}

// RejectReport submits a rejection from the export view, then marks the
// cached status with the local rejected marker. The marker never comes back
// from the server; the run can be revisited from history.
func (m *Machine) RejectReport(ctx context.Context) bool {
	if !m.state.HasRun() || m.state.Status == nil {
		m.state.LastError = "No reconciliation results to reject."
		return false
	}

	if m.jobs.Approve(ctx, m.state.Run.RunToken, model.ReportRejected) == nil {
		m.state.LastError = "Rejection submission failed."
		return false
	}

	m.state.Status.Status = model.StatusRejected
	m.recordStatus(model.StatusRejected)
	m.state.Notice = "Reconciliation rejected."
	return true
}

// ExportTarget returns the run whose report may be downloaded. The report
// only exists once the reconciliation is approved and complete.
func (m *Machine) ExportTarget() (string, bool) {
	if !m.state.HasRun() {
		m.state.LastError = "No active reconciliation to export."
		return "", false
	}
	if m.state.Status == nil || m.state.Status.Status.Canonical() != model.StatusComplete {
		m.state.LastError = "Report download is available after approval."
		return "", false
	}
	return m.state.Run.RunToken, true
}

// FetchReport asks the service for the spreadsheet report. It touches no
// session state and is safe off the interaction goroutine.
func (m *Machine) FetchReport(ctx context.Context, threadID string) *model.ExportResult {
	return m.jobs.ExportExcel(ctx, threadID)
}

// ExportReport downloads the report for the active, approved run.
func (m *Machine) ExportReport(ctx context.Context) *model.ExportResult {
	threadID, ok := m.ExportTarget()
	if !ok {
		return nil
	}
	result := m.FetchReport(ctx, threadID)
	if result == nil {
		m.state.LastError = "Export failed. The report may not be ready yet."
		return nil
	}
	return result
}

// OpenView switches the surface to a result view. Views that render run
// results require results to be present.
func (m *Machine) OpenView(view session.View) bool {
	switch view {
	case session.ViewMatched, session.ViewUnmatched, session.ViewExceptions,
		session.ViewExport, session.ViewApproval:
		if m.state.Status == nil {
			m.state.LastError = "No reconciliation results yet."
			return false
		}
	case session.ViewMain, session.ViewProcessing, session.ViewHistory, session.ViewHistoryDetail:
	}

	m.state.ClearMessages()
	m.state.View = view

	switch view {
	case session.ViewMatched:
		m.state.MatchedPager.Reset()
	case session.ViewUnmatched:
		m.state.UnmatchedBankPager.Reset()
		m.state.UnmatchedGlPager.Reset()
	case session.ViewHistory:
		m.state.HistoryPager.Reset()
	case session.ViewMain, session.ViewProcessing, session.ViewExceptions,
		session.ViewExport, session.ViewApproval, session.ViewHistoryDetail:
	}
	return true
}

// Back returns to the previous surface: detail views fall back to history,
// everything else to main.
func (m *Machine) Back() {
	m.state.ClearMessages()
	switch m.state.View {
	case session.ViewHistoryDetail:
		m.state.View = session.ViewHistory
		m.state.SelectedHistory = nil
		m.state.HistoryDetail = nil
	default:
		m.state.View = session.ViewMain
	}
}

// SetBankFilter restricts the matched view to one bank. An empty bank
// clears the filter. Changing the filter rewinds matched pagination.
func (m *Machine) SetBankFilter(bank string) {
	if m.state.BankFilter == bank {
		return
	}
	m.state.BankFilter = bank
	m.state.MatchedPager.Reset()
}

// OpenHistory shows the history view and kicks off the background load on
// first open. The view renders whatever is merged so far; AdoptHistory
// folds the loaded records in when they arrive.
func (m *Machine) OpenHistory(ctx context.Context) {
	m.OpenView(session.ViewHistory)
	m.loader.Start(ctx)
}

// AdoptHistory merges the background history result into the session if it
// has arrived. Returns true when new records were adopted. Records already
// present (matched by run token) keep their place.
func (m *Machine) AdoptHistory() bool {
	records, ok := m.loader.Poll()
	if !ok {
		return false
	}
	if records == nil {
		m.state.LastError = "Could not load run history from the service."
		return true
	}

	known := make(map[string]struct{}, len(m.state.History))
	for _, rec := range m.state.History {
		known[rec.RunToken] = struct{}{}
	}

	for _, rec := range records {
		if _, dup := known[rec.RunToken]; dup {
			continue
		}
		m.state.History = append(m.state.History, rec)
	}
	return true
}

// SelectHistory opens the detail view for one history record. The record's
// full results are resolved here, once, so rendering works from memory.
func (m *Machine) SelectHistory(ctx context.Context, index int) bool {
	if index < 0 || index >= len(m.state.History) {
		return false
	}
	rec := m.state.History[index]
	m.state.SelectedHistory = &rec
	m.state.HistoryDetail = m.resolveHistoryDetail(ctx, &rec)
	m.state.View = session.ViewHistoryDetail
	return true
}

// resolveHistoryDetail produces the full results for a history record: the
// stored snapshot when the service saved one, a live status fetch
// otherwise. Returns nil when neither source can produce results.
func (m *Machine) resolveHistoryDetail(ctx context.Context, rec *model.HistoryRecord) *model.StatusPayload {
	if snapshot := rec.Snapshot(); snapshot != nil {
		return snapshot
	}
	return m.jobs.Status(ctx, rec.RunToken)
}

// recordStatus mirrors a status change into the local run log.
func (m *Machine) recordStatus(status model.Status) {
	if m.runLog == nil || !m.state.HasRun() {
		return
	}
	if err := m.runLog.UpdateRunStatus(context.Background(), m.state.Run.RunToken, status); err != nil {
		slog.Debug("Run log status update failed",
			"thread_id", m.state.Run.RunToken,
			"error", err)
	}
}
