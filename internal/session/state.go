// Package session holds the single mutable state of an operator session.
// One State is owned by the workflow machine and passed by reference into
// every component; there are no package-level globals. All writes happen on
// the interaction goroutine — the background history loader stages its
// result in a channel instead of touching State directly.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/ledger-recon/internal/model"
)

// View identifies what the rendering surface should currently show.
type View string

// View modes.
const (
	ViewMain          View = "main"
	ViewProcessing    View = "processing"
	ViewMatched       View = "matched"
	ViewUnmatched     View = "unmatched"
	ViewExceptions    View = "exceptions"
	ViewExport        View = "export"
	ViewApproval      View = "approval"
	ViewHistory       View = "history"
	ViewHistoryDetail View = "history_detail"
)

// State is the canonical session state. Run and Status belong to the active
// run; History is the merged run list; the pagers are the per-view cursors.
type State struct {
	StartDate time.Time
	EndDate   time.Time

	Run    *model.RunIdentity
	Status *model.StatusPayload

	SelectedHistory *model.HistoryRecord

	// HistoryDetail is the resolved results for SelectedHistory, cached at
	// selection time so rendering never has to reach the service.
	HistoryDetail *model.StatusPayload

	ID   string
	View View

	// LastError and Notice are the operator-facing surfaces for the soft
	// failure taxonomy: everything degrades to a message and a known view.
	LastError string
	Notice    string

	BankFilter string

	History        []model.HistoryRecord
	PendingActions []model.PendingAction

	MatchedPager       Pager
	UnmatchedBankPager Pager
	UnmatchedGlPager   Pager
	HistoryPager       Pager

	// PollGen increments whenever an in-flight poll's result must be
	// discarded (a cancel, or a newer run superseding it).
	PollGen int

	Simulation bool
	EnableAI   bool
}

// New creates a fresh session in the main view. Simulation mode starts on,
// matching the service's demo data set.
func New() *State {
	s := &State{
		ID:         uuid.NewString(),
		View:       ViewMain,
		Simulation: true,
		EnableAI:   true,
	}
	s.ResetPagers()
	s.DefaultPeriod(time.Now())
	return s
}

// ResetPagers returns every list cursor to page one.
func (s *State) ResetPagers() {
	s.MatchedPager.Reset()
	s.UnmatchedBankPager.Reset()
	s.UnmatchedGlPager.Reset()
	s.HistoryPager.Reset()
}

// DefaultPeriod picks the default reconciliation period: July 2025 in
// simulation mode (the service's generated demo data), the current month
// otherwise.
func (s *State) DefaultPeriod(now time.Time) {
	if s.Simulation {
		s.StartDate = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
		s.EndDate = time.Date(2025, time.July, 31, 0, 0, 0, 0, time.UTC)
		return
	}
	s.StartDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	s.EndDate = now
}

// ClearMessages drops any pending error or notice.
func (s *State) ClearMessages() {
	s.LastError = ""
	s.Notice = ""
}

// HasRun reports whether a run token is attached to this session.
func (s *State) HasRun() bool {
	return s.Run != nil && s.Run.RunToken != ""
}
