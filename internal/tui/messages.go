package tui

import "github.com/Veraticus/ledger-recon/internal/model"

// pollStatusMsg carries one poll attempt's response back to the update
// loop. gen is the poll generation taken at launch; attempt counts from 1.
// The update loop applies the status on the interaction goroutine, then
// either finishes the poll or schedules the next attempt.
type pollStatusMsg struct {
	status   *model.StatusPayload
	threadID string
	gen      int
	attempt  int
}

// historyTickMsg asks the update loop to try adopting the background
// history load.
type historyTickMsg struct{}

// exportDoneMsg carries the outcome of a report download.
type exportDoneMsg struct {
	result *model.ExportResult
	path   string
	err    error
}
