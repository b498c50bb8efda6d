package tui

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollCheckpoint launches the polling loop for the active run. Commands
// only fetch; every state change lands back in Update via pollStatusMsg.
func (m Model) pollCheckpoint() tea.Cmd {
	threadID, gen, ok := m.machine.BeginPoll()
	if !ok {
		return nil
	}
	return m.pollStatus(threadID, gen, 1)
}

// pollStatus runs one poll attempt off the update loop. The first attempt
// fires immediately; later ones wait out the poll interval first.
func (m Model) pollStatus(threadID string, gen, attempt int) tea.Cmd {
	interval, _ := m.machine.PollBounds()
	return func() tea.Msg {
		if attempt > 1 {
			time.Sleep(interval)
		}
		status := m.machine.FetchStatus(context.Background(), threadID)
		return pollStatusMsg{status: status, threadID: threadID, gen: gen, attempt: attempt}
	}
}

// historyTick schedules the next history adoption attempt.
func historyTick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return historyTickMsg{}
	})
}

// downloadReport fetches the spreadsheet report and writes it next to the
// working directory. The target is resolved on the update loop; the
// command itself touches no session state and hands its outcome back as a
// message. Returns nil when the report is not downloadable yet.
func (m Model) downloadReport() tea.Cmd {
	threadID, ok := m.machine.ExportTarget()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		result := m.machine.FetchReport(context.Background(), threadID)
		if result == nil {
			return exportDoneMsg{err: fmt.Errorf("the report is not ready yet")}
		}
		if len(result.Data) == 0 {
			// JSON acknowledgment; the report lives server-side.
			return exportDoneMsg{result: result}
		}
		if err := os.WriteFile(result.Filename, result.Data, 0600); err != nil {
			return exportDoneMsg{result: result, err: err}
		}
		return exportDoneMsg{result: result, path: result.Filename}
	}
}
