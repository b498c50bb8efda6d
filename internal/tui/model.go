// Package tui is the interactive console over the reconciliation workflow.
// The bubbletea update loop is the interaction goroutine: every machine
// call happens here, and background waits come back as messages.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/ledger-recon/internal/cli"
	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/session"
	"github.com/Veraticus/ledger-recon/internal/workflow"
)

// Model holds the console state around the workflow machine.
type Model struct {
	machine    *workflow.Machine
	keymap     KeyMap
	spinner    spinner.Model
	exportNote string
	width      int
	height     int
	selected   int
	quitting   bool
}

// New creates the console model.
func New(machine *workflow.Machine) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	return Model{
		machine: machine,
		keymap:  DefaultKeyMap(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pollStatusMsg:
		if !m.machine.ObservePoll(msg.gen, msg.status) {
			// Superseded generation; let the stale loop die out.
			return m, nil
		}
		if msg.status != nil && msg.status.Status.Checkpoint() {
			m.machine.FinishPoll(msg.gen, msg.status)
			m.selected = 0
			return m, nil
		}
		_, maxAttempts := m.machine.PollBounds()
		if msg.attempt >= maxAttempts {
			m.machine.FinishPoll(msg.gen, nil)
			m.selected = 0
			return m, nil
		}
		return m, m.pollStatus(msg.threadID, msg.gen, msg.attempt+1)

	case historyTickMsg:
		m.machine.AdoptHistory()
		if v := m.state().View; v == session.ViewHistory || v == session.ViewHistoryDetail {
			return m, historyTick()
		}
		return m, nil

	case exportDoneMsg:
		switch {
		case msg.err != nil:
			m.exportNote = cli.FormatError("Export failed: " + msg.err.Error())
		case msg.path != "":
			m.exportNote = cli.FormatSuccess("Report saved to " + msg.path)
		case msg.result != nil && msg.result.Message != "":
			m.exportNote = cli.FormatInfo(msg.result.Message)
		default:
			m.exportNote = cli.FormatInfo("Report generated on the server.")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) state() *session.State {
	return m.machine.State()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.ForceQuit) {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state().View {
	case session.ViewMain:
		return m.handleMainKey(msg)
	case session.ViewProcessing:
		return m.handleProcessingKey(msg)
	case session.ViewMatched:
		return m.handleMatchedKey(msg)
	case session.ViewUnmatched:
		return m.handleUnmatchedKey(msg)
	case session.ViewExceptions:
		return m.handleExceptionsKey(msg)
	case session.ViewExport:
		return m.handleExportKey(msg)
	case session.ViewApproval:
		return m.handleApprovalKey(msg)
	case session.ViewHistory:
		return m.handleHistoryKey(msg)
	case session.ViewHistoryDetail:
		return m.handleHistoryDetailKey(msg)
	}
	return m, nil
}

func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Start):
		if m.machine.StartRun(ctx) {
			return m, m.pollCheckpoint()
		}
	case key.Matches(msg, m.keymap.ToggleSimulation):
		m.machine.SetSimulation(!m.state().Simulation)
	case key.Matches(msg, m.keymap.ToggleAI):
		m.machine.SetEnableAI(!m.state().EnableAI)
	case key.Matches(msg, m.keymap.Matched):
		m.machine.OpenView(session.ViewMatched)
	case key.Matches(msg, m.keymap.Unmatched):
		m.machine.OpenView(session.ViewUnmatched)
	case key.Matches(msg, m.keymap.Exceptions):
		m.selected = 0
		m.machine.OpenView(session.ViewExceptions)
	case key.Matches(msg, m.keymap.Export):
		m.exportNote = ""
		m.machine.OpenView(session.ViewExport)
	case key.Matches(msg, m.keymap.History):
		m.selected = 0
		m.machine.OpenHistory(ctx)
		return m, historyTick()
	}
	return m, nil
}

func (m Model) handleProcessingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Cancel) {
		m.machine.Cancel(context.Background())
	}
	return m, nil
}

func (m Model) handleMatchedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.state()
	summary := m.machine.Summary()
	visible := summary.FilterMatched(state.BankFilter)

	switch {
	case key.Matches(msg, m.keymap.Back):
		m.machine.Back()
	case key.Matches(msg, m.keymap.PageNext):
		state.MatchedPager.Next(len(visible))
	case key.Matches(msg, m.keymap.PagePrev):
		state.MatchedPager.Prev(len(visible))
	case key.Matches(msg, m.keymap.CycleBank):
		m.machine.SetBankFilter(nextBank(summary.Banks(), state.BankFilter))
	}
	return m, nil
}

// nextBank cycles the filter through all banks and back to unfiltered.
func nextBank(banks []string, current string) string {
	if len(banks) == 0 {
		return ""
	}
	if current == "" {
		return banks[0]
	}
	for i, bank := range banks {
		if bank == current {
			if i+1 < len(banks) {
				return banks[i+1]
			}
			return ""
		}
	}
	return ""
}

func (m Model) handleUnmatchedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.state()
	summary := m.machine.Summary()

	switch {
	case key.Matches(msg, m.keymap.Back):
		m.machine.Back()
	case key.Matches(msg, m.keymap.PageNext):
		state.UnmatchedBankPager.Next(len(summary.UnmatchedBank))
		state.UnmatchedGlPager.Next(len(summary.UnmatchedGl))
	case key.Matches(msg, m.keymap.PagePrev):
		state.UnmatchedBankPager.Prev(len(summary.UnmatchedBank))
		state.UnmatchedGlPager.Prev(len(summary.UnmatchedGl))
	}
	return m, nil
}

func (m Model) handleExceptionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	exceptions := m.machine.Summary().Exceptions

	switch {
	case key.Matches(msg, m.keymap.Back):
		m.machine.Back()
	case key.Matches(msg, m.keymap.Down):
		if m.selected < len(exceptions)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keymap.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keymap.Approve):
		if m.selected < len(exceptions) {
			m.machine.Decide(ctx, exceptions[m.selected].ID(), model.DecisionApprove, "")
			m.selected = clampSelection(m.selected, len(m.machine.Summary().Exceptions))
		}
	case key.Matches(msg, m.keymap.Reject):
		if m.selected < len(exceptions) {
			m.machine.Decide(ctx, exceptions[m.selected].ID(), model.DecisionReject, "")
			m.selected = clampSelection(m.selected, len(m.machine.Summary().Exceptions))
		}
	}
	return m, nil
}

func clampSelection(selected, n int) int {
	if selected >= n {
		selected = n - 1
	}
	if selected < 0 {
		selected = 0
	}
	return selected
}

func (m Model) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch {
	case key.Matches(msg, m.keymap.Back):
		m.machine.Back()
	case key.Matches(msg, m.keymap.Approve):
		m.machine.ConfirmReport(ctx)
	case key.Matches(msg, m.keymap.Reject):
		m.machine.RejectReport(ctx)
	case key.Matches(msg, m.keymap.Download):
		if cmd := m.downloadReport(); cmd != nil {
			m.exportNote = cli.FormatInfo("Requesting report...")
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch {
	case key.Matches(msg, m.keymap.Approve):
		if m.machine.ApproveFinal(ctx, model.DecisionApprove) {
			return m, m.pollCheckpoint()
		}
	case key.Matches(msg, m.keymap.Reject):
		m.machine.ApproveFinal(ctx, model.DecisionReject)
	case key.Matches(msg, m.keymap.Back):
		m.machine.Back()
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	state := m.state()

	switch {
	case key.Matches(msg, m.keymap.Back):
		m.machine.Back()
	case key.Matches(msg, m.keymap.Down):
		if m.selected < len(state.History)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keymap.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keymap.PageNext):
		state.HistoryPager.Next(len(state.History))
	case key.Matches(msg, m.keymap.PagePrev):
		state.HistoryPager.Prev(len(state.History))
	case key.Matches(msg, m.keymap.Select):
		m.machine.SelectHistory(context.Background(), m.selected)
	}
	return m, nil
}

func (m Model) handleHistoryDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Back) {
		m.machine.Back()
	}
	return m, nil
}
