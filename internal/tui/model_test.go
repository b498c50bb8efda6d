package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/poll"
	"github.com/Veraticus/ledger-recon/internal/session"
	"github.com/Veraticus/ledger-recon/internal/testutil"
	"github.com/Veraticus/ledger-recon/internal/workflow"
)

func testModel(jobs *testutil.MockJobs) Model {
	machine := workflow.NewWithPoller(jobs, nil, poll.NewWithOptions(jobs, time.Millisecond, 3))
	return New(machine)
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	next, ok := updated.(Model)
	require.True(t, ok)
	return next, cmd
}

// drive runs a command chain to completion, feeding each message back into
// the update loop the way the bubbletea runtime would.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		updated, next := m.Update(cmd())
		var ok bool
		m, ok = updated.(Model)
		require.True(t, ok)
		cmd = next
	}
	return m
}

func reviewStatus() *model.StatusPayload {
	return &model.StatusPayload{
		Status: model.StatusAwaitingReview,
		BankMatches: map[string]model.BankMatches{
			"gtb": {
				Exceptions: []model.Exception{
					{BankAccount: "gtb", BankTransaction: model.BankTxn{TransactionID: "T1"}},
					{BankAccount: "gtb", BankTransaction: model.BankTxn{TransactionID: "T2"}},
				},
			},
		},
	}
}

func TestStartKeyLaunchesRunAndPoll(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := testModel(jobs)

	m, cmd := press(t, m, "s")
	assert.Equal(t, session.ViewProcessing, m.state().View)
	require.NotNil(t, cmd)

	// No status ever arrives, so the attempt cap runs out.
	m = drive(t, m, cmd)
	assert.Equal(t, session.ViewMain, m.state().View)
	assert.NotEmpty(t, m.state().LastError)
}

func TestPollLoopAppliesCheckpoint(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{
		{Status: model.StatusRunning},
		reviewStatus(),
	}
	m := testModel(jobs)

	m, cmd := press(t, m, "s")
	m = drive(t, m, cmd)

	assert.Equal(t, session.ViewMain, m.state().View)
	assert.Equal(t, 2, m.machine.Summary().ExceptionsCount)
}

func TestIntermediatePollRefreshesStatus(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{
		{Status: model.StatusRunning},
		reviewStatus(),
	}
	m := testModel(jobs)

	m, cmd := press(t, m, "s")
	require.NotNil(t, cmd)

	// The first attempt answers a non-checkpoint status; it must land in
	// the cache while the wait continues.
	updated, next := m.Update(cmd())
	m = updated.(Model)
	require.NotNil(t, m.state().Status)
	assert.Equal(t, model.StatusRunning, m.state().Status.Status)
	assert.Equal(t, session.ViewProcessing, m.state().View)
	require.NotNil(t, next)
}

func TestStalePollAttemptStopsLoop(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := testModel(jobs)

	m, cmd := press(t, m, "s")
	require.NotNil(t, cmd)
	require.True(t, m.machine.Cancel(context.Background()))

	updated, next := m.Update(cmd())
	m = updated.(Model)
	assert.Nil(t, next)
	assert.Nil(t, m.state().Status)
}

func TestExceptionNavigationAndDecision(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{reviewStatus()}
	m := testModel(jobs)

	m, cmd := press(t, m, "s")
	m = drive(t, m, cmd)

	m, _ = press(t, m, "e")
	assert.Equal(t, session.ViewExceptions, m.state().View)

	m, _ = press(t, m, "j")
	assert.Equal(t, 1, m.selected)

	m, _ = press(t, m, "a")
	require.Len(t, jobs.Decisions, 1)
	assert.Equal(t, "gtb_T2", jobs.Decisions[0].ExceptionID)
	assert.Equal(t, model.DecisionApprove, jobs.Decisions[0].Decision)
}

func TestDownloadBlockedBeforeApproval(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.Export = &model.ExportResult{Filename: "report.xlsx", Data: []byte("x")}
	m := testModel(jobs)

	require.True(t, m.machine.StartRun(context.Background()))
	m.state().Status = reviewStatus()
	m.state().View = session.ViewExport

	m, cmd := press(t, m, "d")
	assert.Nil(t, cmd)
	assert.Contains(t, m.state().LastError, "after approval")
	assert.Empty(t, m.exportNote)
}

func TestDownloadKeepsSessionStateOnUpdateLoop(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.Export = &model.ExportResult{
		Message:     "Report written server-side",
		ReportPaths: []string{"/srv/report.xlsx"},
	}
	m := testModel(jobs)

	require.True(t, m.machine.StartRun(context.Background()))
	m.state().Status = &model.StatusPayload{Status: model.StatusComplete}
	m.state().View = session.ViewExport

	m, cmd := press(t, m, "d")
	require.NotNil(t, cmd)

	// The command only fetches; nothing in session state may change until
	// the message comes back through Update.
	msg := cmd()
	done, ok := msg.(exportDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Empty(t, m.state().LastError)

	updated, _ := m.Update(done)
	m = updated.(Model)
	assert.Contains(t, m.exportNote, "Report written server-side")
}

func TestConfirmSubmitsFromExportView(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := testModel(jobs)

	require.True(t, m.machine.StartRun(context.Background()))
	m.state().Status = &model.StatusPayload{Status: model.StatusAwaitingReview}
	m.state().View = session.ViewExport

	m, _ = press(t, m, "a")
	require.Len(t, jobs.Approvals, 1)
	assert.Equal(t, "thread-test:approved", jobs.Approvals[0])
	assert.Equal(t, model.StatusComplete, m.state().Status.Status)
}

func TestHistoryDetailRendersFromCache(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{reviewStatus()}
	m := testModel(jobs)

	m.state().History = []model.HistoryRecord{{RunToken: "thread-a"}}
	require.True(t, m.machine.SelectHistory(context.Background(), 0))
	calls := jobs.StatusCalls

	// Rendering must not reach the service; the detail was resolved once
	// at selection time.
	_ = m.View()
	_ = m.View()
	assert.Equal(t, calls, jobs.StatusCalls)
	assert.Contains(t, m.View(), "exceptions")
}

func TestResultViewsBlockedWithoutResults(t *testing.T) {
	m := testModel(testutil.NewMockJobs())

	m, _ = press(t, m, "m")
	assert.Equal(t, session.ViewMain, m.state().View)
	assert.NotEmpty(t, m.state().LastError)
}

func TestSimulationToggle(t *testing.T) {
	m := testModel(testutil.NewMockJobs())
	require.True(t, m.state().Simulation)

	m, _ = press(t, m, "t")
	assert.False(t, m.state().Simulation)
}

func TestViewRendersEveryMode(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := testModel(jobs)

	views := []session.View{
		session.ViewMain, session.ViewProcessing, session.ViewMatched,
		session.ViewUnmatched, session.ViewExceptions, session.ViewExport,
		session.ViewApproval, session.ViewHistory, session.ViewHistoryDetail,
	}
	m.state().Status = reviewStatus()
	for _, view := range views {
		m.state().View = view
		assert.NotEmpty(t, m.View(), "view %s", view)
	}
}

func TestNextBankCycles(t *testing.T) {
	banks := []string{"access", "gtb"}

	assert.Equal(t, "access", nextBank(banks, ""))
	assert.Equal(t, "gtb", nextBank(banks, "access"))
	assert.Equal(t, "", nextBank(banks, "gtb"))
	assert.Equal(t, "", nextBank(nil, ""))
}
