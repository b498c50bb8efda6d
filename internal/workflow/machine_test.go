package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/poll"
	"github.com/Veraticus/ledger-recon/internal/session"
	"github.com/Veraticus/ledger-recon/internal/testutil"
)

func machineFor(jobs *testutil.MockJobs) *Machine {
	poller := poll.NewWithOptions(jobs, time.Millisecond, 5)
	return NewWithPoller(jobs, nil, poller)
}

func reviewPayload(exceptions int) *model.StatusPayload {
	excs := make([]model.Exception, 0, exceptions)
	for i := 0; i < exceptions; i++ {
		excs = append(excs, model.Exception{
			BankAccount:     "gtb",
			BankTransaction: model.BankTxn{TransactionID: string(rune('A' + i))},
			Confidence:      0.6,
		})
	}
	return &model.StatusPayload{
		Status: model.StatusAwaitingReview,
		BankMatches: map[string]model.BankMatches{
			"gtb": {
				MatchedTransactions: []model.Match{
					{BankTransaction: model.BankTxn{TransactionID: "M1"}, Confidence: 0.9},
				},
				Exceptions: excs,
			},
		},
	}
}

func TestStartRun_MovesToProcessing(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	m.SetSimulation(true)
	require.True(t, m.StartRun(context.Background()))

	state := m.State()
	require.NotNil(t, state.Run)
	assert.Equal(t, "thread-test", state.Run.RunToken)
	assert.Equal(t, session.ViewProcessing, state.View)
	assert.Nil(t, state.Status)

	require.Len(t, jobs.Started, 1)
	assert.Equal(t, "2025-07-01", jobs.Started[0].StartDate)
	assert.Equal(t, "2025-07-31", jobs.Started[0].EndDate)
	assert.True(t, jobs.Started[0].SimulationMode)
}

func TestStartRun_FailureStaysOnMain(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StartFail = true
	m := machineFor(jobs)

	assert.False(t, m.StartRun(context.Background()))

	state := m.State()
	assert.Equal(t, session.ViewMain, state.View)
	assert.NotEmpty(t, state.LastError)
	assert.Nil(t, state.Run)
}

func TestAwaitCheckpoint_ReviewReturnsToMain(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{
		{Status: model.StatusRunning},
		reviewPayload(2),
	}
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	result := m.AwaitCheckpoint(context.Background())

	require.NotNil(t, result)
	state := m.State()
	assert.Equal(t, session.ViewMain, state.View)
	assert.Equal(t, model.StatusAwaitingReview, state.Status.Status)
	assert.Contains(t, state.Notice, "2 exceptions")
}

func TestAwaitCheckpoint_ApprovalOpensApprovalView(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{
		{Status: model.StatusAwaitingApproval},
	}
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	require.NotNil(t, m.AwaitCheckpoint(context.Background()))
	assert.Equal(t, session.ViewApproval, m.State().View)
}

func TestAwaitCheckpoint_TimeoutSurfacesError(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{
		{Status: model.StatusRunning},
	}
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	result := m.AwaitCheckpoint(context.Background())

	assert.Nil(t, result)
	state := m.State()
	assert.Equal(t, session.ViewMain, state.View)
	assert.NotEmpty(t, state.LastError)
}

func TestFinishPoll_DiscardsStaleGeneration(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	_, gen, ok := m.BeginPoll()
	require.True(t, ok)

	// The cancel below supersedes the in-flight poll.
	require.True(t, m.Cancel(context.Background()))
	m.FinishPoll(gen, reviewPayload(1))

	state := m.State()
	assert.Equal(t, session.ViewMain, state.View)
	assert.Nil(t, state.Status)
}

func TestObservePoll_DiscardsStaleGeneration(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	_, gen, ok := m.BeginPoll()
	require.True(t, ok)

	require.True(t, m.Cancel(context.Background()))
	assert.False(t, m.ObservePoll(gen, reviewPayload(1)))
	assert.Nil(t, m.State().Status)
}

func TestCancel_RequiresActiveRun(t *testing.T) {
	m := machineFor(testutil.NewMockJobs())
	assert.False(t, m.Cancel(context.Background()))
	assert.NotEmpty(t, m.State().LastError)
}

func TestDecide_SurfacesNoticeOnSuccess(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{reviewPayload(1)}
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	require.True(t, m.Decide(context.Background(), "gtb_A", model.DecisionApprove, ""))
	assert.Contains(t, m.State().Notice, "gtb_A")
}

func TestApproveFinal_ApproveResumesProcessing(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	require.True(t, m.ApproveFinal(context.Background(), model.DecisionApprove))
	assert.Equal(t, session.ViewProcessing, m.State().View)

	require.Len(t, jobs.Approvals, 1)
	assert.Equal(t, "thread-test:approve", jobs.Approvals[0])
}

func TestApproveFinal_RejectReturnsToMain(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	require.True(t, m.ApproveFinal(context.Background(), model.DecisionReject))
	assert.Equal(t, session.ViewMain, m.State().View)
}

func TestConfirmReport_RefusedWhileExceptionsRemain(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	m.State().Status = reviewPayload(2)

	assert.False(t, m.ConfirmReport(context.Background()))
	assert.Contains(t, m.State().LastError, "2 exceptions")
	assert.Empty(t, jobs.Approvals)
	assert.Equal(t, model.StatusAwaitingReview, m.State().Status.Status)
}

func TestConfirmReport_SubmitsApprovalToService(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	m.State().Status = reviewPayload(0)

	assert.True(t, m.ConfirmReport(context.Background()))
	require.Len(t, jobs.Approvals, 1)
	assert.Equal(t, "thread-test:approved", jobs.Approvals[0])
	assert.Equal(t, model.StatusComplete, m.State().Status.Status)
}

func TestConfirmReport_FailedSubmissionKeepsStatus(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.ApproveFail = true
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	m.State().Status = reviewPayload(0)

	assert.False(t, m.ConfirmReport(context.Background()))
	assert.Equal(t, model.StatusAwaitingReview, m.State().Status.Status)
	assert.NotEmpty(t, m.State().LastError)
}

func TestRejectReport_SubmitsAndSetsLocalMarker(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	m.State().Status = reviewPayload(0)

	assert.True(t, m.RejectReport(context.Background()))
	require.Len(t, jobs.Approvals, 1)
	assert.Equal(t, "thread-test:rejected", jobs.Approvals[0])
	assert.Equal(t, model.StatusRejected, m.State().Status.Status)
	assert.False(t, m.State().Status.Status.Checkpoint())
}

func TestExportReport_UnavailableBeforeApproval(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.Export = &model.ExportResult{Filename: "report.xlsx", Data: []byte("x")}
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	m.State().Status = reviewPayload(0)

	assert.Nil(t, m.ExportReport(context.Background()))
	assert.Contains(t, m.State().LastError, "after approval")
}

func TestExportReport_AvailableOnceApproved(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.Export = &model.ExportResult{Filename: "report.xlsx", Data: []byte("x")}
	m := machineFor(jobs)

	require.True(t, m.StartRun(context.Background()))
	m.State().Status = reviewPayload(0)
	require.True(t, m.ConfirmReport(context.Background()))

	result := m.ExportReport(context.Background())
	require.NotNil(t, result)
	assert.Equal(t, "report.xlsx", result.Filename)
}

func TestOpenView_ResultViewsNeedResults(t *testing.T) {
	m := machineFor(testutil.NewMockJobs())

	assert.False(t, m.OpenView(session.ViewMatched))
	assert.Equal(t, session.ViewMain, m.State().View)

	m.State().Status = reviewPayload(0)
	assert.True(t, m.OpenView(session.ViewMatched))
	assert.Equal(t, session.ViewMatched, m.State().View)
}

func TestBack_HistoryDetailFallsBackToHistory(t *testing.T) {
	m := machineFor(testutil.NewMockJobs())

	m.State().View = session.ViewHistoryDetail
	m.State().HistoryDetail = reviewPayload(0)
	m.Back()
	assert.Equal(t, session.ViewHistory, m.State().View)
	assert.Nil(t, m.State().HistoryDetail)

	m.Back()
	assert.Equal(t, session.ViewMain, m.State().View)
}

func TestSetBankFilter_ResetsMatchedPager(t *testing.T) {
	m := machineFor(testutil.NewMockJobs())
	m.State().MatchedPager.Next(20)

	m.SetBankFilter("gtb")
	first, _ := m.State().MatchedPager.Bounds(20)
	assert.Equal(t, 0, first)
}

func TestHistoryLifecycle(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.HistoryRows = []model.HistoryRecord{
		{RunToken: "thread-a", CreatedAt: "2025-07-02 10:00:00", Status: model.StatusComplete},
		{RunToken: "thread-b", CreatedAt: "2025-07-01 10:00:00", Status: model.StatusFailed},
	}
	m := machineFor(jobs)

	m.OpenHistory(context.Background())
	assert.Equal(t, session.ViewHistory, m.State().View)

	adopted := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.AdoptHistory() {
			adopted = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, adopted)
	require.Len(t, m.State().History, 2)
	assert.Equal(t, "REC-001", m.State().History[0].RecID)

	// A second adoption attempt finds nothing staged.
	assert.False(t, m.AdoptHistory())

	require.True(t, m.SelectHistory(context.Background(), 1))
	assert.Equal(t, session.ViewHistoryDetail, m.State().View)
	assert.Equal(t, "thread-b", m.State().SelectedHistory.RunToken)

	assert.False(t, m.SelectHistory(context.Background(), 5))
}

func TestSelectHistory_PrefersStoredSnapshot(t *testing.T) {
	jobs := testutil.NewMockJobs()
	m := machineFor(jobs)
	m.State().History = []model.HistoryRecord{{
		RunToken: "thread-a",
		Metadata: []byte(`{"status":"complete","bank_matches":{"gtb":{}}}`),
	}}

	require.True(t, m.SelectHistory(context.Background(), 0))
	detail := m.State().HistoryDetail
	require.NotNil(t, detail)
	assert.Equal(t, model.StatusComplete, detail.Status)
	assert.Equal(t, 0, jobs.StatusCalls)
}

func TestSelectHistory_FallsBackToLiveFetch(t *testing.T) {
	jobs := testutil.NewMockJobs()
	jobs.StatusScript = []*model.StatusPayload{reviewPayload(0)}
	m := machineFor(jobs)
	m.State().History = []model.HistoryRecord{{RunToken: "thread-a"}}

	require.True(t, m.SelectHistory(context.Background(), 0))
	require.NotNil(t, m.State().HistoryDetail)
	assert.Equal(t, 1, jobs.StatusCalls)
}
