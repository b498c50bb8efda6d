package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledger-recon/internal/jobclient"
	"github.com/Veraticus/ledger-recon/internal/model"
	"github.com/Veraticus/ledger-recon/internal/poll"
	"github.com/Veraticus/ledger-recon/internal/session"
	"github.com/Veraticus/ledger-recon/internal/testutil"
)

// TestFullReviewCycle walks a simulated July 2025 run over HTTP: start,
// poll to the review checkpoint, decide an exception, and observe the
// server-recomputed results after the forced refresh.
func TestFullReviewCycle(t *testing.T) {
	server := testutil.NewJobService(t)

	keep := model.Exception{
		BankAccount:     "gtb",
		BankTransaction: model.BankTxn{TransactionID: "TXN-KEEP", Amount: 1200},
		Confidence:      0.61,
	}
	decide := model.Exception{
		BankAccount:     "gtb",
		BankTransaction: model.BankTxn{TransactionID: "TXN-500", Amount: 500.25},
		GlEntries:       []model.GlTxn{{TransactionID: "GL-500", Amount: 500.25}},
		Confidence:      0.68,
	}
	server.QueueStatuses(model.StatusPayload{Status: model.StatusRunning})
	server.SetStatus(model.StatusPayload{
		Status: model.StatusAwaitingReview,
		BankMatches: map[string]model.BankMatches{
			"gtb": {
				MatchedTransactions: []model.Match{
					{BankTransaction: model.BankTxn{TransactionID: "TXN-M1"}, Confidence: 0.95},
				},
				Exceptions: []model.Exception{keep, decide},
			},
		},
	})

	client := jobclient.New(server.URL())
	m := NewWithPoller(client, nil, poll.NewWithOptions(client, time.Millisecond, 10))
	ctx := context.Background()

	require.True(t, client.Health(ctx))

	m.SetSimulation(true)
	require.True(t, m.StartRun(ctx))
	assert.Equal(t, session.ViewProcessing, m.State().View)
	assert.Equal(t, server.ThreadID(), m.State().Run.RunToken)

	result := m.AwaitCheckpoint(ctx)
	require.NotNil(t, result)
	assert.Equal(t, session.ViewMain, m.State().View)

	before := m.Summary()
	assert.Equal(t, 1, before.MatchedCount)
	assert.Equal(t, 2, before.ExceptionsCount)

	require.True(t, m.Decide(ctx, "gtb_TXN-500", model.DecisionApprove, "amount and date line up"))

	// The decision moved the transaction on the server; the forced refresh
	// already adopted the recomputed payload.
	after := m.Summary()
	assert.Equal(t, 2, after.MatchedCount)
	assert.Equal(t, 1, after.ExceptionsCount)
	require.Len(t, after.Exceptions, 1)
	assert.Equal(t, "gtb_TXN-KEEP", after.Exceptions[0].ID())
}

func TestCancelOverHTTP(t *testing.T) {
	server := testutil.NewJobService(t)
	server.SetStatus(model.StatusPayload{Status: model.StatusRunning})

	client := jobclient.New(server.URL())
	m := NewWithPoller(client, nil, poll.NewWithOptions(client, time.Millisecond, 10))
	ctx := context.Background()

	require.True(t, m.StartRun(ctx))
	require.True(t, m.Cancel(ctx))
	assert.Equal(t, session.ViewMain, m.State().View)

	// The server recorded the cancellation.
	status := client.Status(ctx, server.ThreadID())
	require.NotNil(t, status)
	assert.Equal(t, model.StatusCancelled, status.Status)
}

func TestConfirmReportNotifiesServer(t *testing.T) {
	server := testutil.NewJobService(t)
	server.SetStatus(model.StatusPayload{
		Status: model.StatusAwaitingReview,
		BankMatches: map[string]model.BankMatches{
			"gtb": {MatchedTransactions: []model.Match{
				{BankTransaction: model.BankTxn{TransactionID: "TXN-M1"}, Confidence: 0.95},
			}},
		},
	})

	client := jobclient.New(server.URL())
	m := NewWithPoller(client, nil, poll.NewWithOptions(client, time.Millisecond, 10))
	ctx := context.Background()

	require.True(t, m.StartRun(ctx))
	require.True(t, m.Refresh(ctx))
	require.True(t, m.ConfirmReport(ctx))
	assert.Equal(t, model.StatusComplete, m.State().Status.Status)

	// The approval reached the server, not just the local cache.
	status := client.Status(ctx, server.ThreadID())
	require.NotNil(t, status)
	assert.Equal(t, model.StatusComplete, status.Status)
}

func TestExportOverHTTP(t *testing.T) {
	server := testutil.NewJobService(t)
	server.SetStatus(model.StatusPayload{Status: model.StatusAwaitingReview})
	server.SetExport(&model.ExportResult{
		Filename: "july_2025.xlsx",
		Data:     []byte("spreadsheet-bytes"),
	})

	client := jobclient.New(server.URL())
	m := NewWithPoller(client, nil, poll.New(client))
	ctx := context.Background()

	require.True(t, m.StartRun(ctx))
	require.True(t, m.Refresh(ctx))
	require.True(t, m.ConfirmReport(ctx))

	result := m.ExportReport(ctx)
	require.NotNil(t, result)
	assert.Equal(t, "july_2025.xlsx", result.Filename)
	assert.Equal(t, []byte("spreadsheet-bytes"), result.Data)
}
