// Package testutil provides test doubles for the reconciliation console:
// an in-memory Jobs mock and an httptest-backed fake job service.
package testutil

import (
	"context"
	"sync"

	"github.com/Veraticus/ledger-recon/internal/model"
)

// MockJobs is a scriptable in-memory implementation of service.Jobs.
// Status responses pop off StatusScript in order, the last one repeating.
type MockJobs struct {
	mu sync.Mutex

	StatusScript []*model.StatusPayload
	StartToken   string
	StartFail    bool
	UpdateFail   bool
	ApproveFail  bool
	CancelFail   bool
	Healthy      bool
	HistoryRows  []model.HistoryRecord
	HistoryFail  bool
	Export       *model.ExportResult

	StatusCalls  int
	HistoryCalls int
	Decisions    []DecisionCall
	Approvals    []string
	Cancelled    []string
	Started      []model.StartRequest
}

// DecisionCall records one UpdateException invocation.
type DecisionCall struct {
	ThreadID    string
	ExceptionID string
	Decision    string
	Notes       string
}

// NewMockJobs returns a healthy mock with a start token assigned.
func NewMockJobs() *MockJobs {
	return &MockJobs{
		StartToken: "thread-test",
		Healthy:    true,
	}
}

// Health implements service.Jobs.
func (m *MockJobs) Health(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Healthy
}

// Start implements service.Jobs.
func (m *MockJobs) Start(_ context.Context, req model.StartRequest) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = append(m.Started, req)
	if m.StartFail {
		return "", false
	}
	return m.StartToken, true
}

// Status implements service.Jobs.
func (m *MockJobs) Status(context.Context, string) *model.StatusPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.StatusCalls
	m.StatusCalls++
	if len(m.StatusScript) == 0 {
		return nil
	}
	if idx >= len(m.StatusScript) {
		idx = len(m.StatusScript) - 1
	}
	return m.StatusScript[idx]
}

// Resolve implements service.Jobs.
func (m *MockJobs) Resolve(context.Context, string, []model.PendingAction) bool {
	return !m.UpdateFail
}

// UpdateException implements service.Jobs.
func (m *MockJobs) UpdateException(_ context.Context, threadID, exceptionID, decision, notes string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decisions = append(m.Decisions, DecisionCall{
		ThreadID:    threadID,
		ExceptionID: exceptionID,
		Decision:    decision,
		Notes:       notes,
	})
	return !m.UpdateFail
}

// Approve implements service.Jobs.
func (m *MockJobs) Approve(_ context.Context, threadID, decision string) *model.ApprovalResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Approvals = append(m.Approvals, threadID+":"+decision)
	if m.ApproveFail {
		return nil
	}
	return &model.ApprovalResult{Status: "ok"}
}

// Cancel implements service.Jobs.
func (m *MockJobs) Cancel(_ context.Context, threadID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelFail {
		return false
	}
	m.Cancelled = append(m.Cancelled, threadID)
	return true
}

// ExportExcel implements service.Jobs.
func (m *MockJobs) ExportExcel(context.Context, string) *model.ExportResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Export
}

// History implements service.Jobs.
func (m *MockJobs) History(context.Context, int) ([]model.HistoryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryCalls++
	if m.HistoryFail {
		return nil, false
	}
	out := make([]model.HistoryRecord, len(m.HistoryRows))
	copy(out, m.HistoryRows)
	return out, true
}
