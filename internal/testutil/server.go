package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/ledger-recon/internal/model"
)

// JobService is a stateful fake of the reconciliation job service running on
// httptest. Status responses drain StatusSequence first, then settle on the
// current payload; exception decisions actually move transactions between
// lists so forced refreshes observe the server-side truth.
type JobService struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	threadID       string
	current        model.StatusPayload
	statusSequence []model.StatusPayload
	history        []model.HistoryRecord
	export         *model.ExportResult
	healthy        bool

	startCalls  int
	statusCalls int
}

// NewJobService starts a fake job service. It shuts down with the test.
func NewJobService(t *testing.T) *JobService {
	t.Helper()

	js := &JobService{
		t:        t,
		threadID: "thread-e2e",
		healthy:  true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", js.handleHealth)
	mux.HandleFunc("/reconcile/start", js.handleStart)
	mux.HandleFunc("/reconcile/status/", js.handleStatus)
	mux.HandleFunc("/reconcile/exceptions/update", js.handleUpdateException)
	mux.HandleFunc("/reconcile/approve", js.handleApprove)
	mux.HandleFunc("/reconcile/cancel/", js.handleCancel)
	mux.HandleFunc("/reconcile/export/excel", js.handleExport)
	mux.HandleFunc("/reconcile/history", js.handleHistory)

	js.srv = httptest.NewServer(mux)
	t.Cleanup(js.srv.Close)
	return js
}

// URL returns the fake service's base URL.
func (j *JobService) URL() string { return j.srv.URL }

// ThreadID returns the token handed out by /reconcile/start.
func (j *JobService) ThreadID() string { return j.threadID }

// SetHealthy toggles the health endpoint.
func (j *JobService) SetHealthy(healthy bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.healthy = healthy
}

// SetStatus replaces the settled status payload.
func (j *JobService) SetStatus(payload model.StatusPayload) {
	j.mu.Lock()
	defer j.mu.Unlock()
	payload.ThreadID = j.threadID
	j.current = payload
}

// QueueStatuses prepends transient payloads served before the settled one.
func (j *JobService) QueueStatuses(payloads ...model.StatusPayload) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range payloads {
		payloads[i].ThreadID = j.threadID
	}
	j.statusSequence = append(j.statusSequence, payloads...)
}

// SetHistory sets the records served by /reconcile/history.
func (j *JobService) SetHistory(records []model.HistoryRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history = records
}

// SetExport sets the export response. A result with Data serves the binary
// path; one with only Message/ReportPaths serves the JSON fallback.
func (j *JobService) SetExport(result *model.ExportResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.export = result
}

// StatusCalls reports how many status fetches the service has answered.
func (j *JobService) StatusCalls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.statusCalls
}

func (j *JobService) handleHealth(w http.ResponseWriter, _ *http.Request) {
	j.mu.Lock()
	healthy := j.healthy
	j.mu.Unlock()
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (j *JobService) handleStart(w http.ResponseWriter, r *http.Request) {
	var req model.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	j.mu.Lock()
	j.startCalls++
	j.mu.Unlock()
	writeJSON(w, map[string]string{"thread_id": j.threadID})
}

func (j *JobService) handleStatus(w http.ResponseWriter, _ *http.Request) {
	j.mu.Lock()
	j.statusCalls++
	var payload model.StatusPayload
	if len(j.statusSequence) > 0 {
		payload = j.statusSequence[0]
		j.statusSequence = j.statusSequence[1:]
	} else {
		payload = j.current
	}
	j.mu.Unlock()
	writeJSON(w, payload)
}

func (j *JobService) handleUpdateException(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExceptionID string `json:"exception_id"`
		Decision    string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.resolveException(req.ExceptionID, req.Decision) {
		http.Error(w, "unknown exception", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// resolveException moves the named exception out of its bank's exception
// list: into matched on approve, into unmatched on reject.
func (j *JobService) resolveException(exceptionID, decision string) bool {
	for bank, data := range j.current.BankMatches {
		for i, exc := range data.Exceptions {
			if exc.ID() != exceptionID {
				continue
			}
			data.Exceptions = append(data.Exceptions[:i], data.Exceptions[i+1:]...)
			if decision == model.DecisionApprove {
				data.MatchedTransactions = append(data.MatchedTransactions, model.Match{
					BankTransaction: exc.BankTransaction,
					GlEntries:       exc.GlEntries,
					Confidence:      exc.Confidence,
				})
			} else {
				data.UnmatchedBankTransactions = append(data.UnmatchedBankTransactions, exc.BankTransaction)
			}
			j.current.BankMatches[bank] = data
			return true
		}
	}
	return false
}

func (j *JobService) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	j.mu.Lock()
	if strings.HasPrefix(req.Decision, "approve") {
		j.current.Status = model.StatusComplete
	}
	j.mu.Unlock()
	writeJSON(w, model.ApprovalResult{Status: "ok"})
}

func (j *JobService) handleCancel(w http.ResponseWriter, _ *http.Request) {
	j.mu.Lock()
	j.current.Status = model.StatusCancelled
	j.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (j *JobService) handleExport(w http.ResponseWriter, _ *http.Request) {
	j.mu.Lock()
	export := j.export
	j.mu.Unlock()

	if export == nil {
		http.Error(w, "no report", http.StatusConflict)
		return
	}
	if len(export.Data) > 0 {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
		_, _ = w.Write(export.Data)
		return
	}
	writeJSON(w, map[string]any{
		"message":      export.Message,
		"report_paths": export.ReportPaths,
	})
}

func (j *JobService) handleHistory(w http.ResponseWriter, _ *http.Request) {
	j.mu.Lock()
	records := j.history
	j.mu.Unlock()
	writeJSON(w, map[string]any{"history": records})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
