package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/service"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemStore() *memStore { return &memStore{jobs: make(map[string]*Job)} }

func (m *memStore) Create(j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memStore) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) MarkRunning(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = StatusRunning
	return nil
}

func (m *memStore) UpdateProgress(id string, pct int, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Percentage = pct
	m.jobs[id].Message = msg
	return nil
}

func (m *memStore) Complete(id string, reportID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = StatusCompleted
	j.Percentage = 100
	j.Completed = true
	j.ReportID = &reportID
	return nil
}

func (m *memStore) Fail(id string, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	j.Status = StatusFailed
	j.Failed = true
	j.ErrorMessage = errMsg
	return nil
}

type stubMaterializer struct {
	err error
}

func (s stubMaterializer) Materialize(_ context.Context, req service.SubmitRequest, onProgress func(int, string)) (*report.ExpenseReport, error) {
	onProgress(40, "creating expense report")
	if s.err != nil {
		return nil, s.err
	}
	onProgress(100, "expense report created")
	return &report.ExpenseReport{ID: 42, DrafterID: req.DrafterID}, nil
}

func waitForDone(t *testing.T, w *Worker, id string) *Job {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("job did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
		j, err := w.Get(id)
		require.NoError(t, err)
		if j.Done() {
			return j
		}
	}
}

func TestWorker_CompletesJob(t *testing.T) {
	store := newMemStore()
	w := NewWorker(store, stubMaterializer{}, 4, zap.NewNop())
	w.Start()
	defer w.Stop()

	id, err := w.Enqueue(service.SubmitRequest{DrafterID: "u-drafter"})
	require.NoError(t, err)

	j := waitForDone(t, w, id)
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, 100, j.Percentage)
	require.NotNil(t, j.ReportID)
	assert.Equal(t, int64(42), *j.ReportID)
}

func TestWorker_RecordsFailure(t *testing.T) {
	store := newMemStore()
	w := NewWorker(store, stubMaterializer{err: errors.New("no complete line items")}, 4, zap.NewNop())
	w.Start()
	defer w.Stop()

	id, err := w.Enqueue(service.SubmitRequest{DrafterID: "u-drafter"})
	require.NoError(t, err)

	j := waitForDone(t, w, id)
	assert.Equal(t, StatusFailed, j.Status)
	assert.True(t, j.Failed)
	assert.Contains(t, j.ErrorMessage, "no complete line items")
	assert.Nil(t, j.ReportID)
}

func TestWorker_QueueOverflow(t *testing.T) {
	store := newMemStore()
	// Worker not started, so the queue never drains
	w := NewWorker(store, stubMaterializer{}, 1, zap.NewNop())

	_, err := w.Enqueue(service.SubmitRequest{DrafterID: "u-a"})
	require.NoError(t, err)

	id, err := w.Enqueue(service.SubmitRequest{DrafterID: "u-b"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Empty(t, id)
}

func TestWorker_StartStopIdempotent(t *testing.T) {
	w := NewWorker(newMemStore(), stubMaterializer{}, 1, zap.NewNop())
	w.Start()
	w.Start()
	w.Stop()
	w.Stop()
}
