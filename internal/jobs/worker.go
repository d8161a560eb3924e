package jobs

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jwkim/expenseflow/internal/domain/report"
	"github.com/jwkim/expenseflow/internal/service"
)

// ErrQueueFull is returned when a submission arrives while the job queue is
// at capacity
var ErrQueueFull = errors.New("creation queue is full, try again later")

// Store is the job persistence port the worker drives
type Store interface {
	Create(j *Job) error
	Get(id string) (*Job, error)
	MarkRunning(id string) error
	UpdateProgress(id string, pct int, msg string) error
	Complete(id string, reportID int64) error
	Fail(id string, errMsg string) error
}

// Materializer turns a submission payload into a persisted report
type Materializer interface {
	Materialize(ctx context.Context, req service.SubmitRequest, onProgress func(pct int, msg string)) (*report.ExpenseReport, error)
}

// Worker consumes queued creation jobs one at a time
type Worker struct {
	store        Store
	materializer Materializer
	queue        chan string
	logger       *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker creates a new creation-job worker
func NewWorker(store Store, materializer Materializer, queueSize int, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		store:        store,
		materializer: materializer,
		queue:        make(chan string, queueSize),
		logger:       logger,
	}
}

// Enqueue records a new job and hands it to the worker. It returns the job ID
// the client polls.
func (w *Worker) Enqueue(req service.SubmitRequest) (string, error) {
	j := NewJob(req)
	if err := w.store.Create(j); err != nil {
		return "", err
	}

	select {
	case w.queue <- j.ID:
	default:
		if err := w.store.Fail(j.ID, ErrQueueFull.Error()); err != nil {
			w.logger.Error("Failed to mark overflowed job", zap.String("job_id", j.ID), zap.Error(err))
		}
		return "", ErrQueueFull
	}

	w.logger.Info("Creation job queued",
		zap.String("job_id", j.ID),
		zap.String("drafter_id", req.DrafterID))
	return j.ID, nil
}

// Get returns the current state of a job
func (w *Worker) Get(id string) (*Job, error) {
	return w.store.Get(id)
}

// Start launches the consumer goroutine
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("Creation-job worker started")
}

// Stop drains the in-flight job and stops the consumer
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("Creation-job worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			w.process(ctx, id)
		}
	}
}

func (w *Worker) process(ctx context.Context, id string) {
	j, err := w.store.Get(id)
	if err != nil {
		w.logger.Error("Failed to load queued job", zap.String("job_id", id), zap.Error(err))
		return
	}
	if err := w.store.MarkRunning(id); err != nil {
		w.logger.Error("Failed to mark job running", zap.String("job_id", id), zap.Error(err))
	}

	rep, err := w.materializer.Materialize(ctx, j.Payload, func(pct int, msg string) {
		if err := w.store.UpdateProgress(id, pct, msg); err != nil {
			w.logger.Warn("Failed to record job progress", zap.String("job_id", id), zap.Error(err))
		}
	})
	if err != nil {
		w.logger.Error("Creation job failed", zap.String("job_id", id), zap.Error(err))
		if err := w.store.Fail(id, err.Error()); err != nil {
			w.logger.Error("Failed to mark job failed", zap.String("job_id", id), zap.Error(err))
		}
		return
	}

	if err := w.store.Complete(id, rep.ID); err != nil {
		w.logger.Error("Failed to mark job completed", zap.String("job_id", id), zap.Error(err))
		return
	}
	w.logger.Info("Creation job completed",
		zap.String("job_id", id),
		zap.Int64("report_id", rep.ID))
}
