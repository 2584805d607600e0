package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/solhart/mediakit-api/internal/platform/metrics"
)

// Common errors returned by the Queue.
var (
	// ErrQueueFull signals backpressure: the bounded queue is at capacity
	// and the caller must surface the rejection rather than block.
	ErrQueueFull = errors.New("task queue is full")

	// ErrQueueClosed is returned by Enqueue once shutdown has started.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrJobNotFound is returned by Status for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotRetryable is returned by Retry for jobs not in the failed state.
	ErrJobNotRetryable = errors.New("only failed jobs can be retried")

	// ErrUnknownJobType is returned by Enqueue for a type with no handler.
	ErrUnknownJobType = errors.New("no handler registered for job type")
)

// Handler executes one job. Handlers compose the retry executor and circuit
// breakers for their own I/O; the queue itself never retries a job.
type Handler func(ctx context.Context, job Job) error

// Config holds queue sizing options.
type Config struct {
	// Workers is the number of concurrent worker goroutines.
	Workers int

	// Capacity is the bound on queued (not yet running) jobs.
	Capacity int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Workers:  4,
		Capacity: 100,
	}
}

// Metrics is a point-in-time snapshot of the queue's counters.
type Metrics struct {
	Name           string `json:"name"`
	EnqueuedTotal  uint64 `json:"enqueued_total"`
	SucceededTotal uint64 `json:"succeeded_total"`
	FailedTotal    uint64 `json:"failed_total"`
	CurrentDepth   int64  `json:"current_depth"`
}

// Queue is an in-process producer/consumer queue with a fixed worker pool.
// Handlers are registered by job type at construction; enqueueing a type
// without a handler is rejected, so a miswired producer fails at the first
// enqueue instead of poisoning a worker.
type Queue struct {
	name     string
	cfg      Config
	handlers map[string]Handler
	logger   *slog.Logger

	jobs chan *Job

	mu      sync.RWMutex
	records map[uuid.UUID]*Job
	closed  bool

	enqueuedTotal  atomic.Uint64
	succeededTotal atomic.Uint64
	failedTotal    atomic.Uint64
	depth          atomic.Int64
	running        atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue with the given handler registry. At least one handler
// is required: a queue nothing can run is a configuration error.
func New(name string, cfg Config, handlers map[string]Handler, logger *slog.Logger) (*Queue, error) {
	if len(handlers) == 0 {
		return nil, fmt.Errorf("queue %q: no job handlers registered", name)
	}
	for jobType, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("queue %q: nil handler for job type %q", name, jobType)
		}
	}
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		name:     name,
		cfg:      cfg,
		handlers: handlers,
		logger:   logger.With("queue", name),
		jobs:     make(chan *Job, cfg.Capacity),
		records:  make(map[uuid.UUID]*Job),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Name returns the queue's registry name.
func (q *Queue) Name() string {
	return q.name
}

// Start launches the worker pool.
func (q *Queue) Start() {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("task queue started",
		"workers", q.cfg.Workers,
		"capacity", q.cfg.Capacity)
}

// Enqueue appends a pending job and returns its ID. It never blocks: a full
// queue returns ErrQueueFull immediately so callers can surface backpressure
// instead of growing memory unboundedly.
func (q *Queue) Enqueue(jobType string, payload []byte) (uuid.UUID, error) {
	return q.enqueue(jobType, payload, 1, uuid.Nil)
}

// Retry enqueues a fresh job with the same type and payload as a failed one.
// The new job gets its own ID and a back-reference to the original.
func (q *Queue) Retry(id uuid.UUID) (uuid.UUID, error) {
	q.mu.RLock()
	orig, ok := q.records[id]
	if !ok {
		q.mu.RUnlock()
		return uuid.Nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if orig.State != JobStateFailed {
		state := orig.State
		q.mu.RUnlock()
		return uuid.Nil, fmt.Errorf("%w: job %s is %s", ErrJobNotRetryable, id, state)
	}
	jobType := orig.Type
	payload := orig.Payload
	attempt := orig.Attempt + 1
	q.mu.RUnlock()

	return q.enqueue(jobType, payload, attempt, id)
}

func (q *Queue) enqueue(jobType string, payload []byte, attempt int, retryOf uuid.UUID) (uuid.UUID, error) {
	if _, ok := q.handlers[jobType]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: %q", ErrQueueClosed, q.name)
	}

	job := &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Payload:    payload,
		State:      JobStatePending,
		EnqueuedAt: time.Now().UTC(),
		Attempt:    attempt,
		RetryOf:    retryOf,
	}

	select {
	case q.jobs <- job:
		q.records[job.ID] = job
		q.mu.Unlock()
	default:
		q.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%w: capacity %d reached", ErrQueueFull, q.cfg.Capacity)
	}

	q.enqueuedTotal.Add(1)
	depth := q.depth.Add(1)
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(depth))

	q.logger.Debug("job enqueued",
		"job_id", job.ID,
		"job_type", jobType,
		"queue_depth", depth)
	return job.ID, nil
}

// Status returns a copy of the job record.
func (q *Queue) Status(id uuid.UUID) (Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.records[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return *job, nil
}

// Metrics returns the queue's aggregate counters.
func (q *Queue) Metrics() Metrics {
	return Metrics{
		Name:           q.name,
		EnqueuedTotal:  q.enqueuedTotal.Load(),
		SucceededTotal: q.succeededTotal.Load(),
		FailedTotal:    q.failedTotal.Load(),
		CurrentDepth:   q.depth.Load(),
	}
}

// Shutdown stops accepting new jobs, waits up to grace for in-flight and
// queued jobs to finish, then cancels the remainder. It returns the number
// of jobs abandoned: still pending plus force-cancelled.
func (q *Queue) Shutdown(grace time.Duration) int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.closed = true
	q.mu.Unlock()

	close(q.jobs)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("task queue drained cleanly")
		return 0
	case <-time.After(grace):
	}

	// Grace elapsed: cancel in-flight handlers and count what never ran.
	q.cancel()

	abandoned := int(q.running.Load())
	for job := range q.jobs {
		q.markFinished(job, errors.New("abandoned at shutdown"))
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(q.depth.Add(-1)))
		abandoned++
	}

	q.wg.Wait()

	q.logger.Warn("task queue shut down with abandoned jobs",
		"abandoned", abandoned,
		"grace", grace)
	return abandoned
}

// worker consumes jobs until the queue is drained or shutdown cancels it.
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	q.logger.Debug("starting worker", "worker_id", id)

	for {
		// Once shutdown force-cancels, stop taking queued jobs so the
		// drain loop can count them as abandoned.
		select {
		case <-q.ctx.Done():
			q.logger.Debug("stopping worker", "worker_id", id)
			return
		default:
		}

		select {
		case <-q.ctx.Done():
			q.logger.Debug("stopping worker", "worker_id", id)
			return
		case job, ok := <-q.jobs:
			if !ok {
				q.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			q.process(job, id)
		}
	}
}

// process executes a single job and records its terminal state.
func (q *Queue) process(job *Job, workerID int) {
	depth := q.depth.Add(-1)
	metrics.QueueDepth.WithLabelValues(q.name).Set(float64(depth))
	q.running.Add(1)
	defer q.running.Add(-1)

	logger := q.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"worker_id", workerID)

	now := time.Now().UTC()
	q.mu.Lock()
	job.State = JobStateRunning
	job.StartedAt = &now
	q.mu.Unlock()

	logger.Info("processing job")

	handler := q.handlers[job.Type]
	err := handler(q.ctx, *job)

	q.markFinished(job, err)
	if err != nil {
		logger.Error("job failed", "error", err)
	} else {
		logger.Info("job succeeded")
	}
}

func (q *Queue) markFinished(job *Job, err error) {
	now := time.Now().UTC()
	q.mu.Lock()
	job.FinishedAt = &now
	if err != nil {
		job.State = JobStateFailed
		job.LastError = err.Error()
	} else {
		job.State = JobStateSucceeded
	}
	q.mu.Unlock()

	if err != nil {
		q.failedTotal.Add(1)
		metrics.JobsProcessedTotal.WithLabelValues(q.name, "failed").Inc()
	} else {
		q.succeededTotal.Add(1)
		metrics.JobsProcessedTotal.WithLabelValues(q.name, "succeeded").Inc()
	}
}
