package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SyncJob asks the worker pool to mirror a committed booking into the
// host's external calendar.
type SyncJob struct {
	BookingID string
	HostID    string
	Attempt   int
	Enqueued  time.Time
}

// SyncHandler performs one sync attempt.
type SyncHandler func(context.Context, SyncJob) error

// SyncQueueConfig configures worker pool behaviour.
type SyncQueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// SyncQueue dispatches calendar sync jobs to background workers. Sync is
// best-effort: a job that exhausts its retries is dropped with a warning,
// never bubbled back to the booking that spawned it.
type SyncQueue struct {
	handler SyncHandler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan SyncJob
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewSyncQueue builds a queue with the provided handler.
func NewSyncQueue(handler SyncHandler, cfg SyncQueueConfig) *SyncQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &SyncQueue{
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan SyncJob, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *SyncQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

// Stop drains in-flight work and shuts the pool down.
func (q *SyncQueue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// Enqueue submits a job without blocking the caller; when the buffer is
// full the job is dropped and logged, matching the best-effort contract.
func (q *SyncQueue) Enqueue(job SyncJob) {
	job.Enqueued = time.Now().UTC()
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn("calendar sync queue full, dropping job",
			zap.String("booking_id", job.BookingID),
			zap.String("host_id", job.HostID))
	}
}

func (q *SyncQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *SyncQueue) process(job SyncJob) {
	job.Attempt++
	err := q.handler(q.ctx, job)
	if err == nil {
		return
	}

	if job.Attempt >= q.maxRetries {
		q.logger.Warn("calendar sync abandoned",
			zap.String("booking_id", job.BookingID),
			zap.String("host_id", job.HostID),
			zap.Int("attempts", job.Attempt),
			zap.Error(err))
		return
	}

	q.logger.Info("calendar sync retry scheduled",
		zap.String("booking_id", job.BookingID),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		select {
		case <-q.ctx.Done():
		case <-time.After(q.retryDelay):
			select {
			case q.jobs <- job:
			default:
			}
		}
	}()
}
