// Package backfill runs full chart history fetches off the request path.
package backfill

import (
	"context"
	"errors"
	"sync"
	"time"

	"dexcollector/internal/analytics"

	"go.uber.org/zap"
)

// ErrWorkerUnavailable is returned by Submit when the job cannot be handed to
// a background worker (not started, closed, or queue full).
var ErrWorkerUnavailable = errors.New("backfill: worker unavailable")

// FetchFunc produces the complete, gap-filled chart of a token.
type FetchFunc func(ctx context.Context, address string) ([]analytics.DayPoint, error)

// ResultFunc receives a successful fetch.
type ResultFunc func(ctx context.Context, address string, chart []analytics.DayPoint)

// ErrorFunc receives a failed background fetch.
type ErrorFunc func(address string, err error)

type Worker struct {
	fetch    FetchFunc
	onResult ResultFunc
	onError  ErrorFunc
	logger   *zap.Logger
	workers  int

	mu       sync.Mutex
	jobs     chan string
	pending  map[string]struct{} // queued or running
	started  bool
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	jobLimit time.Duration
}

// NewWorker creates a worker pool of the given size; queue bounds how many
// addresses may wait for a free worker.
func NewWorker(fetch FetchFunc, onResult ResultFunc, logger *zap.Logger, workers, queue int) *Worker {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = 1
	}
	return &Worker{
		fetch:    fetch,
		onResult: onResult,
		logger:   logger,
		workers:  workers,
		jobs:     make(chan string, queue),
		pending:  make(map[string]struct{}),
		jobLimit: 5 * time.Minute,
	}
}

// SetErrorHandler installs fn to be told about failed background fetches.
// Fallback failures are returned by Run instead.
func (w *Worker) SetErrorHandler(fn ErrorFunc) {
	w.mu.Lock()
	w.onError = fn
	w.mu.Unlock()
}

// Start launches the worker goroutines. They stop when ctx is done or Close is called.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	w.ctx, w.cancel = context.WithCancel(ctx)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.loop()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case address, ok := <-w.jobs:
			if !ok {
				return
			}
			err := w.execute(w.ctx, address, "worker")
			w.mu.Lock()
			delete(w.pending, address)
			onError := w.onError
			w.mu.Unlock()
			if err != nil && onError != nil {
				onError(address, err)
			}
		}
	}
}

// Submit queues a backfill for address. A backfill already queued or
// running for the same address absorbs the request.
func (w *Worker) Submit(address string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// loops exit once the Start context is done
	if !w.started || w.closed || w.ctx.Err() != nil {
		return ErrWorkerUnavailable
	}
	if _, ok := w.pending[address]; ok {
		return nil
	}

	select {
	case w.jobs <- address:
		w.pending[address] = struct{}{}
		return nil
	default:
		return ErrWorkerUnavailable
	}
}

// Run hands address to a background worker, or fetches synchronously on the
// caller's goroutine when no worker can take it. Only a failed synchronous
// fetch returns an error.
func (w *Worker) Run(ctx context.Context, address string) error {
	err := w.Submit(address)
	if err == nil {
		return nil
	}
	w.logger.Warn("Worker unavailable, falling back to synchronous fetch",
		zap.String("address", address), zap.Error(err))
	return w.execute(ctx, address, "fallback")
}

func (w *Worker) execute(ctx context.Context, address, mode string) error {
	ctx, cancel := context.WithTimeout(ctx, w.jobLimit)
	defer cancel()

	start := time.Now()
	chart, err := w.fetch(ctx, address)
	backfillDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		backfillRuns.WithLabelValues(mode, "error").Inc()
		w.logger.Warn("Token chart backfill failed",
			zap.String("address", address), zap.String("mode", mode), zap.Error(err))
		return err
	}
	backfillRuns.WithLabelValues(mode, "ok").Inc()

	if w.onResult != nil {
		w.onResult(ctx, address, chart)
	}
	w.logger.Debug("Token chart backfill completed",
		zap.String("address", address), zap.String("mode", mode), zap.Int("days", len(chart)))
	return nil
}

// Close stops accepting jobs, cancels in-flight work and waits for the workers.
func (w *Worker) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	started := w.started
	w.mu.Unlock()

	if started {
		w.cancel()
		w.wg.Wait()
	}
}
