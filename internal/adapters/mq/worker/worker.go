// Package worker evaluates queued events on a pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/miniiso/internal/adapters/mq/queue"
	"github.com/okian/miniiso/internal/adapters/repository"
	"github.com/okian/miniiso/pkg/logger"
	"github.com/okian/miniiso/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor evaluates every candidate of one event. A Processor is owned by
// a single worker, so it may keep per-event state between calls.
type Processor interface {
	Process(ctx context.Context, ev queue.Event) (repository.EventResult, error)
}

// ProcessorFactory builds the Processor of one worker.
type ProcessorFactory func() (Processor, error)

// Sink stores finished results.
type Sink interface {
	Save(ctx context.Context, res repository.EventResult) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker processes events until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the event in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	sink      Sink
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a worker around its own processor.
func NewInMemoryWorker(q Queue, processor Processor, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: processor,
		sink:      sink,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, ev); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for it to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent evaluates one event and stores the outcome. A failed
// evaluation is stored as a failed result so the submitter can see it.
func (w *InMemoryWorker) processEvent(ctx context.Context, ev queue.Event) error {
	start := time.Now()
	res, err := w.processor.Process(ctx, ev)
	metrics.RecordEventLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		metrics.RecordEventError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "evaluation_error")
		w.logger.Error(ctx, "evaluation failed for event",
			logger.String("event_id", ev.ID),
			logger.Error(err),
		)
		res = repository.EventResult{
			EventID:     ev.ID,
			Run:         ev.Run,
			Lumi:        ev.Lumi,
			Number:      ev.Number,
			Status:      repository.StatusFailed,
			Error:       err.Error(),
			ProcessedAt: time.Now().UTC(),
		}
	} else {
		metrics.RecordEventProcessed()
	}

	if err := w.sink.Save(ctx, res); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("failed to store result of event %s: %w", ev.ID, err)
	}
	return nil
}

// Pool manages multiple workers reading one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// PoolOption configures a Pool.
type PoolOption func(*poolOptions)

type poolOptions struct {
	logger logger.Logger
}

// WithPoolLogger sets the logger shared by the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(o *poolOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewPool creates workerCount workers, each with a processor built by
// factory. A non-positive workerCount means one worker per CPU.
func NewPool(workerCount int, q Queue, factory ProcessorFactory, sink Sink, opts ...PoolOption) (*Pool, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	o := poolOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  o.logger.Named("worker-pool"),
	}
	for i := range pool.workers {
		processor, err := factory()
		if err != nil {
			return nil, fmt.Errorf("build processor for worker %d: %w", i, err)
		}
		pool.workers[i] = NewInMemoryWorker(q, processor, sink,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(o.logger),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx (or the pool timeout) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		select {
		case <-w.done:
			continue
		case <-shutdownCtx.Done():
		}
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	metrics.UpdateWorkerCount(0)
	return firstErr
}
