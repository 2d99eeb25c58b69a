// Package service wires the queue, the worker pool and the result store
// behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	eventqueue "github.com/okian/miniiso/internal/adapters/mq/queue"
	workerpool "github.com/okian/miniiso/internal/adapters/mq/worker"
	"github.com/okian/miniiso/internal/adapters/repository"
	"github.com/okian/miniiso/internal/domain/isolation"
	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/pkg/logger"
	"github.com/okian/miniiso/pkg/metrics"
)

// Service implements the API dependencies of the evaluation service.
type Service struct {
	mu sync.RWMutex

	results    *repository.ShardedStore
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool
	cancel     context.CancelFunc

	electronAreas isolation.AreaTable
	muonAreas     isolation.AreaTable

	workerCount int
	queueSize   int
	shardCount  int
	maxResults  int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithShardCount sets the number of result store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithMaxResults bounds the number of retained event results.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithAreaTables sets the electron and muon effective-area tables.
func WithAreaTables(electrons, muons isolation.AreaTable) Option {
	return func(s *Service) {
		s.electronAreas = electrons
		s.muonAreas = muons
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		shardCount:  8,
		maxResults:  100_000,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) newProcessor() (workerpool.Processor, error) {
	return NewReplayProcessor(s.electronAreas, s.muonAreas, s.logger)
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.electronAreas == nil || s.muonAreas == nil {
		return ErrMissingTables
	}

	s.logger.Info(ctx, "starting mini-isolation service")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	results := repository.NewShardedStore(runCtx,
		repository.WithShardCount(s.shardCount),
		repository.WithMaxResults(s.maxResults),
	)
	q := eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	pool, err := workerpool.NewPool(s.workerCount, q, s.newProcessor, results,
		workerpool.WithPoolLogger(s.logger))
	if err != nil {
		cancel()
		_ = results.Close()
		_ = q.Close()
		return fmt.Errorf("create worker pool: %w", err)
	}
	pool.Start(runCtx)

	s.results, s.eventQueue, s.workerPool, s.cancel = results, q, pool, cancel
	s.started = true
	s.logger.Info(ctx, "mini-isolation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("shards", s.shardCount),
		logger.Int("max_results", s.maxResults),
	)
	return nil
}

// Stop drains the queue and shuts the workers down.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping mini-isolation service")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	_ = s.results.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "mini-isolation service stopped")
}

// Submit reserves the event ID and queues the event for asynchronous
// evaluation. Events without an ID get a random one. It returns the ID
// the result can be fetched under.
func (s *Service) Submit(ctx context.Context, ev *model.Event) (string, error) {
	if ev == nil {
		return "", ErrInvalidEvent
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if err := s.results.Reserve(ctx, ev.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordEventDuplicate()
			return ev.ID, fmt.Errorf("%w: %w", ErrDuplicate, err)
		}
		return ev.ID, err
	}

	if err := s.eventQueue.Enqueue(ctx, ev); err != nil {
		s.results.Release(ctx, ev.ID)
		if errors.Is(err, eventqueue.ErrFull) || errors.Is(err, eventqueue.ErrClosed) {
			return ev.ID, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return ev.ID, err
	}

	s.logger.Debug(ctx, "event queued",
		logger.String("event_id", ev.ID),
		logger.Int("electrons", len(ev.Electrons)),
		logger.Int("muons", len(ev.Muons)),
	)
	return ev.ID, nil
}

// Evaluate evaluates ev synchronously without storing the result. Each
// call uses its own processor, so calls may run concurrently.
func (s *Service) Evaluate(ctx context.Context, ev *model.Event) (repository.EventResult, error) {
	if ev == nil {
		return repository.EventResult{}, ErrInvalidEvent
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	p, err := NewReplayProcessor(s.electronAreas, s.muonAreas, s.logger)
	if err != nil {
		return repository.EventResult{}, fmt.Errorf("%w: %w", ErrMissingTables, err)
	}
	res, err := p.Process(ctx, ev)
	if err != nil {
		metrics.RecordEventError()
		return repository.EventResult{}, fmt.Errorf("%w: %w", ErrEvaluateFailed, err)
	}
	metrics.RecordEventProcessed()
	return res, nil
}

// Result returns the stored result of a submitted event.
func (s *Service) Result(ctx context.Context, id string) (repository.EventResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.EventResult{}, ErrNotStarted
	}

	res, err := s.results.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.EventResult{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return res, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"shardCount":  s.shardCount,
		"maxResults":  s.maxResults,
	}
	if src, ok := s.electronAreas.(interface{ Source() string }); ok {
		stats["electronAreas"] = src.Source()
	}
	if src, ok := s.muonAreas.(interface{ Source() string }); ok {
		stats["muonAreas"] = src.Source()
	}

	if s.started {
		ctx := context.Background()
		queueLen := s.eventQueue.Len()
		stored := s.results.Count(ctx)
		stats["queueLength"] = queueLen
		stats["storedResults"] = stored

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredResults(stored)
	}
	return stats
}
