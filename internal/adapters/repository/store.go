// Package repository keeps evaluation results in memory, keyed by event ID.
package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/miniiso/pkg/metrics"
)

const (
	defaultShardCount            = 8
	defaultMaxResults            = 100_000
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Store provides read/write access to evaluation results.
type Store interface {
	// Reserve claims id for a new submission. It returns ErrDuplicate if
	// the id is already known.
	Reserve(ctx context.Context, id string) error
	// Release drops a pending reservation, e.g. when enqueueing failed.
	Release(ctx context.Context, id string)
	// Save stores a finished result, replacing its reservation.
	Save(ctx context.Context, res EventResult) error
	// Get returns the result for id, or ErrNotFound.
	Get(ctx context.Context, id string) (EventResult, error)
	// Count returns the number of retained events, pending included.
	Count(ctx context.Context) int
}

type shard struct {
	mu      sync.RWMutex
	results map[string]EventResult
	order   []string // insertion order, oldest first
	limit   int
}

// evictLocked drops the oldest entries until the shard is within limit.
func (sh *shard) evictLocked() int {
	evicted := 0
	for len(sh.results) > sh.limit && len(sh.order) > 0 {
		oldest := sh.order[0]
		sh.order = sh.order[1:]
		if _, ok := sh.results[oldest]; ok {
			delete(sh.results, oldest)
			evicted++
		}
	}
	return evicted
}

// ShardedStore is an in-memory Store spreading events over independently
// locked shards.
type ShardedStore struct {
	shards     []*shard
	shardCount int
	maxResults int
	count      atomic.Int64

	metricsUpdateInterval time.Duration
	stop                  chan struct{}
	stopOnce              sync.Once
}

var _ Store = (*ShardedStore)(nil)

// NewShardedStore creates a store and starts its metrics updater, which
// stops when ctx is done or Close is called.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		maxResults:            defaultMaxResults,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.shardCount > s.maxResults {
		s.shardCount = s.maxResults
	}

	limit := (s.maxResults + s.shardCount - 1) / s.shardCount
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{results: make(map[string]EventResult), limit: limit}
	}

	metrics.UpdateStoredResults(0)
	go s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%uint32(len(s.shards))] //nolint:gosec // len is small and positive
}

// Reserve implements Store.
func (s *ShardedStore) Reserve(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.results[id]; ok {
		metrics.RecordErrorByComponent("repository", "duplicate")
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	sh.results[id] = EventResult{EventID: id, Status: StatusPending}
	sh.order = append(sh.order, id)
	s.count.Add(1 - int64(sh.evictLocked()))
	return nil
}

// Release implements Store. Only pending reservations are dropped.
func (s *ShardedStore) Release(_ context.Context, id string) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if res, ok := sh.results[id]; ok && res.Status == StatusPending {
		delete(sh.results, id)
		s.count.Add(-1)
		for i := len(sh.order) - 1; i >= 0; i-- {
			if sh.order[i] == id {
				sh.order = append(sh.order[:i], sh.order[i+1:]...)
				break
			}
		}
	}
}

// Save implements Store. Results without a prior reservation are accepted.
func (s *ShardedStore) Save(_ context.Context, res EventResult) error {
	if res.EventID == "" {
		return ErrEmptyID
	}
	sh := s.shardFor(res.EventID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.results[res.EventID]; !ok {
		sh.order = append(sh.order, res.EventID)
		s.count.Add(1)
	}
	sh.results[res.EventID] = res
	s.count.Add(-int64(sh.evictLocked()))
	return nil
}

// Get implements Store.
func (s *ShardedStore) Get(_ context.Context, id string) (EventResult, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	res, ok := sh.results[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return EventResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return res, nil
}

// Count implements Store.
func (s *ShardedStore) Count(_ context.Context) int {
	return int(s.count.Load())
}

// Close stops the metrics updater.
func (s *ShardedStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(s.metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			metrics.UpdateStoredResults(s.Count(ctx))
		}
	}
}
