package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/miniiso/internal/domain/model"
	"github.com/okian/miniiso/internal/domain/record"
)

func newTestStore(t *testing.T, opts ...Option) *ShardedStore {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewShardedStore(ctx, opts...)
	t.Cleanup(func() {
		_ = s.Close()
		cancel()
	})
	return s
}

func TestShardedStore_ReserveSaveGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	if err := store.Reserve(ctx, "evt-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := store.Get(ctx, "evt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusPending {
		t.Errorf("expected pending, got %s", res.Status)
	}

	vars := record.New(1)
	vars.Add("miniIso_R", 0.1)
	done := EventResult{
		EventID:   "evt-1",
		Status:    StatusDone,
		Electrons: []CandidateResult{{Kind: model.KindElectron, Index: 0, Vars: vars}},
	}
	if err := store.Save(ctx, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err = store.Get(ctx, "evt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusDone || len(res.Electrons) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if v, _ := res.Electrons[0].Vars.Get("miniIso_R"); v != 0.1 {
		t.Errorf("expected R 0.1, got %v", v)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestShardedStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Reserve(ctx, ""); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}
	if err := store.Save(ctx, EventResult{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}

	if err := store.Reserve(ctx, "dup"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Reserve(ctx, "dup"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := store.Save(ctx, EventResult{EventID: "dup", Status: StatusDone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Reserve(ctx, "dup"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate after completion, got %v", err)
	}
}

func TestShardedStore_Release(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Reserve(ctx, "evt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Release(ctx, "evt")
	if _, err := store.Get(ctx, "evt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected released id to be gone, got %v", err)
	}
	if err := store.Reserve(ctx, "evt"); err != nil {
		t.Errorf("expected released id to be reusable, got %v", err)
	}

	if err := store.Save(ctx, EventResult{EventID: "kept", Status: StatusDone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Release(ctx, "kept")
	if _, err := store.Get(ctx, "kept"); err != nil {
		t.Errorf("finished results must survive Release, got %v", err)
	}
	if count := store.Count(ctx); count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestShardedStore_Retention(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithShardCount(1), WithMaxResults(3))

	for i := 0; i < 5; i++ {
		if err := store.Reserve(ctx, fmt.Sprintf("evt-%d", i)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if count := store.Count(ctx); count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	for _, id := range []string{"evt-0", "evt-1"} {
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected %s to be evicted, got %v", id, err)
		}
	}
	for _, id := range []string{"evt-2", "evt-3", "evt-4"} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Errorf("expected %s to be retained, got %v", id, err)
		}
	}
}

func TestShardedStore_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithShardCount(4))

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if store.Reserve(ctx, fmt.Sprintf("evt-%d", j)) == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if accepted != 100 {
		t.Errorf("expected each id to be accepted once, got %d acceptances", accepted)
	}
	if count := store.Count(ctx); count != 100 {
		t.Errorf("expected count 100, got %d", count)
	}
}
