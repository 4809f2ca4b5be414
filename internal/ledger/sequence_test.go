package ledger

import (
	"context"
	"sync"
	"testing"
)

func TestNextSequenceID_Monotonic(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var previous int64
	for i := 0; i < 10; i++ {
		id, err := NextSequenceID(ctx, store.DB, "test_sequence")
		if err != nil {
			t.Fatalf("NextSequenceID failed: %v", err)
		}
		if id <= previous {
			t.Fatalf("Sequence must be strictly increasing: got %d after %d", id, previous)
		}
		previous = id
	}
}

func TestNextSequenceID_MissingCounterStartsAtOne(t *testing.T) {
	store := setupTestStore(t)

	id, err := NextSequenceID(context.Background(), store.DB, "fresh_sequence")
	if err != nil {
		t.Fatalf("NextSequenceID failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("A missing counter counts as 0, first value must be 1, got %d", id)
	}
}

func TestNextSequenceID_IndependentSequences(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := NextSequenceID(ctx, store.DB, "seq_a"); err != nil {
		t.Fatalf("NextSequenceID failed: %v", err)
	}
	if _, err := NextSequenceID(ctx, store.DB, "seq_a"); err != nil {
		t.Fatalf("NextSequenceID failed: %v", err)
	}

	id, err := NextSequenceID(ctx, store.DB, "seq_b")
	if err != nil {
		t.Fatalf("NextSequenceID failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("Sequences must not share state, seq_b started at %d", id)
	}
}

func TestNextSequenceID_NoDoubleIssue(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	ids := make([]int64, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ids[n], errs[n] = NextSequenceID(ctx, store.DB, "concurrent_sequence")
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for n := 0; n < workers; n++ {
		if errs[n] != nil {
			t.Fatalf("Worker %d failed: %v", n, errs[n])
		}
		if seen[ids[n]] {
			t.Fatalf("Value %d was issued twice", ids[n])
		}
		seen[ids[n]] = true
	}
}
