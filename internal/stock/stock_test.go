package stock

import (
	"context"
	"testing"

	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"
)

type countingStore struct {
	saves int
	last  map[string]models.StockCounter
}

func (s *countingStore) SaveStock(ctx context.Context, counters map[string]models.StockCounter) error {
	s.saves++
	s.last = counters
	return nil
}

func seededStock(store Store) *Stock {
	st := New(store, logger.NewLogger("test"))
	st.Seed([]models.MenuItem{
		{ID: "crepe1", Quantity: models.Quantity{Amount: 2}},
		{ID: "pad1", Quantity: models.Quantity{Infinite: true}},
	})
	return st
}

func TestDecrementFloorsAtZero(t *testing.T) {
	st := seededStock(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		st.Decrement(ctx, "crepe1")
	}

	counter, ok := st.Counter("crepe1")
	if !ok {
		t.Fatal("counter missing")
	}
	if counter.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", counter.Remaining)
	}
}

func TestIncrementAfterDepletion(t *testing.T) {
	st := seededStock(nil)
	ctx := context.Background()

	st.Decrement(ctx, "crepe1")
	st.Decrement(ctx, "crepe1")
	st.Decrement(ctx, "crepe1") // already at zero, stays there
	st.Increment(ctx, "crepe1")

	counter, _ := st.Counter("crepe1")
	if counter.Remaining != 1 {
		t.Errorf("remaining = %d, want 1", counter.Remaining)
	}
}

func TestInfiniteCounterUntouched(t *testing.T) {
	st := seededStock(nil)
	ctx := context.Background()

	st.Decrement(ctx, "pad1")
	st.Increment(ctx, "pad1")

	counter, _ := st.Counter("pad1")
	if !counter.Infinite || counter.Remaining != 0 {
		t.Errorf("counter = %+v, want untouched infinite", counter)
	}
}

func TestSeedDoesNotOverwriteRestored(t *testing.T) {
	st := New(nil, logger.NewLogger("test"))
	st.Restore(map[string]models.StockCounter{"crepe1": {Remaining: 7}})
	st.Seed([]models.MenuItem{{ID: "crepe1", Quantity: models.Quantity{Amount: 2}}})

	counter, _ := st.Counter("crepe1")
	if counter.Remaining != 7 {
		t.Errorf("remaining = %d, want restored value 7", counter.Remaining)
	}
}

func TestMutationsFlushToStore(t *testing.T) {
	store := &countingStore{}
	st := seededStock(store)
	ctx := context.Background()

	st.Decrement(ctx, "crepe1")
	if store.saves != 1 {
		t.Fatalf("saves = %d after decrement, want 1", store.saves)
	}
	if store.last["crepe1"].Remaining != 1 {
		t.Errorf("persisted remaining = %d, want 1", store.last["crepe1"].Remaining)
	}

	// Infinite and no-op mutations do not rewrite the counters.
	st.Decrement(ctx, "pad1")
	st.Decrement(ctx, "unknown")
	if store.saves != 1 {
		t.Errorf("saves = %d after no-op mutations, want 1", store.saves)
	}
}

func TestCountersReturnsCopy(t *testing.T) {
	st := seededStock(nil)

	counters := st.Counters()
	counters["crepe1"] = models.StockCounter{Remaining: 99}

	counter, _ := st.Counter("crepe1")
	if counter.Remaining != 2 {
		t.Errorf("internal counter mutated through copy: %+v", counter)
	}
}
