package stock

import (
	"context"
	"fmt"
	"sync"

	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"
)

// Store is the slice of persistence the stock ledger needs.
type Store interface {
	SaveStock(ctx context.Context, counters map[string]models.StockCounter) error
}

// Stock counts remaining quantity per catalog item. Infinite items are left
// untouched by both operations; finite counters floor at zero. Running out
// never rejects an order, it only logs: the kitchen sells through.
type Stock struct {
	mu       sync.Mutex
	counters map[string]models.StockCounter
	store    Store
	logger   *logger.Logger
}

func New(store Store, log *logger.Logger) *Stock {
	return &Stock{
		counters: make(map[string]models.StockCounter),
		store:    store,
		logger:   log,
	}
}

// Seed registers counters for catalog items that do not have one yet.
// Persisted counters loaded through Restore keep their value.
func (s *Stock) Seed(items []models.MenuItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if _, ok := s.counters[item.ID]; ok {
			continue
		}
		s.counters[item.ID] = models.StockCounter{
			Remaining: item.Quantity.Amount,
			Infinite:  item.Quantity.Infinite,
		}
	}
}

// Restore replaces the counters with a previously persisted set.
func (s *Stock) Restore(counters map[string]models.StockCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, counter := range counters {
		s.counters[id] = counter
	}
}

// Decrement consumes one unit of the item. No-op for infinite items; a
// finite counter at zero stays at zero with a logged warning.
func (s *Stock) Decrement(ctx context.Context, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[itemID]
	if !ok {
		s.logger.Warn("", "stock_unknown_item", fmt.Sprintf("No stock counter for item %s", itemID))
		return
	}
	if counter.Infinite {
		return
	}
	if counter.Remaining <= 0 {
		s.logger.Warn("", "stock_depleted", fmt.Sprintf("Item %s is out of stock, order accepted anyway", itemID))
		return
	}

	counter.Remaining--
	s.counters[itemID] = counter
	s.flush(ctx)
}

// Increment returns one unit of the item, after a cancellation or a
// close-out of a pending line. No-op for infinite items.
func (s *Stock) Increment(ctx context.Context, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[itemID]
	if !ok {
		s.logger.Warn("", "stock_unknown_item", fmt.Sprintf("No stock counter for item %s", itemID))
		return
	}
	if counter.Infinite {
		return
	}

	counter.Remaining++
	s.counters[itemID] = counter
	s.flush(ctx)
}

// Counter returns the current counter for an item.
func (s *Stock) Counter(itemID string) (models.StockCounter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[itemID]
	return counter, ok
}

// Counters returns a copy of every counter.
func (s *Stock) Counters() map[string]models.StockCounter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.StockCounter, len(s.counters))
	for id, counter := range s.counters {
		out[id] = counter
	}
	return out
}

// flush persists the counters immediately so a reload cannot lose stock
// counts. Failure is logged; the in-memory counters stay authoritative.
func (s *Stock) flush(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveStock(ctx, s.counters); err != nil {
		s.logger.Error("", "stock_persist_failed", "Failed to persist stock counters", err)
	}
}
