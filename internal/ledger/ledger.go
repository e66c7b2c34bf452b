package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kitchen-ledger/internal/archive"
	"kitchen-ledger/internal/stock"
	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"
)

// Store is the slice of persistence the ledger needs: the whole live state
// is rewritten on every mutation.
type Store interface {
	SaveLedger(ctx context.Context, rec models.LedgerRecord) error
}

// ChangeType classifies a ledger mutation for observers.
type ChangeType string

const (
	LineAdded     ChangeType = "line_added"
	LineCancelled ChangeType = "line_cancelled"
	LineModified  ChangeType = "line_modified"
	StatusChanged ChangeType = "status_changed"
	TableClosed   ChangeType = "table_closed"
	PeopleChanged ChangeType = "people_changed"
)

// Change is delivered to observers after each successful mutation.
// Closeout is set for TableClosed only.
type Change struct {
	Type     ChangeType
	Table    int
	Closeout *models.CloseoutEvent
}

// Observer receives ledger changes. Observers decide themselves whether to
// push snapshots or poll; the ledger assumes no refresh cadence.
type Observer func(Change)

// Matcher identifies one line inside a table. Timestamp is the stable
// identity; Name is a deprecated shim kept for old order-entry clients that
// still cancel by localized dish name.
type Matcher struct {
	Timestamp int64
	Name      string
}

// Patch carries the fields ModifyLine may replace. Nil fields are left
// untouched; timestamp and status never change through a patch.
type Patch struct {
	IngredientsRemoved *[]string
	IngredientsAdded   *[]string
	Supplements        *[]string
	Price              *float64
	SupplementPrice    *float64
}

// CloseResult summarizes a table close-out.
type CloseResult struct {
	ArchivedCount int
	Revenue       float64
	PeopleCount   int
}

// Ledger is the authoritative list of live order lines. One instance per
// kitchen location; mutations arrive serialized through the sync server's
// message loop, the lock only guards the concurrent read views.
type Ledger struct {
	mu        sync.RWMutex
	lines     []models.OrderLine
	people    map[int]int
	stock     *stock.Stock
	archive   *archive.Archive
	store     Store
	logger    *logger.Logger
	observers []Observer

	now func() int64
}

func New(store Store, st *stock.Stock, arch *archive.Archive, log *logger.Logger) *Ledger {
	return &Ledger{
		people:  make(map[int]int),
		stock:   st,
		archive: arch,
		store:   store,
		logger:  log,
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Subscribe registers an observer. Not safe to call once mutations are
// flowing; wire observers during startup.
func (l *Ledger) Subscribe(fn Observer) {
	l.observers = append(l.observers, fn)
}

// Restore loads a persisted record into an empty ledger.
func (l *Ledger) Restore(rec models.LedgerRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = append(l.lines[:0], rec.Orders...)
	l.people = make(map[int]int, len(rec.TablePeople))
	for table, count := range rec.TablePeople {
		l.people[table] = count
	}
}

// AddLine creates a pending line and decrements the item's stock. A zero
// timestamp gets the current instant; an existing (table, timestamp) pair
// is rejected with ErrDuplicateTimestamp.
func (l *Ledger) AddLine(ctx context.Context, table int, item models.ItemSnapshot, removed, added, supplements []string, timestamp int64) (models.OrderLine, error) {
	l.mu.Lock()

	if timestamp == 0 {
		timestamp = l.now()
	}
	if l.findIndex(table, timestamp) >= 0 {
		l.mu.Unlock()
		return models.OrderLine{}, fmt.Errorf("table %d, timestamp %d: %w", table, timestamp, ErrDuplicateTimestamp)
	}

	line := models.OrderLine{
		Table:              table,
		Timestamp:          timestamp,
		Item:               item,
		Status:             models.StatusPending,
		IngredientsRemoved: removed,
		IngredientsAdded:   added,
		Supplements:        supplements,
	}
	l.lines = append(l.lines, line)

	l.stock.Decrement(ctx, item.ID)
	l.persist(ctx)
	l.mu.Unlock()

	l.logger.Debug("", "line_added", fmt.Sprintf("Line added: table %d, timestamp %d, item %s", table, timestamp, item.ID))
	l.notify(Change{Type: LineAdded, Table: table})
	return line, nil
}

// CancelLine removes a pending line and returns the item to stock.
// Cancelling a fulfilled line is ErrInvalidStateTransition; a line that
// does not exist is ErrLineNotFound.
func (l *Ledger) CancelLine(ctx context.Context, table int, m Matcher) (models.OrderLine, error) {
	l.mu.Lock()

	idx := l.match(table, m)
	if idx < 0 {
		l.mu.Unlock()
		l.logger.Warn("", "cancel_not_found", fmt.Sprintf("No line to cancel: table %d, timestamp %d, name %q", table, m.Timestamp, m.Name))
		return models.OrderLine{}, ErrLineNotFound
	}

	line := l.lines[idx]
	if line.Status == models.StatusFulfilled {
		l.mu.Unlock()
		l.logger.Warn("", "cancel_rejected", fmt.Sprintf("Cannot cancel fulfilled line: table %d, timestamp %d", table, line.Timestamp))
		return models.OrderLine{}, ErrInvalidStateTransition
	}

	l.lines = append(l.lines[:idx], l.lines[idx+1:]...)
	l.stock.Increment(ctx, line.Item.ID)
	l.persist(ctx)
	l.mu.Unlock()

	l.logger.Debug("", "line_cancelled", fmt.Sprintf("Line cancelled: table %d, timestamp %d", table, line.Timestamp))
	l.notify(Change{Type: LineCancelled, Table: table})
	return line, nil
}

// SetStatus toggles a line between pending and fulfilled. Fulfilling stamps
// ValidatedAt, reverting clears it. Stock is untouched: it reflects
// committed intent, not kitchen completion. Idempotent when the line
// already has the requested status.
func (l *Ledger) SetStatus(ctx context.Context, table int, m Matcher, status string) bool {
	if status != models.StatusPending && status != models.StatusFulfilled {
		l.logger.Warn("", "status_rejected", fmt.Sprintf("Unknown status %q", status))
		return false
	}

	l.mu.Lock()

	idx := l.match(table, m)
	if idx < 0 {
		l.mu.Unlock()
		l.logger.Warn("", "status_not_found", fmt.Sprintf("No line for status change: table %d, timestamp %d", table, m.Timestamp))
		return false
	}

	if l.lines[idx].Status == status {
		l.mu.Unlock()
		return true
	}

	l.lines[idx].Status = status
	if status == models.StatusFulfilled {
		l.lines[idx].ValidatedAt = l.now()
	} else {
		l.lines[idx].ValidatedAt = 0
	}
	l.persist(ctx)
	l.mu.Unlock()

	l.logger.Debug("", "status_changed", fmt.Sprintf("Status changed: table %d, timestamp %d -> %s", table, m.Timestamp, status))
	l.notify(Change{Type: StatusChanged, Table: table})
	return true
}

// ModifyLine replaces ingredient and price fields on the line created at
// originalTimestamp. A zero table matches any table (the modify wire format
// carries no table number). Returns false with a log when nothing matches.
func (l *Ledger) ModifyLine(ctx context.Context, table int, originalTimestamp int64, patch Patch) bool {
	l.mu.Lock()

	idx := -1
	for i, line := range l.lines {
		if line.Timestamp == originalTimestamp && (table == 0 || line.Table == table) {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		l.logger.Warn("", "modify_not_found", fmt.Sprintf("No line to modify: timestamp %d", originalTimestamp))
		return false
	}

	line := &l.lines[idx]
	if patch.IngredientsRemoved != nil {
		line.IngredientsRemoved = *patch.IngredientsRemoved
	}
	if patch.IngredientsAdded != nil {
		line.IngredientsAdded = *patch.IngredientsAdded
	}
	if patch.Supplements != nil {
		line.Supplements = *patch.Supplements
	}
	if patch.Price != nil {
		line.Item.Price = *patch.Price
	}
	if patch.SupplementPrice != nil {
		line.Item.SupplementPrice = *patch.SupplementPrice
	}
	modifiedTable := line.Table
	l.persist(ctx)
	l.mu.Unlock()

	l.logger.Debug("", "line_modified", fmt.Sprintf("Line modified: timestamp %d", originalTimestamp))
	l.notify(Change{Type: LineModified, Table: modifiedTable})
	return true
}

// CloseTable archives every line of the table (any status), returns stock
// for lines still pending, deletes the lines and resets the people count.
// All archived lines share one ValidatedAt and the table's people count.
func (l *Ledger) CloseTable(ctx context.Context, table int) CloseResult {
	l.mu.Lock()

	validatedAt := l.now()
	people := l.people[table]
	result := CloseResult{PeopleCount: people}

	kept := l.lines[:0]
	for _, line := range l.lines {
		if line.Table != table {
			kept = append(kept, line)
			continue
		}

		if line.Status == models.StatusPending {
			// Unfulfilled at close-out: the dish never went out.
			l.stock.Increment(ctx, line.Item.ID)
		}

		line.ValidatedAt = validatedAt
		archived := models.ArchivedLine{OrderLine: line, PeopleCount: people}
		l.archive.Record(ctx, archived)
		result.ArchivedCount++
		result.Revenue += line.EffectivePrice()
	}
	l.lines = kept
	delete(l.people, table)
	l.persist(ctx)
	l.mu.Unlock()

	l.logger.Info("", "table_closed", fmt.Sprintf("Table %d closed, %d lines archived", table, result.ArchivedCount))
	l.notify(Change{
		Type:  TableClosed,
		Table: table,
		Closeout: &models.CloseoutEvent{
			Table:         table,
			Date:          time.UnixMilli(validatedAt).Format("2006-01-02"),
			ArchivedCount: result.ArchivedCount,
			Revenue:       result.Revenue,
			PeopleCount:   people,
			ClosedAt:      validatedAt,
		},
	})
	return result
}

// SetPeopleCount records how many people sit at the table. The count
// outlives individual lines and resets when the table closes.
func (l *Ledger) SetPeopleCount(ctx context.Context, table, count int) {
	if count < 0 {
		l.logger.Warn("", "people_rejected", fmt.Sprintf("Negative people count for table %d ignored", table))
		return
	}

	l.mu.Lock()
	l.people[table] = count
	l.persist(ctx)
	l.mu.Unlock()

	l.notify(Change{Type: PeopleChanged, Table: table})
}

func (l *Ledger) PeopleCount(table int) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.people[table]
}

// TableLines returns the table's lines ordered by creation instant.
func (l *Ledger) TableLines(table int) []models.OrderLine {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []models.OrderLine
	for _, line := range l.lines {
		if line.Table == table {
			out = append(out, line)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// TableTotal recomputes the table's running total from its lines.
func (l *Ledger) TableTotal(table int) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := 0.0
	for _, line := range l.lines {
		if line.Table == table {
			total += line.EffectivePrice()
		}
	}
	return total
}

// ActiveTables lists tables with at least one live line, ascending.
func (l *Ledger) ActiveTables() []int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := map[int]bool{}
	var tables []int
	for _, line := range l.lines {
		if !seen[line.Table] {
			seen[line.Table] = true
			tables = append(tables, line.Table)
		}
	}
	sort.Ints(tables)
	return tables
}

// Lines returns a copy of every live line, ordered by table then timestamp.
func (l *Ledger) Lines() []models.OrderLine {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.OrderLine, len(l.lines))
	copy(out, l.lines)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Stats recomputes the live counters from the line list.
func (l *Ledger) Stats() models.LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := models.LedgerStats{TotalOrders: len(l.lines)}
	seen := map[int]bool{}
	for _, line := range l.lines {
		if line.Status == models.StatusPending {
			stats.PendingCount++
		} else {
			stats.FulfilledCount++
		}
		seen[line.Table] = true
	}
	stats.ActiveTables = len(seen)
	return stats
}

// match resolves a matcher to a line index inside the table: timestamp
// first, then the name shim (earliest pending line with that name in any
// locale, else the earliest match of any status).
func (l *Ledger) match(table int, m Matcher) int {
	if m.Timestamp != 0 {
		if idx := l.findIndex(table, m.Timestamp); idx >= 0 {
			return idx
		}
	}
	if m.Name == "" {
		return -1
	}

	fallback := -1
	for i, line := range l.lines {
		if line.Table != table || !nameMatches(line.Item.Name, m.Name) {
			continue
		}
		if line.Status == models.StatusPending {
			return i
		}
		if fallback < 0 {
			fallback = i
		}
	}
	return fallback
}

func (l *Ledger) findIndex(table int, timestamp int64) int {
	for i, line := range l.lines {
		if line.Table == table && line.Timestamp == timestamp {
			return i
		}
	}
	return -1
}

func nameMatches(name models.LocalizedName, want string) bool {
	for _, v := range name {
		if v == want {
			return true
		}
	}
	return false
}

// persist rewrites the whole ledger record. Failure is logged and the
// in-memory state stays authoritative for the session. Caller holds the
// lock.
func (l *Ledger) persist(ctx context.Context) {
	if l.store == nil {
		return
	}

	rec := models.LedgerRecord{
		Orders:      make([]models.OrderLine, len(l.lines)),
		TablePeople: make(map[int]int, len(l.people)),
	}
	copy(rec.Orders, l.lines)
	for table, count := range l.people {
		rec.TablePeople[table] = count
	}

	if err := l.store.SaveLedger(ctx, rec); err != nil {
		l.logger.Error("", "ledger_persist_failed", "Failed to persist ledger record", err)
	}
}

// notify runs outside the lock so observers may read the ledger.
func (l *Ledger) notify(change Change) {
	for _, fn := range l.observers {
		fn(change)
	}
}
