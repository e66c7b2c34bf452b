package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"
)

// Store is the slice of persistence the archive needs.
type Store interface {
	SaveArchiveDay(ctx context.Context, date string, rec models.DayRecord) error
	ClearArchive(ctx context.Context) error
}

// Archive is the append-only daily history of closed order lines. It is
// independent of the live ledger, so it survives table clears. Days are
// keyed by the local wall-clock date at record time; a table closed right
// after midnight lands in the new day's bucket.
type Archive struct {
	mu     sync.Mutex
	days   map[string]models.DayRecord
	locale string
	store  Store
	logger *logger.Logger
}

func New(store Store, locale string, log *logger.Logger) *Archive {
	return &Archive{
		days:   make(map[string]models.DayRecord),
		locale: locale,
		store:  store,
		logger: log,
	}
}

// Restore replaces the in-memory history with persisted day records.
func (a *Archive) Restore(days map[string]models.DayRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for date, rec := range days {
		a.days[date] = rec
	}
}

// Today returns the current local date in the archive's partition format.
func Today() string {
	return time.Now().Format("2006-01-02")
}

// Record appends a closed line to its day partition and updates the day's
// running revenue and count. Entries are never mutated afterwards.
func (a *Archive) Record(ctx context.Context, line models.ArchivedLine) {
	validatedAt := line.ValidatedAt
	if validatedAt == 0 {
		validatedAt = time.Now().UnixMilli()
		line.ValidatedAt = validatedAt
	}
	date := time.UnixMilli(validatedAt).Format("2006-01-02")

	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.days[date]
	rec.Orders = append(rec.Orders, line)
	rec.TotalRevenue += line.EffectivePrice()
	rec.OrderCount++
	a.days[date] = rec

	if a.store != nil {
		if err := a.store.SaveArchiveDay(ctx, date, rec); err != nil {
			a.logger.Error("", "archive_persist_failed",
				fmt.Sprintf("Failed to persist archive day %s", date), err)
		}
	}
}

// DailyReport aggregates one day's partition. An empty date means today.
func (a *Archive) DailyReport(date string) models.DailyReport {
	if date == "" {
		date = Today()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	report := models.DailyReport{
		Date:          date,
		PerTable:      map[int]models.TableReport{},
		PerDish:       map[string]int{},
		Chronological: []models.ArchivedLine{},
	}

	rec, ok := a.days[date]
	if !ok || len(rec.Orders) == 0 {
		return report
	}

	report.TotalRevenue = rec.TotalRevenue
	report.OrderCount = rec.OrderCount

	// Group by table.
	tablePeople := map[int]int{}
	for _, line := range rec.Orders {
		tr := report.PerTable[line.Table]
		tr.Lines = append(tr.Lines, line)
		tr.Total += line.EffectivePrice()
		tr.Count++
		report.PerTable[line.Table] = tr

		dish := line.Item.Name.Get(a.locale)
		if dish == "" {
			dish = line.Item.ID
		}
		report.PerDish[dish]++

		// Each table's people count is taken once, not once per line.
		tablePeople[line.Table] = line.PeopleCount
	}

	report.TableCount = len(report.PerTable)
	if report.TableCount > 0 {
		report.AverageTicket = report.TotalRevenue / float64(report.TableCount)
	}
	for _, people := range tablePeople {
		report.TotalCovers += people
	}

	report.Chronological = append(report.Chronological, rec.Orders...)
	sort.SliceStable(report.Chronological, func(i, j int) bool {
		return report.Chronological[i].ValidatedAt < report.Chronological[j].ValidatedAt
	})

	return report
}

// Dates lists every day with archived business, most recent first.
func (a *Archive) Dates() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	dates := make([]string, 0, len(a.days))
	for date := range a.days {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// Clear irreversibly wipes all archived history. Confirmation is the
// caller's concern.
func (a *Archive) Clear(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.days = make(map[string]models.DayRecord)
	if a.store != nil {
		if err := a.store.ClearArchive(ctx); err != nil {
			a.logger.Error("", "archive_clear_failed", "Failed to clear persisted archive", err)
		}
	}
	a.logger.Info("", "archive_cleared", "All archived history wiped")
}
