package storage

import (
	"context"

	"kitchen-ledger/pkg/models"
)

// Store persists the three ledgers. Each document is written wholesale:
// the ledger and stock as one record each, the archive as one record per
// calendar day. The store has exactly one writer, the owning server
// process.
type Store interface {
	LoadLedger(ctx context.Context) (models.LedgerRecord, error)
	SaveLedger(ctx context.Context, rec models.LedgerRecord) error

	LoadStock(ctx context.Context) (map[string]models.StockCounter, error)
	SaveStock(ctx context.Context, counters map[string]models.StockCounter) error

	LoadArchive(ctx context.Context) (map[string]models.DayRecord, error)
	SaveArchiveDay(ctx context.Context, date string, rec models.DayRecord) error
	ClearArchive(ctx context.Context) error

	Close()
}
