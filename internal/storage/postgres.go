package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kitchen-ledger/pkg/config"
	"kitchen-ledger/pkg/logger"
	"kitchen-ledger/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the same documents as FileStore, one JSONB row per
// key. The ledger stays single-writer; Postgres only gives the documents a
// durable home on another machine.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Document keys inside kitchen_documents.
const (
	keyLedger = "ledger"
	keyStock  = "stock"
)

func ConnectPostgres(cfg *config.Postgres, log *logger.Logger) (*PostgresStore, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot create schema: %w", err)
	}

	log.Info("startup", "db_connected", "Connected to PostgreSQL database")
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS kitchen_documents (
            key TEXT PRIMARY KEY,
            doc JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS archive_days (
            day TEXT PRIMARY KEY,
            doc JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	return err
}

func (s *PostgresStore) LoadLedger(ctx context.Context) (models.LedgerRecord, error) {
	rec := models.LedgerRecord{TablePeople: map[int]int{}}
	if err := s.loadDocument(ctx, keyLedger, &rec); err != nil {
		return models.LedgerRecord{TablePeople: map[int]int{}}, err
	}
	if rec.TablePeople == nil {
		rec.TablePeople = map[int]int{}
	}
	return rec, nil
}

func (s *PostgresStore) SaveLedger(ctx context.Context, rec models.LedgerRecord) error {
	return s.saveDocument(ctx, keyLedger, rec)
}

func (s *PostgresStore) LoadStock(ctx context.Context) (map[string]models.StockCounter, error) {
	counters := map[string]models.StockCounter{}
	if err := s.loadDocument(ctx, keyStock, &counters); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *PostgresStore) SaveStock(ctx context.Context, counters map[string]models.StockCounter) error {
	return s.saveDocument(ctx, keyStock, counters)
}

func (s *PostgresStore) LoadArchive(ctx context.Context) (map[string]models.DayRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT day, doc FROM archive_days`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := map[string]models.DayRecord{}
	for rows.Next() {
		var day string
		var doc []byte
		if err := rows.Scan(&day, &doc); err != nil {
			return nil, err
		}
		var rec models.DayRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("cannot decode archive day %s: %w", day, err)
		}
		days[day] = rec
	}
	return days, rows.Err()
}

func (s *PostgresStore) SaveArchiveDay(ctx context.Context, date string, rec models.DayRecord) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO archive_days (day, doc, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (day) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
    `, date, doc)
	return err
}

func (s *PostgresStore) ClearArchive(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM archive_days`)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) loadDocument(ctx context.Context, key string, v any) error {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM kitchen_documents WHERE key = $1`, key).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return json.Unmarshal(doc, v)
}

func (s *PostgresStore) saveDocument(ctx context.Context, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO kitchen_documents (key, doc, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()
    `, key, doc)
	return err
}
