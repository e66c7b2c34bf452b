package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kitchen-ledger/pkg/models"
)

const (
	ledgerFile = "ledger.json"
	stockFile  = "stock.json"
	archiveDir = "archive"
)

// FileStore keeps every document as a JSON file under a data directory.
// Writes go through a temp file and a rename so a crash mid-write cannot
// leave a truncated document behind.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, archiveDir), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadLedger(ctx context.Context) (models.LedgerRecord, error) {
	rec := models.LedgerRecord{TablePeople: map[int]int{}}
	err := s.readJSON(filepath.Join(s.dir, ledgerFile), &rec)
	if err != nil {
		return models.LedgerRecord{TablePeople: map[int]int{}}, err
	}
	if rec.TablePeople == nil {
		rec.TablePeople = map[int]int{}
	}
	return rec, nil
}

func (s *FileStore) SaveLedger(ctx context.Context, rec models.LedgerRecord) error {
	return s.writeJSON(filepath.Join(s.dir, ledgerFile), rec)
}

func (s *FileStore) LoadStock(ctx context.Context) (map[string]models.StockCounter, error) {
	counters := map[string]models.StockCounter{}
	if err := s.readJSON(filepath.Join(s.dir, stockFile), &counters); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *FileStore) SaveStock(ctx context.Context, counters map[string]models.StockCounter) error {
	return s.writeJSON(filepath.Join(s.dir, stockFile), counters)
}

func (s *FileStore) LoadArchive(ctx context.Context) (map[string]models.DayRecord, error) {
	days := map[string]models.DayRecord{}

	entries, err := os.ReadDir(filepath.Join(s.dir, archiveDir))
	if err != nil {
		if os.IsNotExist(err) {
			return days, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(name, ".json")
		var rec models.DayRecord
		if err := s.readJSON(filepath.Join(s.dir, archiveDir, name), &rec); err != nil {
			return nil, fmt.Errorf("cannot read archive day %s: %w", date, err)
		}
		days[date] = rec
	}
	return days, nil
}

func (s *FileStore) SaveArchiveDay(ctx context.Context, date string, rec models.DayRecord) error {
	return s.writeJSON(filepath.Join(s.dir, archiveDir, date+".json"), rec)
}

func (s *FileStore) ClearArchive(ctx context.Context) error {
	dir := filepath.Join(s.dir, archiveDir)
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *FileStore) Close() {}

func (s *FileStore) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
