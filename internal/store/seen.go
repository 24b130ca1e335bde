package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"insider-data/internal/model"
)

// SeenStore remembers which filing identifiers were already inspected per
// entity, whatever the inspection produced. Records are never removed.
type SeenStore interface {
	Seen(ctx context.Context, eid string) (map[string]struct{}, error)
	Record(ctx context.Context, eid string, oids []string, at time.Time) error
	Close() error
}

// SeenRecord is one inspected filing.
type SeenRecord struct {
	Date        string `parquet:"date" json:"date"`
	EID         string `parquet:"eid" json:"eid"`
	OperationID string `parquet:"operation_id" json:"operation_id"`
}

func (r SeenRecord) RowHash() string { return r.OperationID }
func (r SeenRecord) RowDate() string { return r.Date }

// ParquetSeenStore keeps the discovery cache as a parquet dataset partitioned by eid.
type ParquetSeenStore struct {
	data *Dataset[SeenRecord]
	mu   sync.Mutex
}

func NewParquetSeenStore(root string) *ParquetSeenStore {
	return &ParquetSeenStore{data: NewDataset[SeenRecord](root, "eid")}
}

func (s *ParquetSeenStore) Seen(_ context.Context, eid string) (map[string]struct{}, error) {
	rows, err := s.data.Read(eid)
	if err != nil {
		return nil, &StorageError{Op: "read seen", EID: eid, Err: err}
	}
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		out[r.OperationID] = struct{}{}
	}
	return out, nil
}

// Record appends the identifiers not recorded yet.
func (s *ParquetSeenStore) Record(ctx context.Context, eid string, oids []string, at time.Time) error {
	if len(oids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, err := s.Seen(ctx, eid)
	if err != nil {
		return err
	}
	date := at.UTC().Format(model.DateLayout)
	var rows []SeenRecord
	for _, oid := range oids {
		if _, ok := seen[oid]; ok {
			continue
		}
		seen[oid] = struct{}{}
		rows = append(rows, SeenRecord{Date: date, EID: eid, OperationID: oid})
	}
	if _, err := s.data.Append(eid, rows); err != nil {
		return &StorageError{Op: "write seen", EID: eid, Err: err}
	}
	return nil
}

func (s *ParquetSeenStore) Close() error { return nil }

// NewSeenStore opens the discovery cache for backend "parquet" (default) or "sqlite".
func NewSeenStore(backend, dir string) (SeenStore, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "parquet":
		return NewParquetSeenStore(dir), nil
	case "sqlite":
		s, err := NewSQLiteSeenStore(dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown seen backend %q (use parquet or sqlite)", backend)
	}
}
