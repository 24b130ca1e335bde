package store

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/samber/lo"

	"insider-data/internal/model"
)

// Dataset directory names under the data root.
const (
	TransactionsDir = "form4/data"
	EnrichedDir     = "form4/enriched"
	SeenDir         = "form4/scraped_operation_ids"
	LocksDir        = "form4/.locks"

	partitionKey = "parent_eid"
)

// TransactionStore is the first persistence point: normalized filing
// transactions partitioned by entity.
type TransactionStore struct {
	data *Dataset[model.Transaction]
	seen SeenStore
	now  func() time.Time
}

// NewTransactionStore keeps transactions under <dataDir>/form4/data.
func NewTransactionStore(dataDir string, seen SeenStore) *TransactionStore {
	return &TransactionStore{
		data: NewDataset[model.Transaction](filepath.Join(dataDir, TransactionsDir), partitionKey),
		seen: seen,
		now:  time.Now,
	}
}

// Dataset exposes the underlying dataset.
func (s *TransactionStore) Dataset() *Dataset[model.Transaction] { return s.data }

// ProcessedOIDs returns the sorted filing identifiers already present in
// eid's partition, recovered from each row's document URL.
func (s *TransactionStore) ProcessedOIDs(_ context.Context, eid string) ([]string, error) {
	rows, err := s.data.Read(eid)
	if err != nil {
		return nil, &StorageError{Op: "read", EID: eid, Err: err}
	}
	oids := lo.Uniq(lo.FilterMap(rows, func(t model.Transaction, _ int) (string, bool) {
		oid := t.OperationID()
		return oid, oid != ""
	}))
	sort.Strings(oids)
	return oids, nil
}

// Seen returns the discovery cache entries of eid.
func (s *TransactionStore) Seen(ctx context.Context, eid string) (map[string]struct{}, error) {
	return s.seen.Seen(ctx, eid)
}

// MarkSeen records oids as inspected for eid.
func (s *TransactionStore) MarkSeen(ctx context.Context, eid string, oids []string) error {
	return s.seen.Record(ctx, eid, oids, s.now())
}

// Reconcile normalizes raw records, merges them into eid's partition and
// then records every inspected filing identifier in the discovery cache,
// including those that produced no new rows.
func (s *TransactionStore) Reconcile(ctx context.Context, eid string, w *model.Window, raw []model.RawTransaction, inspected []string) (Result[model.Transaction], error) {
	rows := make([]model.Transaction, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, model.Normalize(r))
	}
	res, err := Reconcile(ctx, s.data, eid, w, rows)
	if err != nil {
		return res, err
	}
	if err := s.MarkSeen(ctx, eid, inspected); err != nil {
		return res, err
	}
	return res, nil
}
