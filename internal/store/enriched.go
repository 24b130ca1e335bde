package store

import (
	"context"
	"path/filepath"

	"insider-data/internal/model"
)

// EnrichedStore is the second persistence point: priced transactions
// partitioned by entity, deduplicated on their own content hash.
type EnrichedStore struct {
	data *Dataset[model.Enriched]
}

func NewEnrichedStore(dataDir string) *EnrichedStore {
	return &EnrichedStore{data: NewDataset[model.Enriched](filepath.Join(dataDir, EnrichedDir), partitionKey)}
}

func (s *EnrichedStore) Dataset() *Dataset[model.Enriched] { return s.data }

// Reconcile hashes the priced rows and merges them into eid's partition.
// Unpriced rows are not persisted, and a transaction that already has an
// enriched row keeps it: the partition holds at most one row per source hash.
func (s *EnrichedStore) Reconcile(ctx context.Context, eid string, w *model.Window, rows []model.Enriched) (Result[model.Enriched], error) {
	hashed := make([]model.Enriched, 0, len(rows))
	for _, r := range rows {
		if !r.Priced() {
			continue
		}
		r.Hash = r.ContentHash()
		hashed = append(hashed, r)
	}
	return ReconcileBy(ctx, s.data, eid, w, hashed, sourceKey)
}

func sourceKey(e model.Enriched) string { return e.SourceHash }
