package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"insider-data/internal/enrich"
	"insider-data/internal/filings"
	"insider-data/internal/pipeline"
	"insider-data/internal/provider"
	"insider-data/internal/provider/edgar"
	"insider-data/internal/store"
)

// ProvideArchiveClient creates the archive client (for Wire).
// The cleanup releases idle connections.
func ProvideArchiveClient(cfg *Config) (*edgar.Client, func()) {
	c := CreateArchiveClient(cfg)
	return c, func() { c.Close() }
}

// ProvideSeenStore opens the discovery cache selected by SEEN_BACKEND (for Wire).
func ProvideSeenStore(cfg *Config) (store.SeenStore, func(), error) {
	s, err := store.NewSeenStore(cfg.SeenBackend, filepath.Join(cfg.DataDir, store.SeenDir))
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(); err != nil {
			slog.Warn("close seen store", "error", err)
		}
	}, nil
}

// ProvideTransactionStore creates the transaction store (for Wire).
func ProvideTransactionStore(cfg *Config, seen store.SeenStore) *store.TransactionStore {
	return store.NewTransactionStore(cfg.DataDir, seen)
}

// ProvideEnrichedStore creates the enriched store (for Wire).
func ProvideEnrichedStore(cfg *Config) *store.EnrichedStore {
	return store.NewEnrichedStore(cfg.DataDir)
}

// ProvidePartitionLock creates the per-entity lock (for Wire).
func ProvidePartitionLock(cfg *Config) *store.PartitionLock {
	return store.NewPartitionLock(filepath.Join(cfg.DataDir, store.LocksDir), cfg.StaleLock)
}

// ProvidePriceSeries creates the price source (for Wire).
func ProvidePriceSeries(cfg *Config) (provider.PriceSeries, func()) {
	p := CreatePriceSeries(cfg)
	return p, func() { p.Close() }
}

// ProvideDiscovery creates discovery over the archive and transaction history (for Wire).
func ProvideDiscovery(client *edgar.Client, history *store.TransactionStore) *filings.Discovery {
	return filings.NewDiscovery(client, history)
}

// ProvideExtractor creates the extractor (for Wire).
func ProvideExtractor(cfg *Config, client *edgar.Client) *filings.Extractor {
	return filings.NewExtractor(client, cfg.DelayUnit)
}

// ProvideRunner wires the per-entity pipeline and its optional exporter (for Wire).
// Returns error if ExportFormat is not supported.
func ProvideRunner(
	cfg *Config,
	discovery *filings.Discovery,
	extractor *filings.Extractor,
	transactions *store.TransactionStore,
	enriched *store.EnrichedStore,
	enricher *enrich.Enricher,
	locks *store.PartitionLock,
) (*pipeline.Runner, error) {
	r := pipeline.NewRunner(discovery, extractor, transactions, enriched, enricher, locks)
	exporter, err := CreateExporter(cfg.ExportFormat)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		r.SetExporter(exporter, cfg.ExportDir())
		slog.Info("wire", "export", cfg.ExportFormat, "dir", cfg.ExportDir(),
			"pattern", fmt.Sprintf("form4_{eid}_{start}_{end}.%s", exporter.Extension()))
	}
	return r, nil
}
