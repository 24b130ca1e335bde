// Package pipeline runs one entity end to end: discovery, extraction,
// transaction reconciliation, price enrichment and enriched reconciliation.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"insider-data/internal/enrich"
	"insider-data/internal/filings"
	"insider-data/internal/model"
	"insider-data/internal/saver"
	"insider-data/internal/slogx"
	"insider-data/internal/store"
)

// Summary reports what one entity run did.
type Summary struct {
	EID        string
	Window     string
	Discovered int
	Seen       int
	Abandoned  int
	Failed     int
	Extracted  int

	NewRows      int // transactions written
	ExistingRows int // in-window transactions already stored
	Rows         int // reconciled transactions returned

	EnrichedNew      int
	EnrichedExisting int
	GoodTickers      []string
	BadTickers       []string

	ExportPath string
}

// NoData reports whether the entity has nothing in the window.
func (s Summary) NoData() bool { return s.Rows == 0 }

// Runner wires the per-entity stages. Runs for different entities may be
// concurrent; a second run for an entity already running fails with
// store.ErrPartitionBusy.
type Runner struct {
	discovery    *filings.Discovery
	extractor    *filings.Extractor
	transactions *store.TransactionStore
	enriched     *store.EnrichedStore
	enricher     *enrich.Enricher
	locks        *store.PartitionLock

	exporter  saver.Saver
	exportDir string
}

func NewRunner(
	discovery *filings.Discovery,
	extractor *filings.Extractor,
	transactions *store.TransactionStore,
	enriched *store.EnrichedStore,
	enricher *enrich.Enricher,
	locks *store.PartitionLock,
) *Runner {
	return &Runner{
		discovery:    discovery,
		extractor:    extractor,
		transactions: transactions,
		enriched:     enriched,
		enricher:     enricher,
		locks:        locks,
	}
}

// SetExporter enables per-entity export of the reconciled rows into dir.
func (r *Runner) SetExporter(s saver.Saver, dir string) {
	r.exporter = s
	r.exportDir = dir
}

// Run processes eid over w. Storage and enrichment failures are returned
// with the entity attached; they never affect other entities.
func (r *Runner) Run(ctx context.Context, eid string, w *model.Window) (Summary, error) {
	eid = model.NormalizeEID(eid)
	log := slogx.FromContext(ctx).With("eid", eid)
	ctx = slogx.WithLogger(ctx, log)
	sum := Summary{EID: eid, Window: w.String()}

	release, err := r.locks.Acquire(eid)
	if err != nil {
		return sum, err
	}
	defer release()

	oids, err := r.discovery.Discover(ctx, eid, w)
	if err != nil {
		return sum, fmt.Errorf("discover %s: %w", eid, err)
	}
	sum.Discovered = len(oids)

	ext, err := r.extractor.Extract(ctx, eid, oids)
	if err != nil {
		return sum, fmt.Errorf("extract %s: %w", eid, err)
	}
	sum.Seen, sum.Abandoned, sum.Failed = len(ext.Seen), len(ext.Abandoned), len(ext.Failed)
	sum.Extracted = len(ext.Records)

	txRes, err := r.transactions.Reconcile(ctx, eid, w, ext.Records, ext.Seen)
	if err != nil {
		return sum, fmt.Errorf("reconcile transactions: %w", err)
	}
	sum.NewRows, sum.ExistingRows, sum.Rows = txRes.Written, txRes.Existing, len(txRes.Rows)

	if sum.NoData() {
		log.Info("there is no form 4 data", "window", sum.Window)
		return sum, nil
	}

	outcome, err := r.enricher.Enrich(ctx, txRes.Rows)
	if err != nil {
		return sum, fmt.Errorf("enrich %s: %w", eid, err)
	}
	sum.GoodTickers, sum.BadTickers = outcome.GoodTickers, outcome.BadTickers

	enRes, err := r.enriched.Reconcile(ctx, eid, w, outcome.Rows)
	if err != nil {
		return sum, fmt.Errorf("reconcile enriched: %w", err)
	}
	sum.EnrichedNew, sum.EnrichedExisting = enRes.Written, enRes.Existing

	if r.exporter != nil {
		path, err := r.export(eid, w, saver.Join(txRes.Rows, enRes.Rows))
		if err != nil {
			return sum, fmt.Errorf("export %s: %w", eid, err)
		}
		sum.ExportPath = path
		log.Info("saved form 4 data", "path", path)
	}

	log.Info("entity done",
		"new", sum.NewRows, "existing", sum.ExistingRows,
		"enriched_new", sum.EnrichedNew, "bad_tickers", strings.Join(sum.BadTickers, ","))
	return sum, nil
}

func (r *Runner) export(eid string, w *model.Window, rows []saver.Row) (string, error) {
	if err := os.MkdirAll(r.exportDir, 0755); err != nil {
		return "", err
	}
	span := "all"
	if w != nil {
		span = w.StartDate() + "_" + w.EndDate()
	}
	path := filepath.Join(r.exportDir, fmt.Sprintf("form4_%s_%s.%s", eid, span, r.exporter.Extension()))
	return path, r.exporter.Save(rows, path)
}
