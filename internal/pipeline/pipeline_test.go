package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-data/internal/enrich"
	"insider-data/internal/filings"
	"insider-data/internal/model"
	"insider-data/internal/provider/edgar"
	"insider-data/internal/provider/edgar/edgartest"
	"insider-data/internal/saver"
	"insider-data/internal/store"
)

type fakePrices struct{ bars map[string][]model.Bar }

func (f fakePrices) GetName() string { return "fake" }
func (f fakePrices) Close() error    { return nil }
func (f fakePrices) DailyBars(_ context.Context, ticker string, from, to time.Time) ([]model.Bar, error) {
	var out []model.Bar
	for _, b := range f.bars[ticker] {
		if d := b.Date(); d >= from.Format(model.DateLayout) && d <= to.Format(model.DateLayout) {
			out = append(out, b)
		}
	}
	return out, nil
}

func session(date string, o, h, l, c float64) model.Bar {
	d, _ := time.Parse(model.DateLayout, date)
	return model.Bar{Timestamp: d.Add(5 * time.Hour).UnixMilli(), Open: o, High: h, Low: l, Close: c, AdjClose: c, Volume: 1000}
}

type fixture struct {
	archive *edgartest.Server
	dataDir string
	runner  *Runner
	locks   *store.PartitionLock
}

func newFixture(t *testing.T) *fixture {
	srv := edgartest.NewServer(t)
	dataDir := t.TempDir()

	client := edgar.NewClient(edgar.Config{BaseURL: srv.URL, ThrottleBackoff: time.Millisecond})
	seen := store.NewParquetSeenStore(filepath.Join(dataDir, store.SeenDir))
	txStore := store.NewTransactionStore(dataDir, seen)
	extractor := filings.NewExtractor(client, time.Second)
	extractor.Sleep = func(context.Context, time.Duration) error { return nil }
	prices := fakePrices{bars: map[string][]model.Bar{
		"AMZN": {session("2021-02-05", 3300, 3350, 3280, 3340), session("2021-02-08", 3350, 3400, 3300, 3320)},
	}}
	locks := store.NewPartitionLock(filepath.Join(dataDir, store.LocksDir), 0)

	runner := NewRunner(
		filings.NewDiscovery(client, txStore),
		extractor,
		txStore,
		store.NewEnrichedStore(dataDir),
		enrich.New(prices),
		locks,
	)
	return &fixture{archive: srv, dataDir: dataDir, runner: runner, locks: locks}
}

func TestRun_IdempotentAcrossRuns(t *testing.T) {
	f := newFixture(t)
	f.archive.AddFiling("1018724", edgartest.Filing{
		OID: "000102000000000001", Date: "2021-02-09", Ticker: "AMZN",
		Txns: []edgartest.Txn{{SecurityTitle: "Stock Option", Date: "2021-02-06", Code: "A", Shares: "100"}},
	})
	f.archive.AddFiling("1018724", edgartest.Filing{OID: "000102000000000002", Date: "2021-03-10", Ticker: "AMZN"})
	f.archive.AddFiling("1018724", edgartest.Filing{OID: "000102000000000003", Date: "2020-11-10", Ticker: "AMZN",
		Txns: []edgartest.Txn{{Date: "2020-11-09", Code: "M", Shares: "1"}}})
	w, err := model.NewWindow("2021-01-01", "2021-03-31")
	require.NoError(t, err)
	ctx := context.Background()

	first, err := f.runner.Run(ctx, "0001018724", w)
	require.NoError(t, err)
	assert.Equal(t, "1018724", first.EID)
	assert.Equal(t, 2, first.Discovered)
	assert.Equal(t, 2, first.Seen)
	assert.Equal(t, 1, first.Extracted)
	assert.Equal(t, 1, first.NewRows)
	assert.Equal(t, 1, first.Rows)
	assert.Equal(t, 1, first.EnrichedNew)
	assert.Equal(t, []string{"AMZN"}, first.GoodTickers)

	rows, err := store.NewTransactionStore(f.dataDir, store.NewParquetSeenStore(filepath.Join(f.dataDir, store.SeenDir))).Dataset().Read("1018724")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AMZN", *rows[0].Ticker)
	assert.Equal(t, 100.0, rows[0].Shares)
	assert.Equal(t, "A", rows[0].Code)

	enriched, err := store.NewEnrichedStore(f.dataDir).Dataset().Read("1018724")
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	assert.Equal(t, rows[0].Hash, enriched[0].SourceHash)
	require.NotNil(t, enriched[0].Close)
	assert.Equal(t, 3340.0, *enriched[0].Close, "Saturday takes Friday's close")
	assert.Equal(t, int64(0), *enriched[0].Volume)

	requests := f.archive.Requests()
	second, err := f.runner.Run(ctx, "1018724", w)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Discovered)
	assert.Equal(t, 0, second.NewRows)
	assert.Equal(t, 1, second.ExistingRows)
	assert.Equal(t, 1, second.Rows)
	assert.Equal(t, 0, second.EnrichedNew)
	assert.Equal(t, requests+1, f.archive.Requests(), "only the listing is fetched again")

	rows, err = store.NewTransactionStore(f.dataDir, nil).Dataset().Read("1018724")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRun_NoData(t *testing.T) {
	f := newFixture(t)
	sum, err := f.runner.Run(context.Background(), "320193", nil)
	require.NoError(t, err)
	assert.True(t, sum.NoData())
	assert.Equal(t, "unbounded", sum.Window)
}

func TestRun_PartitionBusy(t *testing.T) {
	f := newFixture(t)
	release, err := f.locks.Acquire("1018724")
	require.NoError(t, err)
	defer release()

	_, err = f.runner.Run(context.Background(), "0001018724", nil)
	assert.ErrorIs(t, err, store.ErrPartitionBusy)
}

func TestRun_Export(t *testing.T) {
	f := newFixture(t)
	f.archive.AddFiling("1018724", edgartest.Filing{
		OID: "0001", Date: "2021-02-09", Ticker: "AMZN",
		Txns: []edgartest.Txn{{Date: "2021-02-08", Code: "A", Shares: "10"}},
	})
	exportDir := filepath.Join(f.dataDir, "export")
	f.runner.SetExporter(saver.New("csv"), exportDir)

	sum, err := f.runner.Run(context.Background(), "1018724", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exportDir, "form4_1018724_all.csv"), sum.ExportPath)
	b, err := os.ReadFile(sum.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "AMZN")
	assert.Contains(t, string(b), "3320")
}
