package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-data/internal/model"
	"insider-data/internal/pipeline"
	"insider-data/internal/slogx"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    map[string]*model.Window
	fail     map[string]error
	filings  map[string]int // failed filings per entity
	tickers  map[string][]string
	panicked map[string]bool
	rows     int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		calls:    map[string]*model.Window{},
		fail:     map[string]error{},
		filings:  map[string]int{},
		tickers:  map[string][]string{},
		panicked: map[string]bool{},
		rows:     2,
	}
}

func (f *fakeRunner) Run(ctx context.Context, eid string, w *model.Window) (pipeline.Summary, error) {
	if slogx.FromContext(ctx) == nil {
		return pipeline.Summary{}, errors.New("no logger")
	}
	f.mu.Lock()
	f.calls[eid] = w
	err := f.fail[eid]
	failed, bad, boom := f.filings[eid], f.tickers[eid], f.panicked[eid]
	f.mu.Unlock()
	if boom {
		panic("reader exploded")
	}
	if err != nil {
		return pipeline.Summary{EID: eid}, err
	}
	return pipeline.Summary{
		EID:        eid,
		Discovered: f.rows + failed,
		Failed:     failed,
		NewRows:    f.rows,
		Rows:       f.rows,
		BadTickers: bad,
	}, nil
}

func (f *fakeRunner) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for e := range f.calls {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func writeProgress(t *testing.T, path string, m map[string]string) {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestPlanJobs_DedupsAndNormalizes(t *testing.T) {
	w, err := model.NewWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	jobs := PlanJobs([]string{"320193", "0000320193", " ", "789019"}, w, filepath.Join(t.TempDir(), "none.json"), false, time.Now())
	require.Len(t, jobs, 2)
	assert.Equal(t, "320193", jobs[0].EID)
	assert.Equal(t, "789019", jobs[1].EID)
	assert.Same(t, w, jobs[0].Window)
}

func TestPlanJobs_Incremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	writeProgress(t, path, map[string]string{
		"320193":  "2024-01-20",
		"789019":  "2024-02-10",
		"1018724": "2023-12-01",
	})
	w, err := model.NewWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	jobs := PlanJobs([]string{"320193", "789019", "1018724", "1652044"}, w, path, true, time.Now())
	require.Len(t, jobs, 3)

	byEID := map[string]*model.Window{}
	for _, j := range jobs {
		byEID[j.EID] = j.Window
	}
	assert.Equal(t, "2024-01-20..2024-01-31", byEID["320193"].String())
	assert.NotContains(t, byEID, "789019")
	assert.Equal(t, "2024-01-01..2024-01-31", byEID["1018724"].String())
	assert.Same(t, w, byEID["1652044"])
}

func TestPlanJobs_IncrementalUnbounded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	writeProgress(t, path, map[string]string{"320193": "2024-03-01"})
	now := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)

	jobs := PlanJobs([]string{"320193"}, nil, path, true, now)
	require.Len(t, jobs, 1)
	assert.Equal(t, "2024-03-01..2024-03-05", jobs[0].Window.String())

	jobs = PlanJobs([]string{"320193"}, nil, path, false, now)
	require.Len(t, jobs, 1)
	assert.Nil(t, jobs[0].Window)
}

func TestRunParallel_IsolatesFailures(t *testing.T) {
	runner := newFakeRunner()
	runner.fail["789019"] = errors.New("boom")
	w, err := model.NewWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	jobs := []Job{{EID: "320193", Window: w}, {EID: "789019", Window: w}, {EID: "1018724", Window: w}}

	updates := make(chan ProgressUpdate, 10)
	success, failed, okList, failList := RunParallel(runner, Options{Workers: 2}, jobs, updates, make(chan struct{}))
	close(updates)

	assert.Equal(t, 2, success)
	assert.Equal(t, 1, failed)
	assert.ElementsMatch(t, []string{"320193", "1018724"}, lo.Map(okList, func(e successEntry, _ int) string { return e.EID }))
	require.Len(t, failList, 1)
	assert.Equal(t, "789019", failList[0].EID)
	assert.Equal(t, "boom", failList[0].Reason)
	assert.Equal(t, []string{"1018724", "320193", "789019"}, runner.called())

	var got []ProgressUpdate
	for u := range updates {
		got = append(got, u)
	}
	assert.ElementsMatch(t, []ProgressUpdate{{EID: "320193", Date: "2024-01-31"}, {EID: "1018724", Date: "2024-01-31"}}, got)
}

func TestRunParallel_StopsOnShutdown(t *testing.T) {
	runner := newFakeRunner()
	shutdown := make(chan struct{})
	close(shutdown)
	jobs := []Job{{EID: "320193"}, {EID: "789019"}}

	success, failed, _, _ := RunParallel(runner, Options{Workers: 1}, jobs, make(chan ProgressUpdate, 4), shutdown)
	assert.Zero(t, success+failed)
	assert.Empty(t, runner.called())
}

func TestRunOneCrawl_WritesReport(t *testing.T) {
	dir := t.TempDir()
	runner := newFakeRunner()
	runner.fail["789019"] = errors.New("storage down")

	updates := make(chan ProgressUpdate, 10)
	done := make(chan Done, 1)
	opts := Options{Workers: 2, ReportDir: dir, ProgressPath: filepath.Join(dir, "progress.json")}
	RunOneCrawl(runner, []string{"320193", "789019"}, nil, opts, updates, done, make(chan struct{}))

	select {
	case <-done:
	default:
		t.Fatal("done not signalled")
	}

	data, err := os.ReadFile(filepath.Join(dir, ".lastrun.success.json"))
	require.NoError(t, err)
	var okList []successEntry
	require.NoError(t, json.Unmarshal(data, &okList))
	assert.Equal(t, []successEntry{{EID: "320193", Window: "unbounded", Discovered: 2, NewRows: 2}}, okList)

	data, err = os.ReadFile(filepath.Join(dir, ".lastrun.failed.json"))
	require.NoError(t, err)
	var failList []failedEntry
	require.NoError(t, json.Unmarshal(data, &failList))
	require.Len(t, failList, 1)
	assert.Equal(t, failedEntry{EID: "789019", Window: "unbounded", Reason: "storage down"}, failList[0])
}

func TestRunOneCrawl_NoJobs(t *testing.T) {
	done := make(chan Done, 1)
	RunOneCrawl(newFakeRunner(), nil, nil, Options{ReportDir: t.TempDir()}, make(chan ProgressUpdate), done, make(chan struct{}))
	assert.Len(t, done, 1)
}

func TestRunProgressWriter_KeepsLatestDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "progress.json")
	updates := make(chan ProgressUpdate, 4)
	updates <- ProgressUpdate{EID: "320193", Date: "2024-02-01"}
	updates <- ProgressUpdate{EID: "320193", Date: "2024-01-15"}
	updates <- ProgressUpdate{EID: "789019", Date: "2024-01-31"}
	close(updates)

	RunProgressWriter(path, updates)

	m := loadProgress(path)
	assert.Equal(t, map[string]string{"320193": "2024-02-01", "789019": "2024-01-31"}, m)
}

func TestJoinFailedReasons(t *testing.T) {
	assert.Equal(t, "", joinFailedReasons(nil))
	assert.Equal(t, "1: a; 2: b", joinFailedReasons([]failedEntry{{EID: "1", Reason: "a"}, {EID: "2", Reason: "b"}}))
}

func TestAppendSuccess(t *testing.T) {
	list := appendSuccess(nil, successEntry{EID: "1", NewRows: 2, BadTickers: []string{"XYZ"}})
	list = appendSuccess(list, successEntry{EID: "1", NewRows: 1, FailedFilings: 1, BadTickers: []string{"XYZ", "QQQ"}})
	list = appendSuccess(list, successEntry{EID: "2"})
	require.Len(t, list, 2)
	assert.Equal(t, successEntry{EID: "1", NewRows: 3, FailedFilings: 1, BadTickers: []string{"XYZ", "QQQ"}}, list[0])
	assert.Equal(t, "2", list[1].EID)
}

func TestRunJob_FailedFilingsKeepProgress(t *testing.T) {
	runner := newFakeRunner()
	runner.filings["789019"] = 1
	w, err := model.NewWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	errs := make(chan errorEntry, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := slogx.WithLogger(context.Background(), logger)

	r := runJob(ctx, runner, Job{EID: "789019", Window: w}, logger, errs)
	assert.True(t, r.Ok)
	assert.Equal(t, 1, r.FailedFilings)
	assert.Equal(t, 3, r.Discovered)
	assert.Empty(t, r.End)

	r = runJob(ctx, runner, Job{EID: "320193", Window: w}, logger, errs)
	assert.True(t, r.Ok)
	assert.Equal(t, "2024-01-31", r.End)
}

func TestRunParallel_FailedFilingsAreRetriedNextRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.json")
	writeProgress(t, path, map[string]string{"320193": "2024-01-10", "789019": "2024-01-10"})
	w, err := model.NewWindow("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	runner := newFakeRunner()
	runner.filings["789019"] = 2
	runner.tickers["789019"] = []string{"MSFTX"}
	jobs := PlanJobs([]string{"320193", "789019"}, w, path, true, time.Now())
	require.Len(t, jobs, 2)

	updates := make(chan ProgressUpdate, 4)
	success, failed, okList, _ := RunParallel(runner, Options{Workers: 2, LogOutput: io.Discard}, jobs, updates, make(chan struct{}))
	close(updates)
	RunProgressWriter(path, updates)

	assert.Equal(t, 2, success)
	assert.Zero(t, failed)
	entry, ok := lo.Find(okList, func(e successEntry) bool { return e.EID == "789019" })
	require.True(t, ok)
	assert.Equal(t, 2, entry.FailedFilings)
	assert.Equal(t, []string{"MSFTX"}, entry.BadTickers)

	assert.Equal(t, map[string]string{"320193": "2024-01-31", "789019": "2024-01-10"}, loadProgress(path))

	jobs = PlanJobs([]string{"320193", "789019"}, w, path, true, time.Now())
	require.Len(t, jobs, 2)
	byEID := lo.SliceToMap(jobs, func(j Job) (string, string) { return j.EID, j.Window.String() })
	assert.Equal(t, "2024-01-10..2024-01-31", byEID["789019"])
	assert.Equal(t, "2024-01-31..2024-01-31", byEID["320193"])
}

func TestRunParallel_PanicIsEntityFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.panicked["789019"] = true
	jobs := []Job{{EID: "320193"}, {EID: "789019"}}

	updates := make(chan ProgressUpdate, 4)
	success, failed, _, failList := RunParallel(runner, Options{Workers: 1, LogOutput: io.Discard}, jobs, updates, make(chan struct{}))
	assert.Equal(t, 1, success)
	assert.Equal(t, 1, failed)
	require.Len(t, failList, 1)
	assert.Equal(t, "789019", failList[0].EID)
	assert.Contains(t, failList[0].Reason, "reader exploded")
}

func TestRunParallel_HeartbeatReportsEntityCounts(t *testing.T) {
	var out safeBuffer
	var tl tally
	tl.rowsPerEntity = map[string]int{}
	results := make(chan JobResult, 1)
	results <- JobResult{Ok: true, EID: "320193", NewRows: 2, FailedFilings: 1, BadTickers: []string{"AAPLX"}}
	close(results)
	runJobResultCollector(results, &tl)
	assert.Equal(t, 1, tl.failedFilings)
	assert.Equal(t, 1, tl.badTickers)

	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(&out, nil))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	runHeartbeat(ctx, time.Millisecond, 1, &tl, logger)

	line := out.String()
	assert.Contains(t, line, "msg=heartbeat")
	assert.Contains(t, line, "entities_done=1")
	assert.Contains(t, line, "new_transactions=2")
	assert.Contains(t, line, "failed_filings=1")
	assert.Contains(t, line, "bad_tickers=1")
}

func TestRunLogWriter_WritesLines(t *testing.T) {
	var out safeBuffer
	lines := make(chan string, 2)
	lines <- "a=1"
	lines <- "b=2"
	close(lines)
	runLogWriter(lines, &out)
	assert.Equal(t, "a=1\nb=2\n", out.String())
}

func TestLoadProgress_NormalizesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	writeProgress(t, path, map[string]string{"0000320193": "2024-01-05", "789019": "not a date", "": "2024-01-01"})
	assert.Equal(t, map[string]string{"320193": "2024-01-05"}, loadProgress(path))
}

type safeBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *safeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *safeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}
