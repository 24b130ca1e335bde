package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"insider-data/internal/model"
	"insider-data/internal/pipeline"
	"insider-data/internal/slogx"
	"insider-data/internal/store"
)

// Job represents one crawl unit (entity + date window)
type Job struct {
	EID    string
	Window *model.Window
}

// JobResult is sent by workers for fan-in
type JobResult struct {
	Ok            bool
	EID           string
	Window        string
	Reason        string
	Discovered    int
	FailedFilings int
	BadTickers    []string
	NewRows       int
	Rows          int
	End           string // progress date; empty keeps the entity's previous date
}

// Cmd triggers a crawl run
type Cmd struct{}

// Done signals crawl completion
type Done struct{}

// EntityRunner runs one entity end to end.
type EntityRunner interface {
	Run(ctx context.Context, eid string, w *model.Window) (pipeline.Summary, error)
}

// Options configures one crawl cycle.
type Options struct {
	Workers      int
	ReportDir    string
	ProgressPath string
	// Incremental resumes each entity from its last recorded day.
	Incremental bool
	LogLevel    slog.Level
	Heartbeat   time.Duration
	// LogOutput receives the fan-in log lines; nil means stdout.
	LogOutput io.Writer
}

// PlanJobs returns one job per distinct entity. With incremental set, an
// entity found in the progress file starts at its last recorded day (that
// day is scanned again; reconciliation drops repeats) and is skipped when
// already past the window end.
func PlanJobs(eids []string, base *model.Window, progressPath string, incremental bool, now time.Time) []Job {
	m := loadProgress(progressPath)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	var jobs []Job
	for _, raw := range eids {
		eid := model.NormalizeEID(raw)
		if eid == "" || seen[eid] {
			continue
		}
		seen[eid] = true

		w := base
		if last, ok := m[eid]; ok && incremental {
			start, err := time.ParseInLocation(model.DateLayout, last, time.UTC)
			if err == nil {
				end := today
				if base != nil {
					end = base.End
					if base.Start.After(start) {
						start = base.Start
					}
				}
				if start.After(end) {
					continue
				}
				w = &model.Window{Start: start, End: end}
			}
		}
		jobs = append(jobs, Job{EID: eid, Window: w})
	}
	return jobs
}

// RunOneCrawl runs one crawl cycle over eids in parallel mode, sends done when finished.
func RunOneCrawl(
	runner EntityRunner,
	eids []string,
	base *model.Window,
	opts Options,
	progressUpdates chan<- ProgressUpdate,
	done chan<- Done,
	shutdown <-chan struct{},
) {
	now := time.Now().UTC()
	jobs := PlanJobs(eids, base, opts.ProgressPath, opts.Incremental, now)
	if len(jobs) == 0 {
		slog.Info("no jobs to crawl, skip")
		done <- Done{}
		return
	}
	if skipped := len(eids) - len(jobs); skipped > 0 {
		slog.Info("entities up to date or repeated, jobs to crawl", "skipped", skipped, "jobs", len(jobs))
	} else {
		slog.Info("jobs to crawl", "jobs", len(jobs))
	}

	success, failed, successList, failedList := RunParallel(runner, opts, jobs, progressUpdates, shutdown)
	if len(successList) > 0 || len(failedList) > 0 {
		if err := writeRunReport(opts.ReportDir, successList, failedList); err != nil {
			slog.Warn("could not write run report", "error", err)
		} else {
			slog.Info("run report saved", "success", len(successList), "failed", len(failedList))
		}
	}
	slog.Info("crawl done", "success", success, "failed", failed)
	done <- Done{}
}

// tally is shared by the result collector and the heartbeat.
type tally struct {
	mu            sync.Mutex
	success       int
	failed        int
	failedFilings int
	badTickers    int
	rowsPerEntity map[string]int
	successList   []successEntry
	failedList    []failedEntry
}

func runJobResultCollector(results <-chan JobResult, t *tally) {
	for r := range results {
		t.mu.Lock()
		if r.Ok {
			t.success++
			t.failedFilings += r.FailedFilings
			t.badTickers += len(r.BadTickers)
			t.successList = appendSuccess(t.successList, successEntry{
				EID:           r.EID,
				Window:        r.Window,
				Discovered:    r.Discovered,
				NewRows:       r.NewRows,
				FailedFilings: r.FailedFilings,
				BadTickers:    r.BadTickers,
			})
			t.rowsPerEntity[r.EID] += r.NewRows
		} else {
			t.failed++
			t.failedList = append(t.failedList, failedEntry{EID: r.EID, Window: r.Window, Reason: r.Reason})
		}
		t.mu.Unlock()
	}
}

// RunParallel runs jobs with N workers, one entity per worker at a time.
// Entities are never split across workers. After shutdown is closed, workers
// finish their current entity and take no new one.
func RunParallel(
	runner EntityRunner,
	opts Options,
	jobs []Job,
	progressUpdates chan<- ProgressUpdate,
	shutdown <-chan struct{},
) (successCount, failedCount int, successList []successEntry, failedList []failedEntry) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}

	logs := make(chan string, 2048)
	logger := slogx.NewChanLogger(logs, opts.LogLevel)
	errs := make(chan errorEntry, 64)
	var logWg sync.WaitGroup
	logWg.Add(1)
	go func() {
		defer logWg.Done()
		runLogWriter(logs, opts.LogOutput)
	}()
	var errWg sync.WaitGroup
	errWg.Add(1)
	go func() {
		defer errWg.Done()
		runErrorHandler(errs, logger)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	runCtx := slogx.WithLogger(context.Background(), logger)

	var hbWg sync.WaitGroup
	defer func() {
		cancel()
		hbWg.Wait()
		close(errs)
		errWg.Wait()
		close(logs)
		logWg.Wait()
	}()

	pending := make(chan Job, len(jobs))
	for _, j := range jobs {
		pending <- j
	}
	close(pending)

	results := make(chan JobResult, len(jobs)+64)
	t := &tally{rowsPerEntity: make(map[string]int)}
	var resWg sync.WaitGroup
	resWg.Add(1)
	go func() {
		defer resWg.Done()
		runJobResultCollector(results, t)
	}()

	hbWg.Add(1)
	go func() {
		defer hbWg.Done()
		runHeartbeat(ctx, heartbeat, len(jobs), t, logger)
	}()

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-shutdown:
					return
				default:
				}
				select {
				case <-shutdown:
					return
				case job, ok := <-pending:
					if !ok {
						return
					}
					r := runJob(runCtx, runner, job, logger, errs)
					results <- r
					if r.Ok && r.End != "" {
						select {
						case progressUpdates <- ProgressUpdate{EID: r.EID, Date: r.End}:
						default:
							logger.Warn("progress channel full, skip update", "eid", r.EID)
						}
					}
				}
			}
		}()
	}
	wg.Wait()
	close(results)
	resWg.Wait()
	cancel()
	hbWg.Wait()

	var total int
	for _, n := range t.rowsPerEntity {
		total += n
	}
	logger.Info("summary", "new_rows", total, "success", t.success, "failed", t.failed,
		"failed_filings", t.failedFilings, "bad_tickers", t.badTickers)
	if len(t.rowsPerEntity) > 0 {
		eids := make([]string, 0, len(t.rowsPerEntity))
		for e := range t.rowsPerEntity {
			eids = append(eids, e)
		}
		sort.Strings(eids)
		for _, e := range eids {
			logger.Info("summary entity", "eid", e, "new_rows", t.rowsPerEntity[e])
		}
	}
	if len(t.failedList) > 0 {
		logger.Info("summary failed", "count", len(t.failedList), "reasons", joinFailedReasons(t.failedList))
	}

	return t.success, t.failed, t.successList, t.failedList
}

func runJob(ctx context.Context, runner EntityRunner, job Job, logger *slog.Logger, errs chan<- errorEntry) (res JobResult) {
	window := job.Window.String()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("entity panic", "eid", job.EID, "window", window, "panic", p)
			res = JobResult{Ok: false, EID: job.EID, Window: window, Reason: fmt.Sprintf("panic: %v", p)}
		}
	}()
	sum, err := runner.Run(ctx, job.EID, job.Window)
	if err != nil {
		reason := err.Error()
		switch {
		case errors.Is(err, store.ErrPartitionBusy):
			logger.Warn("entity busy", "eid", job.EID)
		case store.IsStorageError(err):
			logger.Error("storage failure", "eid", job.EID, "window", window, "reason", reason)
		default:
			logger.Error("entity fail", "eid", job.EID, "window", window, "reason", reason)
		}
		select {
		case errs <- errorEntry{EID: job.EID, Err: err}:
		default:
		}
		return JobResult{Ok: false, EID: job.EID, Window: window, Reason: reason}
	}

	end := time.Now().UTC().Format(model.DateLayout)
	if job.Window != nil {
		end = job.Window.EndDate()
	}
	if sum.Failed > 0 {
		// failed filings are only listed again if the window is replayed
		logger.Warn("entity has failed filings, progress kept", "eid", job.EID, "window", window, "failed", sum.Failed)
		end = ""
	}
	if sum.NoData() {
		logger.Info("entity ok, no data", "eid", job.EID, "window", window)
	} else {
		logger.Info("entity ok", "eid", job.EID, "window", window, "new", sum.NewRows, "rows", sum.Rows)
	}
	return JobResult{
		Ok:            true,
		EID:           job.EID,
		Window:        window,
		Discovered:    sum.Discovered,
		FailedFilings: sum.Failed,
		BadTickers:    sum.BadTickers,
		NewRows:       sum.NewRows,
		Rows:          sum.Rows,
		End:           end,
	}
}
