package app

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"insider-data/internal/crawl"
	"insider-data/internal/slogx"
)

// RunFlow orchestrates crawl loop: trigger → run → done → (wait → trigger).
// Without a schedule it returns after one run.
func RunFlow(cfg *Config, runner crawl.EntityRunner, eids []string) {
	progressUpdates := make(chan crawl.ProgressUpdate, 256)
	var progressWg sync.WaitGroup
	progressWg.Add(1)
	go func() {
		defer progressWg.Done()
		crawl.RunProgressWriter(cfg.ProgressPath(), progressUpdates)
	}()

	shutdown := make(chan struct{})
	trigger := make(chan crawl.Cmd, 1)
	done := make(chan crawl.Done, 1)
	opts := crawl.Options{
		Workers:      cfg.Workers,
		ReportDir:    cfg.BaseDir(),
		ProgressPath: cfg.ProgressPath(),
		Incremental:  cfg.Incremental,
		LogLevel:     slogx.ParseLevel(cfg.LogLevel),
	}

	go func() {
		for range trigger {
			w, err := cfg.Window(time.Now())
			if err != nil {
				slog.Error("invalid date window, skip run", "error", err)
				done <- crawl.Done{}
				continue
			}
			slog.Info("crawl start", "entities", len(eids), "window", w.String(), "workers", opts.Workers)
			crawl.RunOneCrawl(runner, eids, w, opts, progressUpdates, done, shutdown)
		}
	}()
	defer func() {
		close(trigger)
		close(progressUpdates)
		progressWg.Wait()
	}()

	trigger <- crawl.Cmd{}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	for {
		select {
		case <-done:
			if !cfg.Schedule {
				return
			}
			slog.Info("done, wait until next run")
			nextRun := nextCrawlRunTime(cfg, time.Now())
			waitDur := time.Until(nextRun)
			if waitDur <= 0 {
				slog.Info("next run passed, running now", "next_run", nextRun.Format("2006-01-02 15:04"))
			} else {
				slog.Info("timer waiting", "hours", waitDur.Hours(), "until", nextRun.Format("2006-01-02 15:04"))
				timer := time.NewTimer(waitDur)
				select {
				case <-timer.C:
				case sig := <-signals:
					slog.Info("received signal, stopping", "sig", sig, "restart_at", nextRun.Format("2006-01-02 15:04"))
					timer.Stop()
					return
				}
			}
			trigger <- crawl.Cmd{}
		case sig := <-signals:
			slog.Info("received signal, graceful shutdown", "sig", sig)
			close(shutdown)
			<-done
			return
		}
	}
}

func nextCrawlRunTime(cfg *Config, now time.Time) time.Time {
	now = now.UTC()
	hour, min := cfg.RunHour, cfg.RunMinute
	targetToday := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, time.UTC)
	if now.Before(targetToday) {
		return targetToday
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, min, 0, 0, time.UTC)
}
