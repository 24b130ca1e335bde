package crawl

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// runLogWriter prints worker log lines in arrival order.
func runLogWriter(lines <-chan string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	for s := range lines {
		w.WriteString(s)
		w.WriteByte('\n')
		if len(lines) == 0 {
			w.Flush()
		}
	}
}

type errorEntry struct {
	EID string
	Err error
}

func runErrorHandler(errs <-chan errorEntry, logger *slog.Logger) {
	counts := make(map[string]int)
	for e := range errs {
		counts[e.EID]++
		logger.Debug("entity error", "eid", e.EID, "attempt", counts[e.EID], "error", e.Err)
	}
}

// runHeartbeat logs crawl progress every interval until ctx is done.
func runHeartbeat(ctx context.Context, interval time.Duration, totalJobs int, t *tally, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			s, f := t.success, t.failed
			filings, tickers := t.failedFilings, t.badTickers
			var newRows int
			for _, n := range t.rowsPerEntity {
				newRows += n
			}
			t.mu.Unlock()
			logger.Info("heartbeat",
				"entities_done", s+f, "entities_total", totalJobs,
				"success", s, "failed", f,
				"new_transactions", newRows,
				"failed_filings", filings, "bad_tickers", tickers)
		}
	}
}
