package crawl

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// successEntry is one entity line of .lastrun.success.json.
type successEntry struct {
	EID           string   `json:"eid"`
	Window        string   `json:"window"`
	Discovered    int      `json:"discovered"`
	NewRows       int      `json:"new_transactions"`
	FailedFilings int      `json:"failed_filings,omitempty"`
	BadTickers    []string `json:"bad_tickers,omitempty"`
}

type failedEntry struct {
	EID    string `json:"eid"`
	Window string `json:"window"`
	Reason string `json:"reason"`
}

// writeRunReport stores the last run's outcome per entity. A file is only
// replaced when its list is non-empty.
func writeRunReport(reportDir string, successList []successEntry, failedList []failedEntry) error {
	if err := os.MkdirAll(reportDir, 0755); err != nil {
		return err
	}
	if len(successList) > 0 {
		p := filepath.Join(reportDir, ".lastrun.success.json")
		if err := writeJSONFile(p, successList); err != nil {
			return err
		}
		var failedFilings int
		for _, e := range successList {
			failedFilings += e.FailedFilings
		}
		slog.Info("report wrote success", "path", p, "entities", len(successList), "failed_filings", failedFilings)
	}
	if len(failedList) > 0 {
		p := filepath.Join(reportDir, ".lastrun.failed.json")
		if err := writeJSONFile(p, failedList); err != nil {
			return err
		}
		slog.Info("report wrote failed", "path", p, "entities", len(failedList))
	}
	return nil
}

// writeJSONFile writes v next to path and renames it into place.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// appendSuccess keeps one entry per entity; a repeated entity adds its
// counts to the first entry.
func appendSuccess(list []successEntry, e successEntry) []successEntry {
	for i := range list {
		if list[i].EID == e.EID {
			list[i].Discovered += e.Discovered
			list[i].NewRows += e.NewRows
			list[i].FailedFilings += e.FailedFilings
			list[i].BadTickers = lo.Uniq(append(list[i].BadTickers, e.BadTickers...))
			return list
		}
	}
	return append(list, e)
}

func joinFailedReasons(failedList []failedEntry) string {
	if len(failedList) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range failedList {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.EID)
		b.WriteString(": ")
		b.WriteString(f.Reason)
		if i >= 4 && len(failedList) > 6 {
			b.WriteString(fmt.Sprintf(" (+%d more)", len(failedList)-5))
			break
		}
	}
	return b.String()
}
