package crawl

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"insider-data/internal/model"
)

// ProgressUpdate is sent when an entity run succeeds with no failed filings.
// Date is the last day fully scanned for EID.
type ProgressUpdate struct {
	EID  string
	Date string
}

// loadProgress reads the eid -> last scanned day map. Keys are normalized
// and entries whose date does not parse are dropped.
func loadProgress(path string) map[string]string {
	m := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("progress file unreadable, starting over", "path", path, "error", err)
		return m
	}
	for eid, date := range raw {
		eid = model.NormalizeEID(eid)
		if eid == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			continue
		}
		if prev, ok := m[eid]; !ok || date > prev {
			m[eid] = date
		}
	}
	return m
}

// RunProgressWriter receives updates and persists to file (run as goroutine)
func RunProgressWriter(path string, updates <-chan ProgressUpdate) {
	m := loadProgress(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		slog.Warn("progress dir error", "error", err)
	}
	for u := range updates {
		if prev, ok := m[u.EID]; ok && prev > u.Date {
			continue
		}
		m[u.EID] = u.Date
		if err := writeJSONFile(path, m); err != nil {
			slog.Warn("progress write error", "eid", u.EID, "date", u.Date, "error", err)
		}
	}
}
