package model

import "time"

// DateLayout is the calendar-day format used for every persisted date column.
const DateLayout = "2006-01-02"

// Bar represents one daily OHLCV bar.
// Shared by the price provider, enrichment and serialization (json, parquet).
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix timestamp in milliseconds
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	AdjClose  float64 `json:"ac" parquet:"ac"`
	Volume    int64   `json:"v" parquet:"v"`
}

// Date returns the UTC calendar day of the bar.
func (b Bar) Date() string {
	return time.UnixMilli(b.Timestamp).UTC().Format(DateLayout)
}
