package saver

import (
	"strings"
)

// Saver is the abstraction for exporting one entity's reconciled rows.
// High-level (pipeline) depends on this interface; format implementations are injected.
type Saver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// New creates implementation by format (csv, parquet, json).
// Returns nil if format not supported.
func New(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}
