package app

import (
	"fmt"

	"insider-data/internal/provider"
	"insider-data/internal/provider/edgar"
	"insider-data/internal/provider/polygon"
	"insider-data/internal/saver"
)

// CreateArchiveClient creates the filing archive client from config.
func CreateArchiveClient(cfg *Config) *edgar.Client {
	return edgar.NewClient(edgar.Config{
		BaseURL:         cfg.ArchiveBaseURL,
		UserAgent:       cfg.UserAgent,
		MaxRPS:          cfg.ArchiveMaxRPS,
		ThrottleBackoff: cfg.ThrottleBackoff,
	})
}

// CreatePriceSeries creates the price source from config (currently Polygon only).
// Without an API key prices are unavailable and rows stay unpriced.
func CreatePriceSeries(cfg *Config) provider.PriceSeries {
	return provider.NewPriceSeries(polygon.Config{
		BaseURL:           cfg.PolygonBaseURL,
		APIKeys:           cfg.PolygonAPIKeys,
		RequestsPerMinute: cfg.PolygonReqPerMin,
		CacheTTL:          cfg.PriceCacheTTL,
	})
}

// CreateExporter returns nil when export is off.
func CreateExporter(format string) (saver.Saver, error) {
	if format == "" {
		return nil, nil
	}
	s := saver.New(format)
	if s == nil {
		return nil, fmt.Errorf("unsupported EXPORT_FORMAT %q (use: csv, parquet, json)", format)
	}
	return s, nil
}
