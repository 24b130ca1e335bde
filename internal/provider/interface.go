package provider

import (
	"context"
	"time"

	"insider-data/internal/model"
)

// DataProvider is the abstraction used by the application when accessing a data source.
// Implementations are responsible for their own resource cleanup.
type DataProvider interface {
	GetName() string
	Close() error
}

// PriceSeries returns daily bars for a ticker over [from, to]. An empty
// slice with a nil error means the ticker has no data.
type PriceSeries interface {
	DataProvider
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]model.Bar, error)
}
