package provider

import (
	"context"
	"sync"
	"time"

	"insider-data/internal/model"
	"insider-data/internal/provider/polygon"
	"insider-data/internal/slogx"
)

// PolygonProvider is a PriceSeries backed by the Polygon aggregates API.
// It embeds *polygon.Client to expose its capabilities with minimal boilerplate.
type PolygonProvider struct {
	*polygon.Client
}

// NewPolygonProvider creates a new Polygon-backed PriceSeries.
func NewPolygonProvider(cfg polygon.Config) *PolygonProvider {
	return &PolygonProvider{Client: polygon.NewClient(cfg)}
}

// Unavailable is the PriceSeries used when no price source is configured:
// every ticker comes back empty, so enrichment keeps rows without prices.
type Unavailable struct {
	once sync.Once
}

func (u *Unavailable) GetName() string { return "Unavailable" }

func (u *Unavailable) Close() error { return nil }

func (u *Unavailable) DailyBars(ctx context.Context, ticker string, _, _ time.Time) ([]model.Bar, error) {
	u.once.Do(func() {
		slogx.FromContext(ctx).Warn("no price source configured, enrichment keeps rows unpriced")
	})
	return nil, nil
}

// NewPriceSeries picks Polygon when an API key is configured.
func NewPriceSeries(cfg polygon.Config) PriceSeries {
	if len(cfg.APIKeys) == 0 {
		return &Unavailable{}
	}
	return NewPolygonProvider(cfg)
}

var (
	_ PriceSeries = (*PolygonProvider)(nil)
	_ PriceSeries = (*Unavailable)(nil)
)
