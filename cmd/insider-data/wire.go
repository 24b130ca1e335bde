//go:build wireinject
// +build wireinject

package main

import (
	"insider-data/internal/app"
	"insider-data/internal/enrich"
	"insider-data/internal/pipeline"
	"insider-data/internal/provider"

	"github.com/google/wire"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *app.Config
	Runner *pipeline.Runner
	Prices provider.PriceSeries
}

// InitializeApp builds App from cfg via Wire.
// Caller must call the returned cleanup when done.
func InitializeApp(cfg *app.Config) (*App, func(), error) {
	wire.Build(
		app.ProvideArchiveClient,
		app.ProvideSeenStore,
		app.ProvideTransactionStore,
		app.ProvideEnrichedStore,
		app.ProvidePartitionLock,
		app.ProvidePriceSeries,
		app.ProvideDiscovery,
		app.ProvideExtractor,
		enrich.New,
		app.ProvideRunner,
		wire.Struct(new(App), "Config", "Runner", "Prices"),
	)
	return nil, nil, nil
}
