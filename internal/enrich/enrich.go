// Package enrich joins transactions to daily price bars and derives metrics.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"insider-data/internal/model"
	"insider-data/internal/provider"
	"insider-data/internal/slogx"
)

// DefaultLookback and DefaultLookahead widen each price request so a
// transaction dated on a weekend or holiday at either end of the span lies
// between two sessions.
const (
	DefaultLookback  = 7 * 24 * time.Hour
	DefaultLookahead = 7 * 24 * time.Hour
)

// Outcome is the result of enriching one entity's transactions.
type Outcome struct {
	Rows        []model.Enriched
	GoodTickers []string
	BadTickers  []string
}

// Enricher prices transactions using a PriceSeries.
type Enricher struct {
	prices    provider.PriceSeries
	lookback  time.Duration
	lookahead time.Duration
}

// New returns an Enricher with the default request padding.
func New(prices provider.PriceSeries) *Enricher {
	return &Enricher{prices: prices, lookback: DefaultLookback, lookahead: DefaultLookahead}
}

// Enrich returns one row per transaction carrying a ticker. Rows whose date
// has no bar keep nil price fields. A ticker with no data at all is reported
// in BadTickers and contributes no rows.
func (e *Enricher) Enrich(ctx context.Context, txs []model.Transaction) (Outcome, error) {
	log := slogx.FromContext(ctx)
	var out Outcome

	withTicker := lo.Filter(txs, func(t model.Transaction, _ int) bool {
		return t.Ticker != nil && *t.Ticker != ""
	})
	groups := lo.GroupBy(withTicker, func(t model.Transaction) string { return *t.Ticker })
	tickers := lo.Keys(groups)
	sort.Strings(tickers)

	for _, ticker := range tickers {
		group := groups[ticker]
		from, to, ok := span(group)
		if !ok {
			out.BadTickers = append(out.BadTickers, ticker)
			continue
		}
		bars, err := e.prices.DailyBars(ctx, ticker, from.Add(-e.lookback), to.Add(e.lookahead))
		if err != nil {
			return out, fmt.Errorf("price series %s: %w", ticker, err)
		}
		if len(bars) == 0 {
			log.Info("no price data", "ticker", ticker)
			out.BadTickers = append(out.BadTickers, ticker)
			continue
		}
		out.GoodTickers = append(out.GoodTickers, ticker)

		filled := FillCalendar(bars, MaxCarryDays)
		for _, t := range group {
			row := model.Enriched{
				EID:             t.EID,
				SourceHash:      t.Hash,
				Ticker:          ticker,
				TransactionDate: t.TransactionDate,
			}
			if bar, ok := filled[t.TransactionDate]; ok {
				applyBar(&row, bar, t.Shares)
			}
			out.Rows = append(out.Rows, row)
		}
	}
	log.Info("enriched", "rows", len(out.Rows), "good_tickers", len(out.GoodTickers), "bad_tickers", len(out.BadTickers))
	return out, nil
}

// span returns the earliest and latest parseable transaction date of group.
func span(group []model.Transaction) (time.Time, time.Time, bool) {
	var from, to time.Time
	for _, t := range group {
		d, err := time.Parse(model.DateLayout, t.TransactionDate)
		if err != nil {
			continue
		}
		if from.IsZero() || d.Before(from) {
			from = d
		}
		if to.IsZero() || d.After(to) {
			to = d
		}
	}
	return from, to, !from.IsZero()
}

// applyBar copies bar prices into row and derives the metrics, rounded to 4
// places. A value that overflows is left nil.
func applyBar(row *model.Enriched, bar model.Bar, shares float64) {
	row.Open = rounded(bar.Open)
	row.High = rounded(bar.High)
	row.Low = rounded(bar.Low)
	row.Close = rounded(bar.Close)
	row.AdjClose = rounded(bar.AdjClose)
	row.Volume = &bar.Volume

	if bar.Open != 0 {
		ret := (bar.Close - bar.Open) / bar.Open
		row.DailyReturn = rounded(ret)
		row.PercentChange = rounded(ret * 100)
	}
	avg := (bar.High + bar.Low) / 2
	row.Range = rounded(bar.High - bar.Low)
	row.AveragePrice = rounded(avg)
	row.NotionalValue = rounded(avg * shares)
}

func rounded(f float64) *float64 {
	if !model.Finite(f) {
		return nil
	}
	v := model.Round4(f)
	return &v
}
