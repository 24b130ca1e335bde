package model

// Enriched is a transaction record joined with its daily bar plus derived metrics.
// Price and derived fields are nil when no bar matched the transaction date.
type Enriched struct {
	EID             string   `json:"parent_eid" parquet:"parent_eid"`
	SourceHash      string   `json:"source_hash" parquet:"source_hash"`
	Ticker          string   `json:"ticker" parquet:"ticker"`
	TransactionDate string   `json:"transaction_date" parquet:"transaction_date"`
	Open            *float64 `json:"open" parquet:"open,optional"`
	High            *float64 `json:"high" parquet:"high,optional"`
	Low             *float64 `json:"low" parquet:"low,optional"`
	Close           *float64 `json:"close" parquet:"close,optional"`
	AdjClose        *float64 `json:"adj_close" parquet:"adj_close,optional"`
	Volume          *int64   `json:"volume" parquet:"volume,optional"`
	DailyReturn     *float64 `json:"daily_return" parquet:"daily_return,optional"`
	PercentChange   *float64 `json:"percent_change" parquet:"percent_change,optional"`
	Range           *float64 `json:"range" parquet:"range,optional"`
	AveragePrice    *float64 `json:"average_price" parquet:"average_price,optional"`
	NotionalValue   *float64 `json:"notional_value" parquet:"notional_value,optional"`
	Hash            string   `json:"hash" parquet:"hash"`
}

// Fields lists the enrichment-specific attributes. SourceHash ties the row to
// exactly one transaction, so two transactions on the same day never collapse.
func (e Enriched) Fields() []Field {
	return []Field{
		{"parent_eid", Text(e.EID)},
		{"source_hash", Text(e.SourceHash)},
		{"open", OptionalNumber(e.Open)},
		{"high", OptionalNumber(e.High)},
		{"low", OptionalNumber(e.Low)},
		{"close", OptionalNumber(e.Close)},
		{"adj_close", OptionalNumber(e.AdjClose)},
		{"volume", OptionalInt(e.Volume)},
		{"daily_return", OptionalNumber(e.DailyReturn)},
		{"percent_change", OptionalNumber(e.PercentChange)},
		{"range", OptionalNumber(e.Range)},
		{"average_price", OptionalNumber(e.AveragePrice)},
		{"notional_value", OptionalNumber(e.NotionalValue)},
	}
}

// ContentHash digests Fields.
func (e Enriched) ContentHash() string { return HashFields(e.Fields()) }

// RowHash implements the store row contract.
func (e Enriched) RowHash() string { return e.Hash }

// RowDate implements the store row contract.
func (e Enriched) RowDate() string { return e.TransactionDate }

// Priced reports whether a bar was joined to the row.
func (e Enriched) Priced() bool { return e.Close != nil }
