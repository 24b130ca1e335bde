package saver

import "insider-data/internal/model"

// Row is one exported line: a reconciled transaction with its price columns.
// Price columns are empty when the transaction was not priced.
type Row struct {
	ParentEID         string   `json:"parent_eid" parquet:"parent_eid"`
	IssuerEID         string   `json:"issuer_eid" parquet:"issuer_eid"`
	IssuerName        string   `json:"issuer_name" parquet:"issuer_name"`
	Ticker            *string  `json:"ticker" parquet:"ticker,optional"`
	OwnerName         string   `json:"owner_name" parquet:"owner_name"`
	OwnerEID          string   `json:"owner_eid" parquet:"owner_eid"`
	IsDirector        bool     `json:"is_director" parquet:"is_director"`
	IsOfficer         bool     `json:"is_officer" parquet:"is_officer"`
	IsTenPercentOwner bool     `json:"is_ten_percent_owner" parquet:"is_ten_percent_owner"`
	IsOther           bool     `json:"is_other" parquet:"is_other"`
	OfficerTitle      *string  `json:"officer_title" parquet:"officer_title,optional"`
	SecurityTitle     string   `json:"security_title" parquet:"security_title"`
	TransactionDate   string   `json:"transaction_date" parquet:"transaction_date"`
	FormType          string   `json:"form_type" parquet:"form_type"`
	Code              string   `json:"code" parquet:"code"`
	EquitySwap        bool     `json:"equity_swap" parquet:"equity_swap"`
	Shares            float64  `json:"shares" parquet:"shares"`
	AcquiredDisposed  string   `json:"acquired_disposed_code" parquet:"acquired_disposed_code"`
	SharesAfter       float64  `json:"shares_owned_following_transaction" parquet:"shares_owned_following_transaction"`
	Ownership         string   `json:"direct_or_indirect_ownership" parquet:"direct_or_indirect_ownership"`
	DocumentURL       string   `json:"document_url" parquet:"document_url"`
	Hash              string   `json:"hash" parquet:"hash"`
	Open              *float64 `json:"open" parquet:"open,optional"`
	High              *float64 `json:"high" parquet:"high,optional"`
	Low               *float64 `json:"low" parquet:"low,optional"`
	Close             *float64 `json:"close" parquet:"close,optional"`
	AdjClose          *float64 `json:"adj_close" parquet:"adj_close,optional"`
	Volume            *int64   `json:"volume" parquet:"volume,optional"`
	DailyReturn       *float64 `json:"daily_return" parquet:"daily_return,optional"`
	PercentChange     *float64 `json:"percent_change" parquet:"percent_change,optional"`
	Range             *float64 `json:"range" parquet:"range,optional"`
	AveragePrice      *float64 `json:"average_price" parquet:"average_price,optional"`
	NotionalValue     *float64 `json:"notional_value" parquet:"notional_value,optional"`
}

// Join left-joins transactions to enriched rows on the source hash.
func Join(txs []model.Transaction, enriched []model.Enriched) []Row {
	bySource := make(map[string]model.Enriched, len(enriched))
	for _, e := range enriched {
		bySource[e.SourceHash] = e
	}
	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		r := Row{
			ParentEID:         t.EID,
			IssuerEID:         t.IssuerEID,
			IssuerName:        t.IssuerName,
			Ticker:            t.Ticker,
			OwnerName:         t.OwnerName,
			OwnerEID:          t.OwnerEID,
			IsDirector:        t.IsDirector,
			IsOfficer:         t.IsOfficer,
			IsTenPercentOwner: t.IsTenPercentOwner,
			IsOther:           t.IsOther,
			OfficerTitle:      t.OfficerTitle,
			SecurityTitle:     t.SecurityTitle,
			TransactionDate:   t.TransactionDate,
			FormType:          t.FormType,
			Code:              t.Code,
			EquitySwap:        t.EquitySwap,
			Shares:            t.Shares,
			AcquiredDisposed:  t.AcquiredDisposed,
			SharesAfter:       t.SharesAfter,
			Ownership:         t.Ownership,
			DocumentURL:       t.DocumentURL,
			Hash:              t.Hash,
		}
		if e, ok := bySource[t.Hash]; ok {
			r.Open, r.High, r.Low, r.Close, r.AdjClose = e.Open, e.High, e.Low, e.Close, e.AdjClose
			r.Volume = e.Volume
			r.DailyReturn, r.PercentChange = e.DailyReturn, e.PercentChange
			r.Range, r.AveragePrice, r.NotionalValue = e.Range, e.AveragePrice, e.NotionalValue
		}
		rows = append(rows, r)
	}
	return rows
}
