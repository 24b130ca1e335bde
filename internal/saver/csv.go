package saver

import (
	"encoding/csv"
	"os"
	"strconv"
)

// Separator is the export column separator.
const Separator = '|'

var csvHeader = []string{
	"parent_eid", "issuer_eid", "issuer_name", "ticker", "owner_name", "owner_eid",
	"is_director", "is_officer", "is_ten_percent_owner", "is_other", "officer_title",
	"security_title", "transaction_date", "form_type", "code", "equity_swap", "shares",
	"acquired_disposed_code", "shares_owned_following_transaction", "direct_or_indirect_ownership",
	"document_url", "hash",
	"open", "high", "low", "close", "adj_close", "volume",
	"daily_return", "percent_change", "range", "average_price", "notional_value",
}

// CSVSaver writes rows as pipe-separated CSV with a header line.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = Separator

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.ParentEID, r.IssuerEID, r.IssuerName, strPtr(r.Ticker), r.OwnerName, r.OwnerEID,
			boolStr(r.IsDirector), boolStr(r.IsOfficer), boolStr(r.IsTenPercentOwner), boolStr(r.IsOther), strPtr(r.OfficerTitle),
			r.SecurityTitle, r.TransactionDate, r.FormType, r.Code, boolStr(r.EquitySwap), floatStr(r.Shares),
			r.AcquiredDisposed, floatStr(r.SharesAfter), r.Ownership,
			r.DocumentURL, r.Hash,
			floatPtr(r.Open), floatPtr(r.High), floatPtr(r.Low), floatPtr(r.Close), floatPtr(r.AdjClose), intPtr(r.Volume),
			floatPtr(r.DailyReturn), floatPtr(r.PercentChange), floatPtr(r.Range), floatPtr(r.AveragePrice), floatPtr(r.NotionalValue),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func boolStr(b bool) string { return strconv.FormatBool(b) }

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return floatStr(*f)
}

func intPtr(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}
