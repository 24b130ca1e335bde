package model

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeEID strips surrounding space and leading zeros from a filer identifier.
func NormalizeEID(s string) string {
	s = strings.TrimSpace(s)
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		return "0"
	}
	return t
}

// RawTransaction is one transaction block exactly as read from a filing document.
// Every leaf is text; a missing leaf is the empty string.
type RawTransaction struct {
	EID               string
	IssuerEID         string
	IssuerName        string
	Ticker            string
	OwnerName         string
	OwnerEID          string
	IsDirector        string
	IsOfficer         string
	IsTenPercentOwner string
	IsOther           string
	OfficerTitle      string
	SecurityTitle     string
	TransactionDate   string
	FormType          string
	Code              string
	EquitySwap        string
	Shares            string
	AcquiredDisposed  string
	SharesAfter       string
	Ownership         string
	DocumentURL       string
}

// Transaction is a normalized, typed transaction record. Hash is its dedup key.
type Transaction struct {
	EID               string  `json:"parent_eid" parquet:"parent_eid"`
	IssuerEID         string  `json:"issuer_eid" parquet:"issuer_eid"`
	IssuerName        string  `json:"issuer_name" parquet:"issuer_name"`
	Ticker            *string `json:"ticker" parquet:"ticker,optional"`
	OwnerName         string  `json:"owner_name" parquet:"owner_name"`
	OwnerEID          string  `json:"owner_eid" parquet:"owner_eid"`
	IsDirector        bool    `json:"is_director" parquet:"is_director"`
	IsOfficer         bool    `json:"is_officer" parquet:"is_officer"`
	IsTenPercentOwner bool    `json:"is_ten_percent_owner" parquet:"is_ten_percent_owner"`
	IsOther           bool    `json:"is_other" parquet:"is_other"`
	OfficerTitle      *string `json:"officer_title" parquet:"officer_title,optional"`
	SecurityTitle     string  `json:"security_title" parquet:"security_title"`
	TransactionDate   string  `json:"transaction_date" parquet:"transaction_date"`
	FormType          string  `json:"form_type" parquet:"form_type"`
	Code              string  `json:"code" parquet:"code"`
	EquitySwap        bool    `json:"equity_swap" parquet:"equity_swap"`
	Shares            float64 `json:"shares" parquet:"shares"`
	AcquiredDisposed  string  `json:"acquired_disposed_code" parquet:"acquired_disposed_code"`
	SharesAfter       float64 `json:"shares_owned_following_transaction" parquet:"shares_owned_following_transaction"`
	Ownership         string  `json:"direct_or_indirect_ownership" parquet:"direct_or_indirect_ownership"`
	DocumentURL       string  `json:"document_url" parquet:"document_url"`
	Hash              string  `json:"hash" parquet:"hash"`
}

// Normalize coerces the text leaves of raw into typed fields and computes the content hash.
func Normalize(raw RawTransaction) Transaction {
	t := Transaction{
		EID:               NormalizeEID(raw.EID),
		IssuerEID:         NormalizeEID(raw.IssuerEID),
		IssuerName:        strings.TrimSpace(raw.IssuerName),
		Ticker:            optional(raw.Ticker),
		OwnerName:         strings.TrimSpace(raw.OwnerName),
		OwnerEID:          NormalizeEID(raw.OwnerEID),
		IsDirector:        ParseFlag(raw.IsDirector),
		IsOfficer:         ParseFlag(raw.IsOfficer),
		IsTenPercentOwner: ParseFlag(raw.IsTenPercentOwner),
		IsOther:           ParseFlag(raw.IsOther),
		OfficerTitle:      optional(raw.OfficerTitle),
		SecurityTitle:     strings.TrimSpace(raw.SecurityTitle),
		TransactionDate:   normalizeDate(raw.TransactionDate),
		FormType:          strings.TrimSpace(raw.FormType),
		Code:              strings.TrimSpace(raw.Code),
		EquitySwap:        ParseFlag(raw.EquitySwap),
		Shares:            ParseNumber(raw.Shares),
		AcquiredDisposed:  strings.TrimSpace(raw.AcquiredDisposed),
		SharesAfter:       ParseNumber(raw.SharesAfter),
		Ownership:         strings.TrimSpace(raw.Ownership),
		DocumentURL:       strings.TrimSpace(raw.DocumentURL),
	}
	if t.Ticker != nil {
		upper := strings.ToUpper(*t.Ticker)
		t.Ticker = &upper
	}
	t.Hash = t.ContentHash()
	return t
}

// Fields lists every attribute of the record except the hash itself.
func (t Transaction) Fields() []Field {
	return []Field{
		{"parent_eid", Text(t.EID)},
		{"issuer_eid", Text(t.IssuerEID)},
		{"issuer_name", Text(t.IssuerName)},
		{"ticker", OptionalText(t.Ticker)},
		{"owner_name", Text(t.OwnerName)},
		{"owner_eid", Text(t.OwnerEID)},
		{"is_director", Flag(t.IsDirector)},
		{"is_officer", Flag(t.IsOfficer)},
		{"is_ten_percent_owner", Flag(t.IsTenPercentOwner)},
		{"is_other", Flag(t.IsOther)},
		{"officer_title", OptionalText(t.OfficerTitle)},
		{"security_title", Text(t.SecurityTitle)},
		{"transaction_date", Text(t.TransactionDate)},
		{"form_type", Text(t.FormType)},
		{"code", Text(t.Code)},
		{"equity_swap", Flag(t.EquitySwap)},
		{"shares", Number(t.Shares)},
		{"acquired_disposed_code", Text(t.AcquiredDisposed)},
		{"shares_owned_following_transaction", Number(t.SharesAfter)},
		{"direct_or_indirect_ownership", Text(t.Ownership)},
		{"document_url", Text(t.DocumentURL)},
	}
}

// ContentHash digests Fields; it does not depend on field order.
func (t Transaction) ContentHash() string { return HashFields(t.Fields()) }

// RowHash implements the store row contract.
func (t Transaction) RowHash() string { return t.Hash }

// RowDate implements the store row contract.
func (t Transaction) RowDate() string { return t.TransactionDate }

// OperationID returns the filing identifier embedded in DocumentURL:
// .../<EID>/<OID>/<document>.xml.
func (t Transaction) OperationID() string {
	return OperationIDFromURL(t.DocumentURL)
}

// OperationIDFromURL returns the second-to-last path segment of a document URL.
func OperationIDFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// ParseFlag reads the boolean encodings used in filings ("1", "true", "Y").
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "y", "yes", "x":
		return true
	default:
		return false
	}
}

// ParseNumber reads a numeric leaf. Empty, malformed or out-of-range input yields 0.
func ParseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if !Finite(f) {
		return 0
	}
	return f
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// normalizeDate keeps the calendar-day prefix of timestamps such as 2021-02-01-05:00.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}
