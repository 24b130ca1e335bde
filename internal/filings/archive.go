// Package filings discovers new filings of an entity and extracts their
// transactions, pacing itself between filings.
package filings

import (
	"context"

	"insider-data/internal/model"
	"insider-data/internal/provider/edgar"
)

// Archive is the remote filing archive.
type Archive interface {
	Listing(ctx context.Context, eid string) ([]edgar.ListingEntry, error)
	IndexURL(ctx context.Context, eid, oid string) (string, error)
	DocumentURLs(ctx context.Context, eid, oid, indexURL string) ([]string, error)
	Transactions(ctx context.Context, eid, documentURL string) ([]model.RawTransaction, error)
}

// History answers which filings of an entity were handled by earlier runs.
type History interface {
	ProcessedOIDs(ctx context.Context, eid string) ([]string, error)
	Seen(ctx context.Context, eid string) (map[string]struct{}, error)
}

var _ Archive = (*edgar.Client)(nil)
