package filings

import (
	"context"
	"errors"
	"sort"

	"github.com/samber/lo"

	"insider-data/internal/model"
	"insider-data/internal/provider/edgar"
	"insider-data/internal/slogx"
)

// Discovery builds the per-run work set of filing identifiers.
type Discovery struct {
	archive Archive
	history History
}

func NewDiscovery(archive Archive, history History) *Discovery {
	return &Discovery{archive: archive, history: history}
}

// Discover lists eid's filings dated inside w (all of them when w is nil) and
// drops those already persisted or already inspected. The result is sorted.
// An unparseable listing yields an empty set, not an error.
func (d *Discovery) Discover(ctx context.Context, eid string, w *model.Window) ([]string, error) {
	log := slogx.FromContext(ctx)

	entries, err := d.archive.Listing(ctx, eid)
	if errors.Is(err, edgar.ErrNoListing) {
		log.Warn("directory listing not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	listed := lo.Uniq(lo.FilterMap(entries, func(e edgar.ListingEntry, _ int) (string, bool) {
		return e.OID, w.Contains(e.Date)
	}))

	processed, err := d.history.ProcessedOIDs(ctx, eid)
	if err != nil {
		return nil, err
	}
	seen, err := d.history.Seen(ctx, eid)
	if err != nil {
		return nil, err
	}
	done := lo.Associate(processed, func(oid string) (string, struct{}) { return oid, struct{}{} })

	work := lo.Reject(listed, func(oid string, _ int) bool {
		_, p := done[oid]
		_, s := seen[oid]
		return p || s
	})
	sort.Strings(work)

	log.Info("found new operations", "count", len(work), "listed", len(listed), "window", w.String())
	return work, nil
}
