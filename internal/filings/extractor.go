package filings

import (
	"context"
	"errors"
	"math"
	"time"

	"insider-data/internal/model"
	"insider-data/internal/pacing"
	"insider-data/internal/provider/edgar"
	"insider-data/internal/slogx"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Extraction is what one pass over a work set produced.
type Extraction struct {
	Records []model.RawTransaction
	// Seen lists every filing that was inspected to the end, with or without records.
	Seen []string
	// Abandoned lists filings without an index page; they are also in Seen.
	Abandoned []string
	// Failed lists filings whose fetch failed; they are retried next run.
	Failed []string
}

// Extractor walks each filing from its directory to its structured documents.
// Filings are processed one at a time; between two filings it sleeps for the
// delay chosen by a per-call pacing controller.
type Extractor struct {
	archive Archive

	DelayUnit time.Duration
	Sleep     Sleeper
	Now       func() time.Time
}

func NewExtractor(archive Archive, delayUnit time.Duration) *Extractor {
	if delayUnit <= 0 {
		delayUnit = time.Second
	}
	return &Extractor{archive: archive, DelayUnit: delayUnit, Sleep: SleepContext, Now: time.Now}
}

// Extract processes oids in order. It returns early only when ctx is done.
func (x *Extractor) Extract(ctx context.Context, eid string, oids []string) (Extraction, error) {
	log := slogx.FromContext(ctx)
	pacer := pacing.New()
	var out Extraction

	for i, oid := range oids {
		start := x.Now()
		log.Info("scraping progress", "percent", int(math.Round(float64(i+1)/float64(len(oids))*100)), "oid", oid)

		records, err := x.ExtractOne(ctx, eid, oid)
		switch {
		case ctx.Err() != nil:
			return out, ctx.Err()
		case errors.Is(err, edgar.ErrNoIndex):
			log.Debug("no index page, filing abandoned", "oid", oid)
			out.Abandoned = append(out.Abandoned, oid)
			out.Seen = append(out.Seen, oid)
		case err != nil:
			log.Warn("filing failed", "oid", oid, "error", err)
			out.Failed = append(out.Failed, oid)
		default:
			out.Records = append(out.Records, records...)
			out.Seen = append(out.Seen, oid)
		}

		switch pacer.Observe(x.Now().Sub(start)) {
		case pacing.Raised:
			log.Info("increase delay", "delay", pacer.Delay(), "variance", pacer.Variance())
		case pacing.Lowered:
			log.Info("decrease delay", "delay", pacer.Delay(), "variance", pacer.Variance())
		}
		if i < len(oids)-1 && pacer.Delay() > 0 {
			if err := x.Sleep(ctx, pacer.DelayDuration(x.DelayUnit)); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// ExtractOne returns the transactions of one filing. A filing without an
// index page returns edgar.ErrNoIndex; one without a matching document
// returns no records and no error.
func (x *Extractor) ExtractOne(ctx context.Context, eid, oid string) ([]model.RawTransaction, error) {
	indexURL, err := x.archive.IndexURL(ctx, eid, oid)
	if err != nil {
		return nil, err
	}
	docs, err := x.archive.DocumentURLs(ctx, eid, oid, indexURL)
	if err != nil {
		return nil, err
	}
	var out []model.RawTransaction
	for _, doc := range docs {
		records, err := x.archive.Transactions(ctx, eid, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}
