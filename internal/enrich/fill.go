package enrich

import (
	"sort"
	"time"

	"insider-data/internal/model"
)

// MaxCarryDays bounds how far past the last bar a series is carried forward:
// a Friday close covers the weekend and a Monday holiday.
const MaxCarryDays = 4

// FillCalendar expands one ticker's trading-day bars to every calendar day
// from the first bar to carryDays after the last one. A missing day repeats
// the previous session's close as open, high, low and close, keeps its
// adjusted close, and has volume 0. The result is keyed by date.
func FillCalendar(bars []model.Bar, carryDays int) map[string]model.Bar {
	if len(bars) == 0 {
		return nil
	}
	byDate := make(map[string]model.Bar, len(bars))
	for _, b := range bars {
		byDate[b.Date()] = b
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	first, _ := time.Parse(model.DateLayout, dates[0])
	last, _ := time.Parse(model.DateLayout, dates[len(dates)-1])
	if carryDays > 0 {
		last = last.AddDate(0, 0, carryDays)
	}

	out := make(map[string]model.Bar, int(last.Sub(first).Hours()/24)+1)
	var prev model.Bar
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(model.DateLayout)
		if b, ok := byDate[key]; ok {
			out[key] = b
			prev = b
			continue
		}
		out[key] = model.Bar{
			Timestamp: day.UnixMilli(),
			Open:      prev.Close,
			High:      prev.Close,
			Low:       prev.Close,
			Close:     prev.Close,
			AdjClose:  prev.AdjClose,
			Volume:    0,
		}
	}
	return out
}
