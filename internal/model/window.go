package model

import (
	"fmt"
	"strings"
	"time"
)

// EarliestDate is the start used when only an end date is known.
const EarliestDate = "1990-01-01"

// Window is an inclusive calendar-day range. A nil *Window means unbounded.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow parses two YYYY-MM-DD dates.
func NewWindow(start, end string) (*Window, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("parse end date %q: %w", end, err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return &Window{Start: s, End: e}, nil
}

// Contains reports whether date (YYYY-MM-DD, longer strings are cut) lies in the window.
// Every date is contained in a nil window; an unparseable date is never contained in a bounded one.
func (w *Window) Contains(date string) bool {
	if w == nil {
		return true
	}
	date = strings.TrimSpace(date)
	if len(date) > len(DateLayout) {
		date = date[:len(DateLayout)]
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return !d.Before(w.Start) && !d.After(w.End)
}

// StartDate returns Start as YYYY-MM-DD, or "" for a nil window.
func (w *Window) StartDate() string {
	if w == nil {
		return ""
	}
	return w.Start.Format(DateLayout)
}

// EndDate returns End as YYYY-MM-DD, or "" for a nil window.
func (w *Window) EndDate() string {
	if w == nil {
		return ""
	}
	return w.End.Format(DateLayout)
}

func (w *Window) String() string {
	if w == nil {
		return "unbounded"
	}
	return w.StartDate() + ".." + w.EndDate()
}

// ResolveWindow turns the optional start/end dates and a day range into a window.
//
//	start + days           -> [start, start+days]
//	days only              -> [today-days, today]
//	end (+ days)           -> [end-days, end], or [1990-01-01, end] without days
//	start only             -> [start, today]
//	start + end            -> [start, end]
//	nothing                -> nil (unbounded)
func ResolveWindow(start, end string, daysRange int, now time.Time) (*Window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	today := now.UTC().Format(DateLayout)

	switch {
	case start != "" && end != "":
	case start != "" && daysRange > 0:
		s, err := time.Parse(DateLayout, start)
		if err != nil {
			return nil, fmt.Errorf("parse start date %q: %w", start, err)
		}
		end = s.AddDate(0, 0, daysRange).Format(DateLayout)
	case start != "":
		end = today
	case end != "" && daysRange > 0:
		e, err := time.Parse(DateLayout, end)
		if err != nil {
			return nil, fmt.Errorf("parse end date %q: %w", end, err)
		}
		start = e.AddDate(0, 0, -daysRange).Format(DateLayout)
	case end != "":
		start = EarliestDate
	case daysRange > 0:
		end = today
		start = now.UTC().AddDate(0, 0, -daysRange).Format(DateLayout)
	default:
		return nil, nil
	}
	return NewWindow(start, end)
}
