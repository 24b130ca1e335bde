package edgar

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrNoListing means the entity listing page carried no directory table.
	ErrNoListing = errors.New("edgar: directory listing not found")
	// ErrNoIndex means a filing directory has no index page link.
	ErrNoIndex = errors.New("edgar: filing index link not found")
)

const (
	indexSuffix    = "-index.html"
	documentSuffix = ".xml"
	formCode       = "4"
)

// ListingEntry is one row of an entity directory listing.
type ListingEntry struct {
	OID  string
	Date string // YYYY-MM-DD, empty when the row has no date column
}

func findSummaryTable(doc *goquery.Document, summary string) *goquery.Selection {
	return doc.Find("table").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("summary")
		return strings.TrimSpace(v) == summary
	}).First()
}

func lastSegment(href string) string {
	return path.Base(strings.TrimRight(href, "/"))
}

// ParseListing extracts (OID, date) pairs from an entity directory listing.
// Rows without a link are skipped; duplicates are kept in page order.
func ParseListing(body []byte, eid string) ([]ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	table := findSummaryTable(doc, "Directory Listing for "+ArchivePath+eid)
	if table.Length() == 0 {
		return nil, ErrNoListing
	}

	var out []ListingEntry
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 2 {
			return
		}
		href, ok := cols.Eq(0).Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		oid := lastSegment(href)
		if oid == "" || oid == "." || oid == "/" {
			return
		}
		var date string
		if cols.Length() > 2 {
			date = strings.TrimSpace(cols.Eq(2).Text())
			if len(date) > 10 {
				date = date[:10]
			}
		}
		out = append(out, ListingEntry{OID: oid, Date: date})
	})
	return out, nil
}

// ParseFilingDir returns the href of the first index page linked from a filing directory.
func ParseFilingDir(body []byte, eid, oid string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse filing dir: %w", err)
	}
	table := findSummaryTable(doc, "Directory Listing for "+ArchivePath+eid+"/"+oid)
	var link string
	table.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.HasSuffix(href, indexSuffix) {
			link = href
			return false
		}
		return true
	})
	if link == "" {
		return "", ErrNoIndex
	}
	return link, nil
}

// ParseDocumentList returns the structured-document hrefs of rows whose type
// column mentions the ownership form code. At most one href is taken per row.
func ParseDocumentList(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document list: %w", err)
	}
	table := doc.Find("table.tableFile").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("summary")
		return v == "Document Format Files"
	}).First()

	var hrefs []string
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 4 || !strings.Contains(cols.Eq(3).Text(), formCode) {
			return
		}
		cols.Eq(2).Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.HasSuffix(href, documentSuffix) {
				hrefs = append(hrefs, href)
				return false
			}
			return true
		})
	})
	return hrefs, nil
}
