// Package edgartest serves a fake filing archive over httptest for tests.
package edgartest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const archivePath = "/Archives/edgar/data/"

// ThrottlePage is what the archive returns when a client exceeds its request rate.
const ThrottlePage = `<html><head><title>SEC.gov | Request Rate Threshold Exceeded</title></head>
<body><h1>Your Request Originates from an Undeclared Automated Tool</h1></body></html>`

// Txn is one derivative transaction block of a fake ownership document.
type Txn struct {
	SecurityTitle string
	Date          string
	Code          string
	Shares        string
	SharesAfter   string
}

// Filing is one filing directory under an entity.
type Filing struct {
	OID     string
	Date    string // listing date, YYYY-MM-DD
	Ticker  string
	Owner   string
	Txns    []Txn
	NoIndex bool // directory page carries no index link
}

// Server is a fake archive. Safe for concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	filings  map[string][]Filing
	throttle int
	hits     map[string]int
	headers  []http.Header
}

// NewServer starts a fake archive closed at test cleanup.
func NewServer(t testing.TB) *Server {
	s := &Server{filings: map[string][]Filing{}, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// AddFiling registers a filing under eid.
func (s *Server) AddFiling(eid string, f Filing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filings[eid] = append(s.filings[eid], f)
}

// ThrottleNext makes the next n requests return the throttle page.
func (s *Server) ThrottleNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.throttle = n
}

// Hits returns how often path was requested.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Requests returns the total number of requests served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// LastHeaders returns the headers of the most recent request.
func (s *Server) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.headers) == 0 {
		return nil
	}
	return s.headers[len(s.headers)-1]
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.headers = append(s.headers, r.Header.Clone())
	throttled := s.throttle > 0
	if throttled {
		s.throttle--
	}
	s.mu.Unlock()

	if throttled {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, ThrottlePage)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, archivePath)
	if rest == r.URL.Path {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	eid := parts[0]

	switch len(parts) {
	case 1:
		s.writeListing(w, eid)
		return
	case 2:
		if f, ok := s.filing(eid, parts[1]); ok {
			writeFilingDir(w, eid, f)
			return
		}
	case 3:
		f, ok := s.filing(eid, parts[1])
		if !ok {
			break
		}
		switch parts[2] {
		case f.OID + "-index.html":
			writeIndex(w, eid, f)
			return
		case "form4.xml":
			writeDocument(w, eid, f)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) filing(eid, oid string) (Filing, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.filings[eid] {
		if f.OID == oid {
			return f, true
		}
	}
	return Filing{}, false
}

func (s *Server) writeListing(w http.ResponseWriter, eid string) {
	s.mu.Lock()
	filings := append([]Filing(nil), s.filings[eid]...)
	s.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, `<html><head><title>SEC.gov | %s</title></head><body>`, archivePath+eid)
	fmt.Fprintf(&b, `<table summary="Directory Listing for %s%s"><tr><th>Name</th><th>Size</th><th>Last Modified</th></tr>`, archivePath, eid)
	for _, f := range filings {
		fmt.Fprintf(&b, `<tr><td><a href="%s%s/%s">%s</a></td><td></td><td>%s 16:31:02</td></tr>`,
			archivePath, eid, f.OID, f.OID, f.Date)
	}
	b.WriteString(`</table></body></html>`)
	fmt.Fprint(w, b.String())
}

func writeFilingDir(w http.ResponseWriter, eid string, f Filing) {
	dir := archivePath + eid + "/" + f.OID
	var b strings.Builder
	fmt.Fprintf(&b, `<html><head><title>SEC.gov | %s</title></head><body>`, dir)
	fmt.Fprintf(&b, `<table summary="Directory Listing for %s">`, dir)
	fmt.Fprintf(&b, `<tr><td><a href="%s/form4.xml">form4.xml</a></td></tr>`, dir)
	if !f.NoIndex {
		fmt.Fprintf(&b, `<tr><td><a href="%s/%s-index.html">%s-index.html</a></td></tr>`, dir, f.OID, f.OID)
	}
	b.WriteString(`</table></body></html>`)
	fmt.Fprint(w, b.String())
}

func writeIndex(w http.ResponseWriter, eid string, f Filing) {
	dir := archivePath + eid + "/" + f.OID
	var b strings.Builder
	b.WriteString(`<html><head><title>EDGAR Filing Documents</title></head><body>`)
	b.WriteString(`<table class="tableFile" summary="Document Format Files">`)
	b.WriteString(`<tr><th>Seq</th><th>Description</th><th>Document</th><th>Type</th><th>Size</th></tr>`)
	fmt.Fprintf(&b, `<tr><td>1</td><td>FORM 4</td><td><a href="%s/xslF345X03/form4.xml">form4.html</a></td><td>4</td><td>3 KB</td></tr>`, dir)
	fmt.Fprintf(&b, `<tr><td>1</td><td>FORM 4</td><td><a href="%s/form4.xml">form4.xml</a></td><td>4</td><td>3 KB</td></tr>`, dir)
	fmt.Fprintf(&b, `<tr><td>2</td><td>EXHIBIT</td><td><a href="%s/ex24.xml">ex24.xml</a></td><td>EX-24</td><td>1 KB</td></tr>`, dir)
	b.WriteString(`</table></body></html>`)
	fmt.Fprint(w, b.String())
}

func writeDocument(w http.ResponseWriter, eid string, f Filing) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ownershipDocument><schemaVersion>X0306</schemaVersion><documentType>4</documentType>`)
	fmt.Fprintf(&b, `<issuer><issuerCik>000%s</issuerCik><issuerName>ISSUER %s</issuerName><issuerTradingSymbol>%s</issuerTradingSymbol></issuer>`,
		eid, html.EscapeString(eid), html.EscapeString(f.Ticker))
	owner := f.Owner
	if owner == "" {
		owner = "Doe John"
	}
	fmt.Fprintf(&b, `<reportingOwner><reportingOwnerId><rptOwnerCik>0001234567</rptOwnerCik><rptOwnerName>%s</rptOwnerName></reportingOwnerId>`, html.EscapeString(owner))
	b.WriteString(`<reportingOwnerRelationship><isDirector>1</isDirector><isOfficer>0</isOfficer><isTenPercentOwner>0</isTenPercentOwner><isOther>0</isOther></reportingOwnerRelationship></reportingOwner>`)
	b.WriteString(`<derivativeTable>`)
	for _, t := range f.Txns {
		b.WriteString(`<derivativeTransaction>`)
		fmt.Fprintf(&b, `<securityTitle><value>%s</value></securityTitle>`, html.EscapeString(t.SecurityTitle))
		fmt.Fprintf(&b, `<transactionDate><value>%s</value></transactionDate>`, t.Date)
		fmt.Fprintf(&b, `<transactionCoding><transactionFormType>4</transactionFormType><transactionCode>%s</transactionCode><equitySwapInvolved>0</equitySwapInvolved></transactionCoding>`, t.Code)
		b.WriteString(`<transactionAmounts>`)
		if t.Shares != "" {
			fmt.Fprintf(&b, `<transactionShares><value>%s</value></transactionShares>`, t.Shares)
		}
		b.WriteString(`<transactionAcquiredDisposedCode><value>A</value></transactionAcquiredDisposedCode></transactionAmounts>`)
		if t.SharesAfter != "" {
			fmt.Fprintf(&b, `<postTransactionAmounts><sharesOwnedFollowingTransaction><value>%s</value></sharesOwnedFollowingTransaction></postTransactionAmounts>`, t.SharesAfter)
		}
		b.WriteString(`<ownershipNature><directOrIndirectOwnership><value>D</value></directOrIndirectOwnership></ownershipNature>`)
		b.WriteString(`</derivativeTransaction>`)
	}
	b.WriteString(`</derivativeTable></ownershipDocument>`)
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprint(w, b.String())
}
