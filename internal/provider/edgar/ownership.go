package edgar

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"insider-data/internal/model"
)

// ParseOwnershipDocument returns one raw record per derivative transaction in
// an ownership document. Missing leaves come back as empty strings; only an
// unreadable document is an error.
func ParseOwnershipDocument(body []byte, eid, documentURL string) ([]model.RawTransaction, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ownership document: %w", err)
	}

	header := model.RawTransaction{
		EID:               eid,
		IssuerEID:         leaf(doc, "//issuerCik"),
		IssuerName:        leaf(doc, "//issuerName"),
		Ticker:            leaf(doc, "//issuerTradingSymbol"),
		OwnerName:         leaf(doc, "//rptOwnerName"),
		OwnerEID:          leaf(doc, "//rptOwnerCik"),
		IsDirector:        leaf(doc, "//isDirector"),
		IsOfficer:         leaf(doc, "//isOfficer"),
		IsTenPercentOwner: leaf(doc, "//isTenPercentOwner"),
		IsOther:           leaf(doc, "//isOther"),
		OfficerTitle:      leaf(doc, "//officerTitle"),
		DocumentURL:       documentURL,
	}

	var out []model.RawTransaction
	for _, tx := range xmlquery.Find(doc, "//derivativeTransaction") {
		r := header
		r.SecurityTitle = leaf(tx, ".//securityTitle/value")
		r.TransactionDate = leaf(tx, ".//transactionDate/value")
		r.FormType = leaf(tx, ".//transactionCoding/transactionFormType")
		r.Code = leaf(tx, ".//transactionCoding/transactionCode")
		r.EquitySwap = leaf(tx, ".//transactionCoding/equitySwapInvolved")
		r.Shares = leaf(tx, ".//transactionAmounts/transactionShares/value")
		r.AcquiredDisposed = leaf(tx, ".//transactionAmounts/transactionAcquiredDisposedCode/value")
		r.SharesAfter = leaf(tx, ".//postTransactionAmounts/sharesOwnedFollowingTransaction/value")
		r.Ownership = leaf(tx, ".//ownershipNature/directOrIndirectOwnership/value")
		out = append(out, r)
	}
	return out, nil
}

func leaf(n *xmlquery.Node, expr string) string {
	found := xmlquery.FindOne(n, expr)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.InnerText())
}
