package edgar

import (
	"context"

	"github.com/samber/lo"

	"insider-data/internal/model"
)

// Listing fetches and parses the directory listing of eid.
func (c *Client) Listing(ctx context.Context, eid string) ([]ListingEntry, error) {
	body, err := c.Fetch(ctx, c.ListingURL(eid))
	if err != nil {
		return nil, err
	}
	return ParseListing(body, eid)
}

// IndexURL fetches a filing directory and returns the absolute URL of its index page.
func (c *Client) IndexURL(ctx context.Context, eid, oid string) (string, error) {
	dir := c.FilingDirURL(eid, oid)
	body, err := c.Fetch(ctx, dir)
	if err != nil {
		return "", err
	}
	href, err := ParseFilingDir(body, eid, oid)
	if err != nil {
		return "", err
	}
	return c.ResolveURL(dir, href), nil
}

// DocumentURLs fetches a filing index and returns the distinct structured
// document URLs it lists for the ownership form.
func (c *Client) DocumentURLs(ctx context.Context, eid, oid, indexURL string) ([]string, error) {
	body, err := c.Fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	hrefs, err := ParseDocumentList(body)
	if err != nil {
		return nil, err
	}
	urls := lo.Map(hrefs, func(h string, _ int) string { return c.DocumentURL(eid, oid, h) })
	return lo.Uniq(urls), nil
}

// Transactions fetches one structured document and parses its transactions.
func (c *Client) Transactions(ctx context.Context, eid, documentURL string) ([]model.RawTransaction, error) {
	body, err := c.Fetch(ctx, documentURL)
	if err != nil {
		return nil, err
	}
	return ParseOwnershipDocument(body, eid, documentURL)
}
