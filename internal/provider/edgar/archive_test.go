package edgar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-data/internal/provider/edgar/edgartest"
)

func TestArchiveWalk(t *testing.T) {
	srv := edgartest.NewServer(t)
	srv.AddFiling("1018724", edgartest.Filing{
		OID: "000102000000000001", Date: "2021-02-03", Ticker: "AMZN",
		Txns: []edgartest.Txn{{SecurityTitle: "Stock Option", Date: "2021-02-01", Code: "A", Shares: "100"}},
	})
	srv.AddFiling("1018724", edgartest.Filing{OID: "000102000000000002", Date: "2021-03-01", NoIndex: true})
	c := testClient(srv.URL)
	ctx := context.Background()

	entries, err := c.Listing(ctx, "1018724")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	idx, err := c.IndexURL(ctx, "1018724", "000102000000000001")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/Archives/edgar/data/1018724/000102000000000001/000102000000000001-index.html", idx)

	docs, err := c.DocumentURLs(ctx, "1018724", "000102000000000001", idx)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/Archives/edgar/data/1018724/000102000000000001/form4.xml"}, docs)

	rows, err := c.Transactions(ctx, "1018724", docs[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "AMZN", rows[0].Ticker)
	assert.Equal(t, "100", rows[0].Shares)

	_, err = c.IndexURL(ctx, "1018724", "000102000000000002")
	assert.ErrorIs(t, err, ErrNoIndex)
}
