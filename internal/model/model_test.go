package model

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRaw() RawTransaction {
	return RawTransaction{
		EID:               "0001018724",
		IssuerEID:         "0001018724",
		IssuerName:        "AMAZON COM INC",
		Ticker:            "amzn",
		OwnerName:         "Doe John",
		OwnerEID:          "0001234567",
		IsDirector:        "1",
		IsOfficer:         "0",
		IsTenPercentOwner: "false",
		IsOther:           "",
		OfficerTitle:      "",
		SecurityTitle:     "Stock Option",
		TransactionDate:   "2021-02-01",
		FormType:          "4",
		Code:              "A",
		EquitySwap:        "0",
		Shares:            "100",
		AcquiredDisposed:  "A",
		SharesAfter:       "1,250.50",
		Ownership:         "D",
		DocumentURL:       "https://www.sec.gov/Archives/edgar/data/1018724/000102000000000001/form4.xml",
	}
}

func TestNormalizeEID(t *testing.T) {
	assert.Equal(t, "1018724", NormalizeEID("0001018724"))
	assert.Equal(t, "1018724", NormalizeEID(" 1018724 "))
	assert.Equal(t, "0", NormalizeEID("0000"))
	assert.Equal(t, "", NormalizeEID(""))
}

func TestNormalize_CoercesTypes(t *testing.T) {
	tx := Normalize(sampleRaw())

	assert.Equal(t, "1018724", tx.EID)
	require.NotNil(t, tx.Ticker)
	assert.Equal(t, "AMZN", *tx.Ticker)
	assert.True(t, tx.IsDirector)
	assert.False(t, tx.IsOfficer)
	assert.False(t, tx.IsOther)
	assert.Nil(t, tx.OfficerTitle)
	assert.Equal(t, 100.0, tx.Shares)
	assert.Equal(t, 1250.5, tx.SharesAfter)
	assert.Equal(t, "000102000000000001", tx.OperationID())
	assert.NotEmpty(t, tx.Hash)
}

func TestNormalize_MissingSharesDefaultToZero(t *testing.T) {
	raw := sampleRaw()
	raw.Shares = ""
	raw.SharesAfter = "n/a"

	tx := Normalize(raw)
	assert.Equal(t, 0.0, tx.Shares)
	assert.Equal(t, 0.0, tx.SharesAfter)
}

func TestNormalize_OutOfRangeNumberDefaultsToZero(t *testing.T) {
	raw := sampleRaw()
	raw.Shares = "1e400"
	raw.SharesAfter = "-1e400"

	var tx Transaction
	require.NotPanics(t, func() { tx = Normalize(raw) })
	assert.Equal(t, 0.0, tx.Shares)
	assert.Equal(t, 0.0, tx.SharesAfter)
	assert.NotEmpty(t, tx.Hash)
}

func TestNumber_NonFinite(t *testing.T) {
	assert.Equal(t, "+Inf", Number(math.Inf(1)))
	assert.Equal(t, "-Inf", Number(math.Inf(-1)))
	assert.Equal(t, "NaN", Number(math.NaN()))
	assert.Equal(t, "100", Number(100.0))
	assert.False(t, Finite(math.Inf(1)))
	assert.True(t, Finite(0))
}

func TestContentHash_Deterministic(t *testing.T) {
	a := Normalize(sampleRaw())
	b := Normalize(sampleRaw())
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Hash, a.ContentHash())

	raw := sampleRaw()
	raw.Shares = "100.000"
	assert.Equal(t, a.Hash, Normalize(raw).Hash, "canonical numeric text")

	raw.Shares = "101"
	assert.NotEqual(t, a.Hash, Normalize(raw).Hash)
}

func TestHashFields_IndependentOfOrder(t *testing.T) {
	fields := Normalize(sampleRaw()).Fields()
	want := HashFields(fields)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([]Field, len(fields))
		copy(shuffled, fields)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, HashFields(shuffled))
	}
}

func TestHashFields_NullDiffersFromText(t *testing.T) {
	null := "null"
	a := HashFields([]Field{{"ticker", OptionalText(nil)}})
	b := HashFields([]Field{{"ticker", OptionalText(&null)}})
	assert.NotEqual(t, a, b)
}

func TestEnrichedHash_TiesToSource(t *testing.T) {
	p := 10.0
	a := Enriched{EID: "1", SourceHash: "a", Close: &p}
	b := Enriched{EID: "1", SourceHash: "b", Close: &p}
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())
	assert.True(t, a.Priced())
	assert.False(t, Enriched{}.Priced())
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 1.2346, Round4(1.23456))
	assert.Equal(t, -0.5, Round4(-0.5))
	assert.Equal(t, 3.0, Round4(3))
	assert.True(t, math.IsInf(Round4(math.Inf(1)), 1))
	assert.True(t, math.IsNaN(Round4(math.NaN())))
}

func TestBarDate(t *testing.T) {
	ts := time.Date(2021, 1, 8, 5, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, "2021-01-08", Bar{Timestamp: ts}.Date())
}

func TestWindowContains(t *testing.T) {
	w, err := NewWindow("2021-01-01", "2021-03-31")
	require.NoError(t, err)

	assert.True(t, w.Contains("2021-01-01"))
	assert.True(t, w.Contains("2021-03-31"))
	assert.True(t, w.Contains("2021-02-15-05:00"))
	assert.False(t, w.Contains("2020-12-31"))
	assert.False(t, w.Contains("2021-04-01"))
	assert.False(t, w.Contains(""))

	var unbounded *Window
	assert.True(t, unbounded.Contains(""))
	assert.Equal(t, "unbounded", unbounded.String())
}

func TestNewWindow_RejectsInverted(t *testing.T) {
	_, err := NewWindow("2021-03-01", "2021-01-01")
	assert.Error(t, err)
}

func TestResolveWindow(t *testing.T) {
	now := time.Date(2021, 6, 30, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end string
		days       int
		want       string
	}{
		{"both", "2021-01-01", "2021-03-31", 0, "2021-01-01..2021-03-31"},
		{"start plus days", "2021-01-01", "", 10, "2021-01-01..2021-01-11"},
		{"start only", "2021-01-01", "", 0, "2021-01-01..2021-06-30"},
		{"end only", "", "2021-03-31", 0, "1990-01-01..2021-03-31"},
		{"end plus days", "", "2021-03-31", 30, "2021-03-01..2021-03-31"},
		{"days only", "", "", 30, "2021-05-31..2021-06-30"},
		{"nothing", "", "", 0, "unbounded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ResolveWindow(tt.start, tt.end, tt.days, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.String())
		})
	}

	_, err := ResolveWindow("2021-13-01", "", 0, now)
	assert.Error(t, err)
}
