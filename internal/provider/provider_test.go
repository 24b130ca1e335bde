package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-data/internal/provider/polygon"
)

func TestNewPriceSeries(t *testing.T) {
	none := NewPriceSeries(polygon.Config{})
	assert.Equal(t, "Unavailable", none.GetName())
	bars, err := none.DailyBars(context.Background(), "AMZN", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.NoError(t, none.Close())

	p := NewPriceSeries(polygon.Config{APIKeys: []string{"k"}})
	assert.Equal(t, "Polygon", p.GetName())
	assert.NoError(t, p.Close())
}
