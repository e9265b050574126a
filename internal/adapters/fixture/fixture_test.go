package fixture_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/allocengine/internal/adapters/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	src, err := fixture.Load("testdata/market.yaml")
	require.NoError(t, err)

	snap, err := src.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10000.0, snap.Capital)
	assert.Equal(t, 5000.0, snap.Target)
	assert.Equal(t, 0.96, snap.Regime.Volatility)
	assert.Equal(t, 0.65, snap.Regime.SentimentOrNeutral())
	assert.True(t, snap.Regime.IsEcoAsset)

	require.NoError(t, snap.Book.Validate())
	assert.Equal(t, 1.0, snap.Book.Mid())
	assert.Len(t, snap.Book.Bids, 3)
	assert.Equal(t, 0.999, snap.Book.BestBid())

	require.Len(t, snap.Pools, 2)
	assert.Equal(t, "XRP/RLUSD", snap.Pools[0].Name)
	assert.True(t, snap.Pools[0].IsStable)
	assert.Equal(t, 0.8, snap.Pools[1].CorrelationWithReference)

	require.Len(t, snap.Books, 2)
	assert.Equal(t, "XRP/RLUSD", snap.Books[0].ID)
	assert.Equal(t, 2500.0, snap.Books[0].Target)
	assert.Equal(t, 0.52, snap.Books[0].Book.Mid())
	assert.Len(t, snap.Books[0].Book.Asks, 10)
	assert.Equal(t, "book-2", snap.Books[1].ID)
	assert.Equal(t, 5000.0, snap.Books[1].Target)
	assert.Equal(t, 1.0, snap.Books[1].Book.Mid())
}

func TestSnapshot_ReturnsCopy(t *testing.T) {
	src, err := fixture.Load("testdata/market.yaml")
	require.NoError(t, err)

	a, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	a.Pools[0].APY = 99

	b, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.45, b.Pools[0].APY)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := fixture.Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestParse_RejectsOutOfRangeRegime(t *testing.T) {
	cases := map[string]string{
		"volatility":            "regime: { volatility: 1.5 }",
		"market change":         "regime: { external_market_change: -2 }",
		"negative correlation":  "regime: { external_correlation: -0.2 }",
		"correlation above one": "regime: { external_correlation: 1.1 }",
		"sentiment":             "regime: { sentiment: 1.2 }",
		"bad yaml":              "regime: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fixture.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_SentimentAbsentIsNeutral(t *testing.T) {
	src, err := fixture.Parse([]byte("capital: 1\nregime: { volatility: 0.2 }\n"))
	require.NoError(t, err)
	snap, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Regime.Sentiment)
	assert.Equal(t, 0.5, snap.Regime.SentimentOrNeutral())
}
