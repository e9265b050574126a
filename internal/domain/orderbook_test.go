package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBook_BestBid_Empty(t *testing.T) {
	assert.Equal(t, 0.0, OrderBookSnapshot{}.BestBid())
}

func TestOrderBook_BestAsk_Empty(t *testing.T) {
	assert.Equal(t, 0.0, OrderBookSnapshot{}.BestAsk())
}

func TestOrderBook_Midpoint(t *testing.T) {
	ob := OrderBookSnapshot{
		Bids: []PriceLevel{{Price: 0.70, Amount: 100}},
		Asks: []PriceLevel{{Price: 0.72, Amount: 150}},
	}
	assert.InDelta(t, 0.71, ob.Midpoint(), 0.0001)
	assert.InDelta(t, 0.71, ob.Mid(), 0.0001)
	assert.InDelta(t, 0.02, ob.Spread(), 0.0001)
}

func TestOrderBook_Mid_PrefersSuppliedMid(t *testing.T) {
	ob := OrderBookSnapshot{
		MidPrice: 0.705,
		Bids:     []PriceLevel{{Price: 0.70, Amount: 100}},
		Asks:     []PriceLevel{{Price: 0.72, Amount: 150}},
	}
	assert.Equal(t, 0.705, ob.Mid())
}

func TestOrderBook_TotalLiquidity(t *testing.T) {
	ob := OrderBookSnapshot{
		Bids: []PriceLevel{{Price: 0.99, Amount: 100}, {Price: 0.98, Amount: 50}},
		Asks: []PriceLevel{{Price: 1.01, Amount: 25}},
	}
	assert.InDelta(t, 175.0, ob.TotalLiquidity(), 1e-9)
}

func TestOrderBook_DepthWithin(t *testing.T) {
	ob := OrderBookSnapshot{
		MidPrice: 1.0,
		Bids:     []PriceLevel{{Price: 0.99, Amount: 100}, {Price: 0.90, Amount: 500}},
		Asks:     []PriceLevel{{Price: 1.01, Amount: 80}, {Price: 1.20, Amount: 500}},
	}
	assert.InDelta(t, 180.0, ob.DepthWithin(0.02), 1e-9)
}

func TestOrderBook_Validate(t *testing.T) {
	valid := OrderBookSnapshot{
		Bids: []PriceLevel{{Price: 0.99, Amount: 1}},
		Asks: []PriceLevel{{Price: 1.01, Amount: 1}},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]OrderBookSnapshot{
		"no bids":  {Asks: valid.Asks},
		"no asks":  {Bids: valid.Bids},
		"zero mid": {MidPrice: -1, Bids: []PriceLevel{{Price: 0, Amount: 1}}, Asks: []PriceLevel{{Price: 0, Amount: 1}}},
		"negative": {Bids: []PriceLevel{{Price: 0.99, Amount: -1}}, Asks: valid.Asks},
	}
	for name, ob := range cases {
		t.Run(name, func(t *testing.T) {
			err := ob.Validate()
			assert.True(t, errors.Is(err, ErrInvalidOrderBook), "got %v", err)
		})
	}
}

func TestOrders_WeightedAvgPriceAndSlippage(t *testing.T) {
	orders := Orders{{Price: 0.99, Amount: 100}, {Price: 0.97, Amount: 300}}
	assert.InDelta(t, 0.975, orders.WeightedAvgPrice(), 1e-9)
	assert.InDelta(t, 0.025, orders.Slippage(1.0), 1e-9)
	assert.InDelta(t, 400.0, orders.TotalAmount(), 1e-9)
	assert.Equal(t, 0.0, Orders{}.Slippage(1.0))
}

func TestOrders_CloneIsIndependent(t *testing.T) {
	orders := Orders{{Price: 1, Amount: 1}}
	c := orders.Clone()
	c[0].Amount = 5
	assert.Equal(t, 1.0, orders[0].Amount)
}
