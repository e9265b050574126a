package domain

import (
	"fmt"
	"math"
)

// OrderBookSnapshot is an immutable view of one market at one instant.
// The core never mutates a snapshot it receives.
type OrderBookSnapshot struct {
	MidPrice float64      // externally supplied mid; 0 means "derive from the book"
	Bids     []PriceLevel // sorted highest to lowest price
	Asks     []PriceLevel // sorted lowest to highest price
}

// PriceLevel is one price level of the book.
type PriceLevel struct {
	Price  float64 `yaml:"price"`
	Amount float64 `yaml:"amount"`
}

// BestBid returns the highest bid, or 0 when the bid side is empty.
func (ob OrderBookSnapshot) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk returns the lowest ask, or 0 when the ask side is empty.
func (ob OrderBookSnapshot) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint returns the midpoint between best bid and best ask.
func (ob OrderBookSnapshot) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// Mid returns the supplied mid price, falling back to the book midpoint.
func (ob OrderBookSnapshot) Mid() float64 {
	if ob.MidPrice > 0 {
		return ob.MidPrice
	}
	return ob.Midpoint()
}

// Spread returns ask - bid, or 0 if either side is empty.
func (ob OrderBookSnapshot) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// TotalLiquidity sums the amounts resting on both sides of the book.
func (ob OrderBookSnapshot) TotalLiquidity() float64 {
	var total float64
	for _, b := range ob.Bids {
		total += b.Amount
	}
	for _, a := range ob.Asks {
		total += a.Amount
	}
	return total
}

// DepthWithin returns the amount resting within maxDeviation (relative to mid)
// on both sides of the book.
func (ob OrderBookSnapshot) DepthWithin(maxDeviation float64) float64 {
	mid := ob.Mid()
	if mid <= 0 {
		return 0
	}
	var total float64
	for _, b := range ob.Bids {
		if (mid-b.Price)/mid <= maxDeviation {
			total += b.Amount
		}
	}
	for _, a := range ob.Asks {
		if (a.Price-mid)/mid <= maxDeviation {
			total += a.Amount
		}
	}
	return total
}

// Validate checks the preconditions the optimizer relies on.
func (ob OrderBookSnapshot) Validate() error {
	if len(ob.Bids) == 0 || len(ob.Asks) == 0 {
		return fmt.Errorf("%w: bids=%d asks=%d", ErrInvalidOrderBook, len(ob.Bids), len(ob.Asks))
	}
	mid := ob.Mid()
	if mid <= 0 || math.IsNaN(mid) || math.IsInf(mid, 0) {
		return fmt.Errorf("%w: mid price %v", ErrInvalidOrderBook, mid)
	}
	for _, l := range ob.Bids {
		if l.Amount < 0 {
			return fmt.Errorf("%w: negative bid amount at %v", ErrInvalidOrderBook, l.Price)
		}
	}
	for _, l := range ob.Asks {
		if l.Amount < 0 {
			return fmt.Errorf("%w: negative ask amount at %v", ErrInvalidOrderBook, l.Price)
		}
	}
	return nil
}
