package domain

import "math"

// Order is one limit order of a placement plan.
type Order struct {
	Price  float64
	Amount float64
}

// Orders is a candidate order set.
type Orders []Order

// TotalAmount sums the order amounts.
func (s Orders) TotalAmount() float64 {
	var total float64
	for _, o := range s {
		total += o.Amount
	}
	return total
}

// WeightedAvgPrice returns the amount-weighted average price, or 0 for an empty set.
func (s Orders) WeightedAvgPrice() float64 {
	var notional, amount float64
	for _, o := range s {
		notional += o.Price * o.Amount
		amount += o.Amount
	}
	if amount <= 0 {
		return 0
	}
	return notional / amount
}

// Slippage returns |weighted_avg_price - mid| / mid.
func (s Orders) Slippage(mid float64) float64 {
	if mid <= 0 || len(s) == 0 {
		return 0
	}
	return math.Abs(s.WeightedAvgPrice()-mid) / mid
}

// Clone returns an independent copy of the set.
func (s Orders) Clone() Orders {
	out := make(Orders, len(s))
	copy(out, s)
	return out
}

// OrderPlan is the output of one order placement optimization.
type OrderPlan struct {
	Orders               Orders
	Seed                 Orders // analytic starting point, kept for inspection
	MidPrice             float64
	Target               float64
	Score                float64
	Slippage             float64
	ExecutionProbability float64
	Iterations           int
	Reheats              int
	Accepted             int
}
