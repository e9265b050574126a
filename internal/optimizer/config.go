package optimizer

import "time"

// Config holds the tunable constants of the placement optimizer.
// Scoring constants are empirical defaults, not invariants: callers may
// override any of them per call.
type Config struct {
	BaseSpreadBP        float64 // seed spread in basis points before regime scaling
	CorrelationSpreadBP float64 // extra seed spread per unit of external correlation

	MaxIterations      int
	InitialTemperature float64
	CoolingRate        float64
	MinTemperature     float64
	ReheatFraction     float64 // reheat when T < ReheatFraction * InitialTemperature

	EcoBonus                    float64
	ClawbackPenalty             float64
	VolatilityPenalty           float64
	CorrelationPenalty          float64
	CorrelationPenaltyThreshold float64
	ShallownessThreshold        float64 // share of book liquidity before the penalty kicks in

	MinOrders      int
	MaxOrders      int
	MinOrderAmount float64
	PriceStep      float64 // base jitter as a fraction of mid

	RedistributeProb float64
	DeleteProb       float64
	SplitProb        float64

	FallbackDiscount float64 // fallback order price = mid * FallbackDiscount
	PriceDecimals    int
	AmountDecimals   int

	Deadline time.Duration // wall-clock budget, 0 = none
	Seed     uint64        // used when Optimize gets a nil Rand
	Progress func(Progress)
}

// DefaultConfig returns the reference constants.
func DefaultConfig() Config {
	return Config{
		BaseSpreadBP:        10,
		CorrelationSpreadBP: 5,

		MaxIterations:      1000,
		InitialTemperature: 100,
		CoolingRate:        0.95,
		MinTemperature:     0.1,
		ReheatFraction:     0.01,

		EcoBonus:                    1.05,
		ClawbackPenalty:             0.95,
		VolatilityPenalty:           20,
		CorrelationPenalty:          10,
		CorrelationPenaltyThreshold: 0.5,
		ShallownessThreshold:        0.10,

		MinOrders:      2,
		MaxOrders:      15,
		MinOrderAmount: 1,
		PriceStep:      0.002,

		RedistributeProb: 0.3,
		DeleteProb:       0.2,
		SplitProb:        0.2,

		FallbackDiscount: 0.99,
		PriceDecimals:    6,
		AmountDecimals:   2,
	}
}

// withDefaults fills zero values so a partially populated Config still works.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseSpreadBP <= 0 {
		c.BaseSpreadBP = d.BaseSpreadBP
	}
	if c.CorrelationSpreadBP < 0 {
		c.CorrelationSpreadBP = d.CorrelationSpreadBP
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.InitialTemperature <= 0 {
		c.InitialTemperature = d.InitialTemperature
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		c.CoolingRate = d.CoolingRate
	}
	if c.MinTemperature <= 0 {
		c.MinTemperature = d.MinTemperature
	}
	if c.ReheatFraction <= 0 {
		c.ReheatFraction = d.ReheatFraction
	}
	if c.EcoBonus <= 0 {
		c.EcoBonus = d.EcoBonus
	}
	if c.ClawbackPenalty <= 0 {
		c.ClawbackPenalty = d.ClawbackPenalty
	}
	if c.MinOrders < 1 {
		c.MinOrders = d.MinOrders
	}
	if c.MaxOrders < c.MinOrders {
		c.MaxOrders = d.MaxOrders
	}
	if c.MinOrderAmount <= 0 {
		c.MinOrderAmount = d.MinOrderAmount
	}
	if c.PriceStep <= 0 {
		c.PriceStep = d.PriceStep
	}
	if c.FallbackDiscount <= 0 {
		c.FallbackDiscount = d.FallbackDiscount
	}
	if c.PriceDecimals <= 0 {
		c.PriceDecimals = d.PriceDecimals
	}
	if c.AmountDecimals <= 0 {
		c.AmountDecimals = d.AmountDecimals
	}
	return c
}
