package simulation

// Config controls a Monte Carlo run.
type Config struct {
	Trials  int
	Days    int
	Workers int    // <= 0: runtime.NumCPU()
	Seed    uint64 // trial i uses Seed+i

	VolatilityStep  float64 // stddev of the daily volatility random walk
	MarketChangeStd float64
	SentimentStd    float64
	APYDrift        float64 // stddev of the daily multiplicative APY drift

	OptimizeExecution bool    // charge the placement slippage of each day's rebalance
	Turnover          float64 // share of capital rebalanced per day
	BookLevels        int
	BookTick          float64 // relative price step between synthetic levels
	BookDepth         float64 // amount per synthetic level; 0: sized from capital
}

// DefaultConfig returns a 200-trial, 30-day run.
func DefaultConfig() Config {
	return Config{
		Trials:          200,
		Days:            30,
		VolatilityStep:  0.05,
		MarketChangeStd: 0.15,
		SentimentStd:    0.1,
		APYDrift:        0.02,
		Turnover:        0.1,
		BookLevels:      10,
		BookTick:        0.001,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Trials <= 0 {
		c.Trials = d.Trials
	}
	if c.Days <= 0 {
		c.Days = d.Days
	}
	if c.VolatilityStep < 0 {
		c.VolatilityStep = d.VolatilityStep
	}
	if c.MarketChangeStd < 0 {
		c.MarketChangeStd = d.MarketChangeStd
	}
	if c.SentimentStd < 0 {
		c.SentimentStd = d.SentimentStd
	}
	if c.APYDrift < 0 {
		c.APYDrift = d.APYDrift
	}
	if c.Turnover <= 0 || c.Turnover > 1 {
		c.Turnover = d.Turnover
	}
	if c.BookLevels <= 0 {
		c.BookLevels = d.BookLevels
	}
	if c.BookTick <= 0 {
		c.BookTick = d.BookTick
	}
	return c
}
