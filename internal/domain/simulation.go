package domain

// TrialResult is the outcome of one Monte Carlo trial.
type TrialResult struct {
	Trial         int
	FinalCapital  float64
	Return        float64 // FinalCapital / initial - 1
	MeanNetAPY    float64
	ExecutionCost float64
	HighVolDays   int
}

// SimulationSummary aggregates the trials of one Monte Carlo run.
type SimulationSummary struct {
	Trials            int
	Days              int
	InitialCapital    float64
	Mean              float64 // mean return
	StdDev            float64
	Min               float64
	Max               float64
	P05               float64
	P95               float64
	SuccessRate       float64 // share of trials with a positive return
	Sharpe            float64
	MeanExecutionCost float64
	Results           []TrialResult
}

// MarketSnapshot is everything the market data collaborator supplies for one run.
type MarketSnapshot struct {
	Book    OrderBookSnapshot
	Pools   []Pool
	Regime  RegimeParameters
	Capital float64
	Target  float64
	Books   []BookTarget // extra books for batch placement
}

// BookTarget is one independent placement problem of a batch.
type BookTarget struct {
	ID     string
	Book   OrderBookSnapshot
	Target float64
}
