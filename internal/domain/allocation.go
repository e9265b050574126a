package domain

// Branch identifies which regime branch produced an allocation.
type Branch string

const (
	BranchBalanced       Branch = "balanced"
	BranchHighVolatility Branch = "high_volatility"
)

// AllocationEntry is the share of capital assigned to one pool.
type AllocationEntry struct {
	Pool   string
	Weight float64
	Amount float64
}

// AllocationVector keeps pool order as supplied by the caller.
type AllocationVector []AllocationEntry

// Get returns the entry for the named pool.
func (v AllocationVector) Get(pool string) (AllocationEntry, bool) {
	for _, e := range v {
		if e.Pool == pool {
			return e, true
		}
	}
	return AllocationEntry{}, false
}

// TotalWeight sums the weights.
func (v AllocationVector) TotalWeight() float64 {
	var total float64
	for _, e := range v {
		total += e.Weight
	}
	return total
}

// TotalAmount sums the allocated amounts.
func (v AllocationVector) TotalAmount() float64 {
	var total float64
	for _, e := range v {
		total += e.Amount
	}
	return total
}

// YieldProjection is derived deterministically from an allocation and its pools.
type YieldProjection struct {
	ExpectedAPY         float64
	ImpermanentLossRisk float64
	NetAPY              float64
	RiskStdDev          float64
	SharpeRatio         float64
}

// Allocation is the output of one capital allocation.
type Allocation struct {
	Capital    float64
	Branch     Branch
	Vector     AllocationVector
	Projection YieldProjection
}

// StableWeight returns the aggregate weight assigned to stable pools.
func (a Allocation) StableWeight(pools []Pool) float64 {
	stable := make(map[string]bool, len(pools))
	for _, p := range pools {
		stable[p.Name] = p.IsStable
	}
	var total float64
	for _, e := range a.Vector {
		if stable[e.Pool] {
			total += e.Weight
		}
	}
	return total
}
