package allocator

// Config holds the allocator thresholds and multipliers. Governance
// overrides arrive here; the allocator never reads global state.
type Config struct {
	HighVolThreshold     float64
	StableAnchorFraction float64 // share of capital pinned to the anchor in high volatility
	AnchorPool           string  // empty: first stable pool

	EcoBoostMultiplier       float64
	BalancedEcoMultiplier    float64
	BalancedStableMultiplier float64
	RiskTolerance            float64 // 0.5 is neutral
	WeightFloor              float64

	CorrelationThreshold  float64
	MarketChangeThreshold float64

	MinStableAllocation     float64
	MinStableVolatility     float64
	MaxSinglePoolAllocation float64
	EmergencyMarketDrop     float64
	EmergencyCorrelation    float64
	EmergencyCap            float64

	VolatileYieldDrag    float64
	ClawbackYieldHaircut float64
	StableILRisk         float64
	CorrelatedILBase     float64
	CorrelatedILScale    float64
	UncorrelatedILBase   float64
	UncorrelatedILScale  float64
	ILDampening          float64
	StableRisk           float64
	VolatileRisk         float64
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		HighVolThreshold:     0.5,
		StableAnchorFraction: 0.8,

		EcoBoostMultiplier:       1.05,
		BalancedEcoMultiplier:    1.02,
		BalancedStableMultiplier: 1.05,
		RiskTolerance:            0.5,
		WeightFloor:              0.01,

		CorrelationThreshold:  0.5,
		MarketChangeThreshold: 0.1,

		MinStableAllocation:     0.2,
		MinStableVolatility:     0.6,
		MaxSinglePoolAllocation: 0.4,
		EmergencyMarketDrop:     -0.5,
		EmergencyCorrelation:    0.7,
		EmergencyCap:            0.05,

		VolatileYieldDrag:    0.3,
		ClawbackYieldHaircut: 0.95,
		StableILRisk:         0.001,
		CorrelatedILBase:     0.02,
		CorrelatedILScale:    0.10,
		UncorrelatedILBase:   0.01,
		UncorrelatedILScale:  0.05,
		ILDampening:          0.5,
		StableRisk:           0.02,
		VolatileRisk:         0.15,
	}
}

// withDefaults replaces zero or out-of-range fields with their defaults.
// Fields where zero is meaningful (RiskTolerance, MinStableAllocation) are
// only replaced when negative.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	pos := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	pos(&c.HighVolThreshold, d.HighVolThreshold)
	if c.StableAnchorFraction <= 0 || c.StableAnchorFraction > 1 {
		c.StableAnchorFraction = d.StableAnchorFraction
	}
	pos(&c.EcoBoostMultiplier, d.EcoBoostMultiplier)
	pos(&c.BalancedEcoMultiplier, d.BalancedEcoMultiplier)
	pos(&c.BalancedStableMultiplier, d.BalancedStableMultiplier)
	if c.RiskTolerance < 0 || c.RiskTolerance > 1 {
		c.RiskTolerance = d.RiskTolerance
	}
	pos(&c.WeightFloor, d.WeightFloor)
	pos(&c.CorrelationThreshold, d.CorrelationThreshold)
	pos(&c.MarketChangeThreshold, d.MarketChangeThreshold)
	if c.MinStableAllocation < 0 || c.MinStableAllocation > 1 {
		c.MinStableAllocation = d.MinStableAllocation
	}
	pos(&c.MinStableVolatility, d.MinStableVolatility)
	if c.MaxSinglePoolAllocation <= 0 || c.MaxSinglePoolAllocation > 1 {
		c.MaxSinglePoolAllocation = d.MaxSinglePoolAllocation
	}
	if c.EmergencyMarketDrop >= 0 {
		c.EmergencyMarketDrop = d.EmergencyMarketDrop
	}
	pos(&c.EmergencyCorrelation, d.EmergencyCorrelation)
	pos(&c.EmergencyCap, d.EmergencyCap)
	pos(&c.VolatileYieldDrag, d.VolatileYieldDrag)
	pos(&c.ClawbackYieldHaircut, d.ClawbackYieldHaircut)
	pos(&c.StableILRisk, d.StableILRisk)
	pos(&c.CorrelatedILBase, d.CorrelatedILBase)
	pos(&c.CorrelatedILScale, d.CorrelatedILScale)
	pos(&c.UncorrelatedILBase, d.UncorrelatedILBase)
	pos(&c.UncorrelatedILScale, d.UncorrelatedILScale)
	pos(&c.ILDampening, d.ILDampening)
	pos(&c.StableRisk, d.StableRisk)
	pos(&c.VolatileRisk, d.VolatileRisk)
	return c
}
