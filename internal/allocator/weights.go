package allocator

import (
	"math"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// BaseWeight is the unnormalised attractiveness of one pool in the regime.
// The floor applies before the volatility factor, so every pool of a class
// scales alike as volatility moves.
func BaseWeight(p domain.Pool, regime domain.RegimeParameters, cfg Config) float64 {
	w := p.APY
	if p.IsEco {
		w *= cfg.EcoBoostMultiplier
	}
	w *= correlationAdjustment(p.CorrelationWithReference, regime.ExternalMarketChange, cfg)
	w *= 1 + (cfg.RiskTolerance-0.5)*0.5
	w = math.Max(w, cfg.WeightFloor)

	return w * volatilityFactor(p.IsStable, regime.Volatility)
}

// volatilityFactor favours stable pools as volatility rises.
func volatilityFactor(stable bool, v float64) float64 {
	if stable {
		return 1 + v
	}
	return 1 - 0.5*v
}

// correlationAdjustment boosts correlated pools when the reference market
// rises and shrinks them when it falls.
func correlationAdjustment(corr, change float64, cfg Config) float64 {
	if math.Abs(corr) <= cfg.CorrelationThreshold || math.Abs(change) <= cfg.MarketChangeThreshold {
		return 1
	}
	return math.Max(0, 1+corr*change)
}

// BaseWeights returns BaseWeight for every pool, in pool order.
func BaseWeights(pools []domain.Pool, regime domain.RegimeParameters, cfg Config) []float64 {
	w := make([]float64, len(pools))
	for i, p := range pools {
		w[i] = BaseWeight(p, regime, cfg)
	}
	return w
}

// stableShare returns the aggregate weight of stable pools.
func stableShare(pools []domain.Pool, w []float64) float64 {
	var s float64
	for i, p := range pools {
		if p.IsStable {
			s += w[i]
		}
	}
	return s
}
