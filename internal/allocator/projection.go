package allocator

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// Project derives the yield projection of normalised weights over pools.
func Project(pools []domain.Pool, w []float64, regime domain.RegimeParameters, cfg Config) (domain.YieldProjection, error) {
	v := regime.Volatility

	var expected, il, risk float64
	for i, p := range pools {
		adj := 1.0
		if !p.IsStable {
			adj = 1 - cfg.VolatileYieldDrag*v
		}
		if regime.IsClawbackEnabled {
			adj *= cfg.ClawbackYieldHaircut
		}
		expected += w[i] * p.APY * adj
		il += w[i] * ilRisk(p, v, cfg)
		risk += w[i] * classRisk(p, cfg)
	}

	if risk <= 0 || !domain.IsFinite(risk) {
		return domain.YieldProjection{}, fmt.Errorf("allocator.Project: %w: risk %v", domain.ErrNumericOverflow, risk)
	}

	net := math.Max(0, expected-il*v*cfg.ILDampening)
	return domain.YieldProjection{
		ExpectedAPY:         expected,
		ImpermanentLossRisk: il,
		NetAPY:              net,
		RiskStdDev:          risk,
		SharpeRatio:         net / risk,
	}, nil
}

func ilRisk(p domain.Pool, v float64, cfg Config) float64 {
	switch {
	case p.IsStable:
		return cfg.StableILRisk
	case math.Abs(p.CorrelationWithReference) > cfg.CorrelationThreshold:
		return cfg.CorrelatedILBase + cfg.CorrelatedILScale*v
	default:
		return cfg.UncorrelatedILBase + cfg.UncorrelatedILScale*v
	}
}

func classRisk(p domain.Pool, cfg Config) float64 {
	if p.IsStable {
		return cfg.StableRisk
	}
	return cfg.VolatileRisk
}
