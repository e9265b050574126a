package optimizer

import (
	"math"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// scoreInput is the immutable context every candidate is scored against.
type scoreInput struct {
	mid       float64
	liquidity float64
	regime    domain.RegimeParameters
	cfg       Config
}

// ExecutionProbability is the fill probability of one order at the given
// price: clamp(1 - 10*dev + 5*vol*dev, 0.01, 0.99).
func ExecutionProbability(price, mid, volatility float64) float64 {
	dev := math.Abs(price-mid) / mid
	return domain.Clamp(1-10*dev+5*volatility*dev, 0.01, 0.99)
}

// AvgExecutionProbability returns the amount-weighted fill probability.
func AvgExecutionProbability(orders domain.Orders, mid, volatility float64) float64 {
	var weighted, total float64
	for _, o := range orders {
		weighted += ExecutionProbability(o.Price, mid, volatility) * o.Amount
		total += o.Amount
	}
	if total <= 0 {
		return 0
	}
	return weighted / total
}

// ShallownessPenalty penalises plans that take more than the threshold share
// of the resting book.
func ShallownessPenalty(totalAmount, liquidity, threshold float64) float64 {
	return math.Max(0, (totalAmount/liquidity-threshold)*100)
}

// Score rates an order set; higher is better. liquidity must be positive.
func Score(orders domain.Orders, mid, liquidity float64, regime domain.RegimeParameters, cfg Config) float64 {
	return score(orders, scoreInput{mid: mid, liquidity: liquidity, regime: regime, cfg: cfg})
}

func score(orders domain.Orders, in scoreInput) float64 {
	v := in.regime.Volatility
	corr := in.regime.ExternalCorrelation

	slippage := orders.Slippage(in.mid)
	execProb := AvgExecutionProbability(orders, in.mid, v)

	s := 100 * (1 - slippage) * execProb
	s -= ShallownessPenalty(orders.TotalAmount(), in.liquidity, in.cfg.ShallownessThreshold)
	s -= in.cfg.VolatilityPenalty * v * v
	if corr > in.cfg.CorrelationPenaltyThreshold {
		s -= in.cfg.CorrelationPenalty * (corr - in.cfg.CorrelationPenaltyThreshold)
	}

	if in.regime.IsEcoAsset {
		s *= in.cfg.EcoBonus
	}
	if in.regime.IsClawbackEnabled {
		s *= in.cfg.ClawbackPenalty
	}
	return s
}
