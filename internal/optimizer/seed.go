package optimizer

import (
	"math"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

const bp = 1e-4

// SeedSpread returns the relative spread the seed staggers orders across.
func SeedSpread(regime domain.RegimeParameters, cfg Config) float64 {
	base := cfg.BaseSpreadBP * bp * (1 + 2*regime.Volatility)
	return base + cfg.CorrelationSpreadBP*bp*regime.ExternalCorrelation
}

// SeedOrderCount returns clamp(round(5*(1+volatility)), 3, 10).
func SeedOrderCount(regime domain.RegimeParameters) int {
	k := int(math.Round(5 * (1 + regime.Volatility)))
	return min(max(k, 3), 10)
}

// Seed derives the starting order set analytically. It consumes no
// randomness, so identical inputs always give identical seeds.
//
// Prices are staggered linearly from mid*(1-s/k) down to mid*(1-s) and the
// target is split evenly. k is capped so each order holds at least
// MinOrderAmount whenever the target can fund MinOrders of them.
func Seed(book domain.OrderBookSnapshot, target float64, regime domain.RegimeParameters, cfg Config) domain.Orders {
	cfg = cfg.withDefaults()
	mid := book.Mid()
	s := SeedSpread(regime, cfg)
	k := SeedOrderCount(regime)
	k = min(max(k, cfg.MinOrders), cfg.MaxOrders)
	// No more orders than the target can fund at the minimum amount.
	if fit := int(target / cfg.MinOrderAmount); fit >= cfg.MinOrders {
		k = min(k, fit)
	} else {
		k = cfg.MinOrders
	}

	orders := make(domain.Orders, k)
	for i := range orders {
		orders[i] = domain.Order{
			Price:  mid * (1 - s*float64(i+1)/float64(k)),
			Amount: target / float64(k),
		}
	}
	return orders
}
