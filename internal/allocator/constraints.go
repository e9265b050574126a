package allocator

import (
	"log/slog"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// effectiveCap is the single-pool cap, relaxed to 1/n when n pools cannot
// otherwise sum to one.
func effectiveCap(cfg Config, n int) float64 {
	return max(cfg.MaxSinglePoolAllocation, 1/float64(n))
}

// constrain applies the ordered constraints to normalised weights in place.
// exempt is the high-volatility anchor index or noAnchor.
func constrain(w []float64, pools []domain.Pool, regime domain.RegimeParameters, exempt int, cfg Config) {
	enforceMinStable(w, pools, regime, cfg)
	capSinglePool(w, effectiveCap(cfg, len(w)), exempt)
	emergencyCap(w, pools, regime, exempt, cfg)
}

// enforceMinStable lifts the stable share to MinStableAllocation in
// turbulent markets, pulling the shortfall proportionally from volatile pools.
func enforceMinStable(w []float64, pools []domain.Pool, regime domain.RegimeParameters, cfg Config) {
	if regime.Volatility <= cfg.MinStableVolatility {
		return
	}
	s := stableShare(pools, w)
	if s >= cfg.MinStableAllocation || s >= 1 {
		return
	}

	var stable int
	for _, p := range pools {
		if p.IsStable {
			stable++
		}
	}
	if stable == 0 {
		return
	}

	down := (1 - cfg.MinStableAllocation) / (1 - s)
	for i, p := range pools {
		switch {
		case !p.IsStable:
			w[i] *= down
		case s > 0:
			w[i] *= cfg.MinStableAllocation / s
		default:
			w[i] = cfg.MinStableAllocation / float64(stable)
		}
	}
	slog.Debug("allocator: min stable enforced", "from", s, "to", cfg.MinStableAllocation)
}

// capSinglePool water-fills: pools above limit are pinned there and the
// excess is shared by the remaining pools in proportion to their weight.
func capSinglePool(w []float64, limit float64, exempt int) {
	pinned := make([]bool, len(w))
	for range w {
		var excess float64
		for i := range w {
			if i == exempt || pinned[i] || w[i] <= limit {
				continue
			}
			excess += w[i] - limit
			w[i] = limit
			pinned[i] = true
		}
		if excess <= 0 {
			return
		}

		var recv float64
		for i := range w {
			if !pinned[i] {
				recv += w[i]
			}
		}
		if recv <= 0 {
			return
		}
		for i := range w {
			if !pinned[i] {
				w[i] += excess * w[i] / recv
			}
		}
	}
}

// emergency reports whether the reference market fell past the emergency drop.
func emergency(regime domain.RegimeParameters, cfg Config) bool {
	return regime.ExternalMarketChange < cfg.EmergencyMarketDrop
}

// emergencyCap limits pools highly correlated with a crashing reference
// market. Excess cut from stable pools stays with the uncorrelated stable
// pools. The rest goes to stable pools up to the single-pool cap, then to
// the other uncapped pools.
func emergencyCap(w []float64, pools []domain.Pool, regime domain.RegimeParameters, exempt int, cfg Config) {
	if !emergency(regime, cfg) {
		return
	}

	capped := make([]bool, len(pools))
	var nCapped int
	for i, p := range pools {
		if p.CorrelationWithReference > cfg.EmergencyCorrelation {
			capped[i] = true
			nCapped++
		}
	}
	if nCapped == 0 {
		return
	}
	if nCapped == len(pools) {
		slog.Debug("allocator: emergency cap skipped, every pool is correlated")
		return
	}

	var stableExcess, excess float64
	for i := range w {
		if !capped[i] || w[i] <= cfg.EmergencyCap {
			continue
		}
		if pools[i].IsStable {
			stableExcess += w[i] - cfg.EmergencyCap
		} else {
			excess += w[i] - cfg.EmergencyCap
		}
		w[i] = cfg.EmergencyCap
	}

	limit := effectiveCap(cfg, len(w))
	openStable := func(i int) bool { return !capped[i] && pools[i].IsStable }
	if stableExcess > 0 {
		stableExcess = spill(w, stableExcess, limit, exempt, openStable)
		if stableExcess > 0 {
			stableExcess = spill(w, stableExcess, 1, exempt, openStable)
		}
		excess += stableExcess
	}
	if excess <= 0 {
		return
	}

	anyOpen := func(i int) bool { return !capped[i] }
	for _, eligible := range []func(int) bool{openStable, anyOpen} {
		excess = spill(w, excess, limit, exempt, eligible)
		if excess <= 0 {
			break
		}
	}
	if excess > 0 {
		// Caps cannot all hold; give the rest to uncapped pools by weight.
		spill(w, excess, 1, exempt, anyOpen)
	}
	slog.Debug("allocator: emergency cap applied", "pools", nCapped, "market_change", regime.ExternalMarketChange)
}

// spill hands excess to eligible pools in proportion to their weight without
// pushing any of them above limit. The exempt pool has no limit. It returns
// what could not be placed.
func spill(w []float64, excess, limit float64, exempt int, eligible func(int) bool) float64 {
	for excess > 1e-15 {
		var room float64
		var open []int
		for i := range w {
			if !eligible(i) {
				continue
			}
			if i == exempt || w[i] < limit {
				open = append(open, i)
				room += w[i]
			}
		}
		if len(open) == 0 {
			return excess
		}

		placed := 0.0
		for _, i := range open {
			share := excess / float64(len(open))
			if room > 0 {
				share = excess * w[i] / room
			}
			if i != exempt && w[i]+share > limit {
				share = limit - w[i]
			}
			w[i] += share
			placed += share
		}
		if placed <= 1e-15 {
			return excess
		}
		excess -= placed
	}
	return 0
}
