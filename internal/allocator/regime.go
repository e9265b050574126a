package allocator

import (
	"log/slog"

	"github.com/alejandrodnm/allocengine/internal/domain"
)

// noAnchor marks an allocation without a stable anchor.
const noAnchor = -1

// balanced spreads capital proportionally over all pools, favouring stable
// and eco pools by small multipliers.
func balanced(pools []domain.Pool, base []float64, cfg Config) ([]float64, error) {
	w := make([]float64, len(pools))
	for i, p := range pools {
		w[i] = base[i]
		if p.IsStable {
			w[i] *= cfg.BalancedStableMultiplier
		}
		if p.IsEco {
			w[i] *= cfg.BalancedEcoMultiplier
		}
	}
	if err := domain.Normalize(w); err != nil {
		return nil, err
	}
	return w, nil
}

// findAnchor returns the index of the stable anchor pool, or noAnchor.
// During an emergency only stable pools the emergency cap leaves alone can
// anchor.
func findAnchor(pools []domain.Pool, regime domain.RegimeParameters, cfg Config) int {
	ok := func(p domain.Pool) bool {
		if !p.IsStable {
			return false
		}
		return !emergency(regime, cfg) || p.CorrelationWithReference <= cfg.EmergencyCorrelation
	}
	if cfg.AnchorPool != "" {
		for i, p := range pools {
			if p.Name == cfg.AnchorPool && ok(p) {
				return i
			}
		}
	}
	for i, p := range pools {
		if ok(p) {
			return i
		}
	}
	return noAnchor
}

// highVolatility pins the anchor at max(fraction, its balanced share) and
// spreads the rest by sentiment-scaled base weight. The stable group never
// ends up below the balanced branch's stable share.
func highVolatility(pools []domain.Pool, base, bal []float64, anchor int, regime domain.RegimeParameters, cfg Config) ([]float64, error) {
	n := len(pools)
	w := make([]float64, n)

	a := max(cfg.StableAnchorFraction, bal[anchor])
	if n == 1 {
		w[anchor] = 1
		return w, nil
	}

	sentimentFactor := 0.5 + 0.5*regime.SentimentOrNeutral()
	rest := make([]float64, 0, n-1)
	for i, p := range pools {
		if i == anchor {
			continue
		}
		f := 1.0
		if !p.IsStable {
			f = sentimentFactor
		}
		rest = append(rest, base[i]*f)
	}
	if err := domain.Normalize(rest); err != nil {
		return nil, err
	}

	j := 0
	for i := range pools {
		if i == anchor {
			w[i] = a
			continue
		}
		w[i] = (1 - a) * rest[j]
		j++
	}

	floor := stableShare(pools, bal)
	if got := stableShare(pools, w); got < floor && got < 1 {
		up, down := floor/got, (1-floor)/(1-got)
		for i, p := range pools {
			if p.IsStable {
				w[i] *= up
			} else {
				w[i] *= down
			}
		}
		slog.Debug("allocator: stable share raised to balanced level", "from", got, "to", floor)
	}
	return w, nil
}

// regimeWeights picks the branch and returns normalised weights. anchor is
// noAnchor for the balanced branch.
func regimeWeights(pools []domain.Pool, base []float64, regime domain.RegimeParameters, cfg Config) ([]float64, domain.Branch, int, error) {
	bal, err := balanced(pools, base, cfg)
	if err != nil {
		return nil, "", noAnchor, err
	}
	if regime.Volatility <= cfg.HighVolThreshold {
		return bal, domain.BranchBalanced, noAnchor, nil
	}

	anchor := findAnchor(pools, regime, cfg)
	if anchor == noAnchor {
		slog.Debug("allocator: no stable anchor, staying balanced", "volatility", regime.Volatility)
		return bal, domain.BranchBalanced, noAnchor, nil
	}

	w, err := highVolatility(pools, base, bal, anchor, regime, cfg)
	if err != nil {
		return nil, "", noAnchor, err
	}
	return w, domain.BranchHighVolatility, anchor, nil
}
