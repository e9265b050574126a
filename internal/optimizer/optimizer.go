// Package optimizer places a target amount as a small set of limit orders.
//
// The search is simulated annealing over candidate order sets: an analytic
// seed, random neighbour moves, Metropolis acceptance, geometric cooling with
// reheats. The loop is sequential; independent books can be optimized in
// parallel with OptimizeBatch.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/invariant"
)

// Stage names the steps of one optimization, in order.
type Stage string

const (
	StageSeeded      Stage = "seeded"
	StageSearching   Stage = "searching"
	StageConstrained Stage = "constrained"
	StageNormalized  Stage = "normalized"
	StageDone        Stage = "done"
)

// Progress is reported once per iteration when Config.Progress is set.
type Progress struct {
	Iteration    int
	Temperature  float64
	CurrentScore float64
	BestScore    float64
	Reheats      int
}

// Optimizer is stateless between calls and safe for concurrent use as long
// as each call gets its own Rand.
type Optimizer struct {
	cfg Config
}

// New creates an Optimizer. Zero-valued structural fields take defaults.
func New(cfg Config) *Optimizer {
	return &Optimizer{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Optimize computes a placement for target on book. A nil rng uses a
// source seeded from Config.Seed, so runs are reproducible either way.
func (o *Optimizer) Optimize(
	ctx context.Context,
	book domain.OrderBookSnapshot,
	target float64,
	regime domain.RegimeParameters,
	rng Rand,
) (domain.OrderPlan, error) {
	cfg := o.cfg

	if err := book.Validate(); err != nil {
		return domain.OrderPlan{}, fmt.Errorf("optimizer.Optimize: %w", err)
	}
	if target <= 0 || !domain.IsFinite(target) {
		return domain.OrderPlan{}, fmt.Errorf("optimizer.Optimize: %w: %v", domain.ErrInvalidAmount, target)
	}
	liquidity := book.TotalLiquidity()
	if liquidity <= 0 {
		return domain.OrderPlan{}, fmt.Errorf("optimizer.Optimize: %w: book has no liquidity", domain.ErrNumericOverflow)
	}
	if rng == nil {
		rng = NewRand(cfg.Seed)
	}

	mid := book.Mid()
	v := regime.Volatility
	in := scoreInput{mid: mid, liquidity: liquidity, regime: regime, cfg: cfg}

	seed := Seed(book, target, regime, cfg)
	current := seed.Clone()
	currentScore := score(current, in)
	best, bestScore := current, currentScore

	slog.Debug("optimizer: seeded",
		"stage", StageSeeded,
		"orders", len(seed),
		"spread", fmt.Sprintf("%.5f", SeedSpread(regime, cfg)),
		"score", fmt.Sprintf("%.4f", currentScore),
	)

	var deadline time.Time
	if cfg.Deadline > 0 {
		deadline = time.Now().Add(cfg.Deadline)
	}

	p := newPerturber(mid, target, regime, cfg, rng)
	temp := cfg.InitialTemperature
	reheatBelow := cfg.ReheatFraction * cfg.InitialTemperature
	reheats, accepted := 0, 0

	iter := 0
	for ; iter < cfg.MaxIterations && temp >= cfg.MinTemperature; iter++ {
		if err := ctx.Err(); err != nil {
			return domain.OrderPlan{}, fmt.Errorf("optimizer.Optimize: %w", err)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		cand := p.next(current)
		if !invariant.Check(len(cand) >= cfg.MinOrders && len(cand) <= cfg.MaxOrders,
			"order count out of bounds", "n", len(cand)) {
			cand = clampCount(cand, cfg.MinOrders, cfg.MaxOrders)
			rebalance(cand, target, cfg.MinOrderAmount)
		}

		candScore := score(cand, in)
		if accept(candScore, currentScore, temp, regime, rng) {
			current, currentScore = cand, candScore
			accepted++
			if currentScore > bestScore {
				best, bestScore = current, currentScore
			}
		}

		temp = cool(temp, v, cfg.CoolingRate)
		if temp < reheatBelow && iter < cfg.MaxIterations/2 {
			temp *= 10 * (1 + math.Max(0, v-0.5))
			reheats++
			slog.Debug("optimizer: reheat", "stage", StageSearching, "iteration", iter, "temperature", temp)
		}

		if cfg.Progress != nil {
			cfg.Progress(Progress{
				Iteration:    iter,
				Temperature:  temp,
				CurrentScore: currentScore,
				BestScore:    bestScore,
				Reheats:      reheats,
			})
		}
	}

	orders := finalize(best, target, mid, cfg)
	plan := domain.OrderPlan{
		Orders:               orders,
		Seed:                 seed,
		MidPrice:             mid,
		Target:               target,
		Score:                score(orders, in),
		Slippage:             orders.Slippage(mid),
		ExecutionProbability: AvgExecutionProbability(orders, mid, v),
		Iterations:           iter,
		Reheats:              reheats,
		Accepted:             accepted,
	}

	slog.Debug("optimizer: done",
		"stage", StageDone,
		"iterations", iter,
		"reheats", reheats,
		"accepted", accepted,
		"orders", len(orders),
		"score", fmt.Sprintf("%.4f", plan.Score),
		"slippage", fmt.Sprintf("%.6f", plan.Slippage),
	)
	return plan, nil
}

// accept applies the Metropolis criterion with the regime biases: more
// permissive above 70% volatility, more conservative above 80% correlation.
func accept(candidate, current, temp float64, regime domain.RegimeParameters, rng Rand) bool {
	if candidate > current {
		return true
	}
	p := math.Exp((candidate - current) / temp)
	if regime.Volatility > 0.7 {
		p *= 1 + regime.Volatility - 0.7
	}
	if regime.ExternalCorrelation > 0.8 {
		p *= 0.8
	}
	return rng.Float64() < p
}

// cool applies geometric cooling, slowed down in turbulent regimes.
func cool(temp, volatility, rate float64) float64 {
	temp *= rate
	if volatility > 0.7 {
		temp /= rate + 0.1*(volatility-0.7)
	}
	return temp
}

// finalize turns the best candidate into the returned plan: sorted by price,
// dust orders merged into their neighbours, prices and amounts rounded with
// the rounding residual on the largest order.
func finalize(best domain.Orders, target, mid float64, cfg Config) domain.Orders {
	if target < cfg.MinOrderAmount || len(best) == 0 {
		return domain.Orders{{
			Price:  domain.Round(mid*cfg.FallbackDiscount, cfg.PriceDecimals),
			Amount: domain.Round(target, cfg.AmountDecimals),
		}}
	}

	sorted := best.Clone()
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	before := len(sorted)
	kept := mergeDust(sorted, target, cfg.MinOrderAmount)
	slog.Debug("optimizer: filtered", "stage", StageConstrained, "kept", len(kept), "merged", before-len(kept))

	if kept.TotalAmount() <= 0 {
		rebalance(kept, target, cfg.MinOrderAmount)
	}
	scale := target / kept.TotalAmount()
	var rounded float64
	largest := 0
	for i := range kept {
		kept[i].Price = domain.Round(kept[i].Price, cfg.PriceDecimals)
		kept[i].Amount = domain.Round(kept[i].Amount*scale, cfg.AmountDecimals)
		rounded += kept[i].Amount
		if kept[i].Amount > kept[largest].Amount {
			largest = i
		}
	}
	residual := domain.Round(target, cfg.AmountDecimals) - rounded
	kept[largest].Amount = domain.Round(kept[largest].Amount+residual, cfg.AmountDecimals)

	invariant.Check(math.Abs(kept.TotalAmount()-target) <= 0.01,
		"order amounts do not sum to target", "sum", kept.TotalAmount(), "target", target)
	slog.Debug("optimizer: rounded", "stage", StageNormalized, "orders", len(kept))
	return kept
}

// mergeDust removes orders below minAmount from a price-sorted set. While
// the target cannot fund every order at minAmount, the smallest order is
// merged into its closest neighbour by price at the amount-weighted price;
// once it can, rebalance lifts the rest to the floor. A single order is left
// only when the target cannot fund two.
func mergeDust(orders domain.Orders, target, minAmount float64) domain.Orders {
	for len(orders) > 1 {
		i := 0
		for j := range orders {
			if orders[j].Amount < orders[i].Amount {
				i = j
			}
		}
		if orders[i].Amount >= minAmount-1e-9 {
			return orders
		}
		if target >= float64(len(orders))*minAmount {
			rebalance(orders, target, minAmount)
			return orders
		}

		j := i + 1
		if i == len(orders)-1 || (i > 0 && orders[i].Price-orders[i-1].Price < orders[i+1].Price-orders[i].Price) {
			j = i - 1
		}
		amount := orders[i].Amount + orders[j].Amount
		if amount > 0 {
			orders[j].Price = (orders[i].Price*orders[i].Amount + orders[j].Price*orders[j].Amount) / amount
		}
		orders[j].Amount = amount
		orders = append(orders[:i], orders[i+1:]...)
	}
	return orders
}
