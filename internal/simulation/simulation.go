// Package simulation runs Monte Carlo trials of the allocator, and
// optionally the placement optimizer, over synthetic market days.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/optimizer"
)

// Allocator is the capital allocation step of each simulated day.
type Allocator interface {
	Allocate(ctx context.Context, capital float64, pools []domain.Pool, regime domain.RegimeParameters) (domain.Allocation, error)
}

// Optimizer is the order placement step used when execution cost is simulated.
type Optimizer interface {
	Optimize(ctx context.Context, book domain.OrderBookSnapshot, target float64, regime domain.RegimeParameters, rng optimizer.Rand) (domain.OrderPlan, error)
}

// Simulator owns no mutable state; every trial has its own random source.
type Simulator struct {
	cfg      Config
	alloc    Allocator
	opt      Optimizer
	progress *rate.Sometimes
}

// New creates a Simulator. opt may be nil when OptimizeExecution is off.
func New(cfg Config, alloc Allocator, opt Optimizer) *Simulator {
	return &Simulator{
		cfg:      cfg.withDefaults(),
		alloc:    alloc,
		opt:      opt,
		progress: &rate.Sometimes{Interval: 2 * time.Second},
	}
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Run executes all trials and aggregates their returns.
func (s *Simulator) Run(ctx context.Context, capital float64, pools []domain.Pool, regime domain.RegimeParameters) (domain.SimulationSummary, error) {
	cfg := s.cfg
	if capital <= 0 || !domain.IsFinite(capital) {
		return domain.SimulationSummary{}, fmt.Errorf("simulation.Run: %w: %v", domain.ErrInvalidCapital, capital)
	}
	if len(pools) == 0 {
		return domain.SimulationSummary{}, fmt.Errorf("simulation.Run: %w", domain.ErrEmptyPoolSet)
	}
	if cfg.OptimizeExecution && s.opt == nil {
		return domain.SimulationSummary{}, errors.New("simulation.Run: execution cost requested without an optimizer")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	results := make([]domain.TrialResult, cfg.Trials)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < cfg.Trials; i++ {
		g.Go(func() error {
			r, err := s.trial(gctx, i, capital, pools, regime)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			results[i] = r
			s.progress.Do(func() {
				slog.Info("simulation progress", "trial", i, "trials", cfg.Trials)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.SimulationSummary{}, fmt.Errorf("simulation.Run: %w", err)
	}

	summary := Summarize(results, capital, cfg.Days)
	slog.Debug("simulation complete",
		"trials", cfg.Trials,
		"days", cfg.Days,
		"workers", workers,
		"mean_return", fmt.Sprintf("%.4f", summary.Mean),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return summary, nil
}

// trial walks one synthetic path of cfg.Days days.
func (s *Simulator) trial(ctx context.Context, idx int, capital float64, pools []domain.Pool, base domain.RegimeParameters) (domain.TrialResult, error) {
	cfg := s.cfg
	rng := optimizer.NewRand(cfg.Seed + uint64(idx))

	day := make([]domain.Pool, len(pools))
	copy(day, pools)

	vol := domain.Clamp(base.Volatility, 0, 1)
	sentiment := base.SentimentOrNeutral()
	current := capital
	res := domain.TrialResult{Trial: idx}
	var netAPY float64

	for d := 0; d < cfg.Days; d++ {
		if err := ctx.Err(); err != nil {
			return domain.TrialResult{}, err
		}

		vol = domain.Clamp(vol+rng.NormFloat64()*cfg.VolatilityStep, 0, 1)
		sentiment = domain.Clamp(sentiment+rng.NormFloat64()*cfg.SentimentStd, 0, 1)
		for i := range day {
			day[i].APY = max(0, day[i].APY*(1+rng.NormFloat64()*cfg.APYDrift))
		}
		regime := base
		regime.Volatility = vol
		regime.ExternalMarketChange = domain.Clamp(rng.NormFloat64()*cfg.MarketChangeStd, -1, 1)
		regime = regime.WithSentiment(sentiment)

		alloc, err := s.alloc.Allocate(ctx, current, day, regime)
		if err != nil {
			return domain.TrialResult{}, err
		}
		if alloc.Branch == domain.BranchHighVolatility {
			res.HighVolDays++
		}
		netAPY += alloc.Projection.NetAPY
		current *= 1 + alloc.Projection.NetAPY/365

		if cfg.OptimizeExecution {
			cost, err := s.executionCost(ctx, current, regime, rng)
			if err != nil {
				return domain.TrialResult{}, err
			}
			res.ExecutionCost += cost
			current -= cost
		}
	}

	res.FinalCapital = current
	res.Return = current/capital - 1
	res.MeanNetAPY = netAPY / float64(cfg.Days)
	return res, nil
}

// executionCost places the day's turnover on a synthetic book and prices
// the slippage in capital units.
func (s *Simulator) executionCost(ctx context.Context, capital float64, regime domain.RegimeParameters, rng optimizer.Rand) (float64, error) {
	cfg := s.cfg
	target := capital * cfg.Turnover
	depth := cfg.BookDepth
	if depth <= 0 {
		depth = capital
	}
	book := SyntheticBook(1.0, cfg.BookLevels, cfg.BookTick, depth)

	plan, err := s.opt.Optimize(ctx, book, target, regime, rng)
	if err != nil {
		return 0, err
	}
	return target * plan.Slippage, nil
}

// Summarize reduces trial results to distribution statistics of the return.
func Summarize(results []domain.TrialResult, capital float64, days int) domain.SimulationSummary {
	summary := domain.SimulationSummary{
		Trials:         len(results),
		Days:           days,
		InitialCapital: capital,
		Results:        results,
	}
	if len(results) == 0 {
		return summary
	}

	returns := make([]float64, len(results))
	var positive int
	var cost float64
	for i, r := range results {
		returns[i] = r.Return
		if r.Return > 0 {
			positive++
		}
		cost += r.ExecutionCost
	}

	summary.Mean, summary.StdDev = stat.MeanStdDev(returns, nil)
	if len(returns) == 1 {
		summary.StdDev = 0
	}
	summary.Min = floats.Min(returns)
	summary.Max = floats.Max(returns)

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	summary.P05 = stat.Quantile(0.05, stat.Empirical, sorted, nil)
	summary.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)

	summary.SuccessRate = float64(positive) / float64(len(results))
	summary.MeanExecutionCost = cost / float64(len(results))
	if summary.StdDev > 0 {
		summary.Sharpe = summary.Mean / summary.StdDev
	}
	return summary
}
