// Package allocator splits capital across yield pools according to the
// market regime.
//
// Weights start from pool APY scaled by regime adjustments. Above the
// volatility threshold a stable anchor pool takes a fixed share; otherwise
// capital is spread proportionally. Constraints are applied in a fixed order
// and the result is normalised and projected into an expected yield.
package allocator

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/alejandrodnm/allocengine/internal/invariant"
	"gonum.org/v1/gonum/floats"
)

// Stage names the steps of one allocation, in order.
type Stage string

const (
	StageSeeded      Stage = "seeded"
	StageWeighting   Stage = "weighting"
	StageConstrained Stage = "constrained"
	StageNormalized  Stage = "normalized"
	StageDone        Stage = "done"
)

// amountDecimals is the precision allocated amounts are rounded to.
const amountDecimals = 2

// Allocator is stateless and safe for concurrent use.
type Allocator struct {
	cfg Config
}

// New creates an Allocator. Zero-valued fields take defaults.
func New(cfg Config) *Allocator {
	return &Allocator{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (a *Allocator) Config() Config {
	return a.cfg
}

// Allocate distributes capital over pools. Pool order is preserved in the
// returned vector.
func (a *Allocator) Allocate(
	ctx context.Context,
	capital float64,
	pools []domain.Pool,
	regime domain.RegimeParameters,
) (domain.Allocation, error) {
	cfg := a.cfg

	if err := ctx.Err(); err != nil {
		return domain.Allocation{}, fmt.Errorf("allocator.Allocate: %w", err)
	}
	if err := validate(capital, pools); err != nil {
		return domain.Allocation{}, fmt.Errorf("allocator.Allocate: %w", err)
	}

	base := BaseWeights(pools, regime, cfg)
	slog.Debug("allocator: seeded", "stage", StageSeeded, "pools", len(pools), "volatility", regime.Volatility)

	w, branch, anchor, err := regimeWeights(pools, base, regime, cfg)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("allocator.Allocate: %w", err)
	}
	slog.Debug("allocator: weighted",
		"stage", StageWeighting,
		"branch", branch,
		"stable_share", fmt.Sprintf("%.4f", stableShare(pools, w)),
	)

	constrain(w, pools, regime, anchor, cfg)
	slog.Debug("allocator: constrained", "stage", StageConstrained)

	if err := domain.Normalize(w); err != nil {
		return domain.Allocation{}, fmt.Errorf("allocator.Allocate: %w", err)
	}
	if sum := floats.Sum(w); !invariant.Check(math.Abs(sum-1) <= domain.WeightEpsilon, "weights do not sum to one", "sum", sum) {
		if err := domain.Normalize(w); err != nil {
			return domain.Allocation{}, fmt.Errorf("allocator.Allocate: %w", err)
		}
	}
	slog.Debug("allocator: normalized", "stage", StageNormalized)

	proj, err := Project(pools, w, regime, cfg)
	if err != nil {
		return domain.Allocation{}, fmt.Errorf("allocator.Allocate: %w", err)
	}

	alloc := domain.Allocation{
		Capital:    capital,
		Branch:     branch,
		Vector:     vector(pools, w, capital),
		Projection: proj,
	}

	slog.Debug("allocator: done",
		"stage", StageDone,
		"branch", branch,
		"net_apy", fmt.Sprintf("%.4f", proj.NetAPY),
		"sharpe", fmt.Sprintf("%.2f", proj.SharpeRatio),
	)
	return alloc, nil
}

func validate(capital float64, pools []domain.Pool) error {
	if capital <= 0 || !domain.IsFinite(capital) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCapital, capital)
	}
	if len(pools) == 0 {
		return domain.ErrEmptyPoolSet
	}
	seen := make(map[string]bool, len(pools))
	for _, p := range pools {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate pool %s", domain.ErrInvalidPool, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// vector converts weights to amounts, putting the rounding residual on the
// largest entry.
func vector(pools []domain.Pool, w []float64, capital float64) domain.AllocationVector {
	v := make(domain.AllocationVector, len(pools))
	var rounded float64
	largest := 0
	for i, p := range pools {
		v[i] = domain.AllocationEntry{
			Pool:   p.Name,
			Weight: w[i],
			Amount: domain.Round(capital*w[i], amountDecimals),
		}
		rounded += v[i].Amount
		if w[i] > w[largest] {
			largest = i
		}
	}
	residual := domain.Round(capital, amountDecimals) - rounded
	v[largest].Amount = domain.Round(v[largest].Amount+residual, amountDecimals)
	return v
}
