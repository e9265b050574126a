package allocator

import (
	"testing"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCapSinglePool_WaterFills(t *testing.T) {
	w := []float64{0.7, 0.2, 0.1}
	capSinglePool(w, 0.4, noAnchor)
	assert.InDeltaSlice(t, []float64{0.4, 0.4, 0.2}, w, 1e-12)
}

func TestCapSinglePool_SkipsExempt(t *testing.T) {
	w := []float64{0.7, 0.2, 0.1}
	capSinglePool(w, 0.4, 0)
	assert.InDeltaSlice(t, []float64{0.7, 0.2, 0.1}, w, 1e-12)
}

func TestEffectiveCap(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.4, effectiveCap(cfg, 5))
	assert.Equal(t, 0.5, effectiveCap(cfg, 2))
	assert.Equal(t, 1.0, effectiveCap(cfg, 1))
}

func TestEnforceMinStable(t *testing.T) {
	pools := []domain.Pool{{Name: "s", IsStable: true}, {Name: "v1"}, {Name: "v2"}}
	w := []float64{0.1, 0.45, 0.45}

	enforceMinStable(w, pools, domain.RegimeParameters{Volatility: 0.7}, DefaultConfig())
	assert.InDeltaSlice(t, []float64{0.2, 0.4, 0.4}, w, 1e-12)
}

func TestEnforceMinStable_OnlyInTurbulence(t *testing.T) {
	pools := []domain.Pool{{Name: "s", IsStable: true}, {Name: "v"}}
	w := []float64{0.1, 0.9}

	enforceMinStable(w, pools, domain.RegimeParameters{Volatility: 0.6}, DefaultConfig())
	assert.InDeltaSlice(t, []float64{0.1, 0.9}, w, 1e-12)
}

func TestEmergencyCap_MovesExcessToStableThenOthers(t *testing.T) {
	pools := []domain.Pool{
		{Name: "stable", IsStable: true},
		{Name: "beta", CorrelationWithReference: 0.9},
		{Name: "alpha", CorrelationWithReference: 0.1},
		{Name: "gamma"},
	}
	w := []float64{0.2, 0.3, 0.3, 0.2}

	emergencyCap(w, pools, domain.RegimeParameters{ExternalMarketChange: -0.6}, noAnchor, DefaultConfig())
	// 0.25 excess: 0.2 fills the stable pool to the cap, 0.05 split 3:2.
	assert.InDeltaSlice(t, []float64{0.4, 0.05, 0.33, 0.22}, w, 1e-12)
}

func TestEmergencyCap_StableExcessStaysStable(t *testing.T) {
	pools := []domain.Pool{
		{Name: "wrapped", IsStable: true, CorrelationWithReference: 0.9},
		{Name: "RLUSD/USDC", IsStable: true},
		{Name: "alpha"},
		{Name: "beta"},
	}
	w := []float64{0.3, 0.1, 0.3, 0.3}

	emergencyCap(w, pools, domain.RegimeParameters{ExternalMarketChange: -0.6}, noAnchor, DefaultConfig())
	assert.InDeltaSlice(t, []float64{0.05, 0.35, 0.3, 0.3}, w, 1e-12)
}

func TestEmergencyCap_SkippedWhenEveryPoolIsCorrelated(t *testing.T) {
	pools := []domain.Pool{
		{Name: "a", CorrelationWithReference: 0.9},
		{Name: "b", CorrelationWithReference: 0.8},
	}
	w := []float64{0.6, 0.4}

	emergencyCap(w, pools, domain.RegimeParameters{ExternalMarketChange: -0.9}, noAnchor, DefaultConfig())
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, w, 1e-12)
}

func TestSpill_RespectsLimit(t *testing.T) {
	w := []float64{0.35, 0.1, 0.05}
	left := spill(w, 0.5, 0.4, noAnchor, func(int) bool { return true })

	for _, x := range w {
		assert.LessOrEqual(t, x, 0.4+1e-12)
	}
	assert.InDelta(t, 0.5+0.5, w[0]+w[1]+w[2]+left, 1e-12)
}
