package allocator

import (
	"testing"

	"github.com/alejandrodnm/allocengine/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFindAnchor(t *testing.T) {
	pools := []domain.Pool{
		{Name: "XRP/ETH", APY: 0.2},
		{Name: "wrapped", APY: 0.05, IsStable: true, CorrelationWithReference: 0.9},
		{Name: "RLUSD/USDC", APY: 0.04, IsStable: true},
	}
	cfg := DefaultConfig()
	crash := domain.RegimeParameters{Volatility: 0.8, ExternalMarketChange: -0.7}

	assert.Equal(t, 1, findAnchor(pools, domain.RegimeParameters{Volatility: 0.8}, cfg))
	assert.Equal(t, 2, findAnchor(pools, crash, cfg))

	cfg.AnchorPool = "wrapped"
	assert.Equal(t, 2, findAnchor(pools, crash, cfg), "correlated anchor is skipped during a crash")

	assert.Equal(t, noAnchor, findAnchor(pools[:2], crash, cfg))
}

func TestRegimeWeights_CrashWithoutUncorrelatedStableStaysBalanced(t *testing.T) {
	pools := []domain.Pool{
		{Name: "wrapped", APY: 0.05, IsStable: true, CorrelationWithReference: 0.9},
		{Name: "SOLO/XRP", APY: 0.3},
	}
	regime := domain.RegimeParameters{Volatility: 0.9, ExternalMarketChange: -0.8}
	cfg := DefaultConfig()

	_, branch, anchor, err := regimeWeights(pools, BaseWeights(pools, regime, cfg), regime, cfg)
	assert.NoError(t, err)
	assert.Equal(t, domain.BranchBalanced, branch)
	assert.Equal(t, noAnchor, anchor)
}
