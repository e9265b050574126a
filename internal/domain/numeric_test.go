package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.01, Clamp(-3, 0.01, 0.99))
	assert.Equal(t, 0.99, Clamp(7, 0.01, 0.99))
	assert.Equal(t, 0.5, Clamp(0.5, 0.01, 0.99))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.999123, Round(0.99912345, 6))
	assert.Equal(t, 1234.57, Round(1234.565, 2))
	assert.Equal(t, 1000.0, Round(999.999, 2))
}

func TestNormalize(t *testing.T) {
	w := []float64{1, 1, 2}
	require.NoError(t, Normalize(w))
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.5}, w, 1e-12)
}

func TestNormalize_ZeroSum(t *testing.T) {
	err := Normalize([]float64{0, 0})
	assert.True(t, errors.Is(err, ErrNumericOverflow))
}

func TestRegime_SentimentDefaultsToNeutral(t *testing.T) {
	r := RegimeParameters{}
	assert.Equal(t, 0.5, r.SentimentOrNeutral())

	r = r.WithSentiment(0.9)
	assert.Equal(t, 0.9, r.SentimentOrNeutral())
}

func TestPool_Validate(t *testing.T) {
	require.NoError(t, Pool{Name: "XRP/RLUSD", APY: 0.45, IsStable: true}.Validate())
	assert.True(t, errors.Is(Pool{APY: 0.1}.Validate(), ErrInvalidPool))
	assert.True(t, errors.Is(Pool{Name: "x", APY: -0.1}.Validate(), ErrInvalidPool))
	assert.True(t, errors.Is(Pool{Name: "x", CorrelationWithReference: 1.5}.Validate(), ErrInvalidPool))
}

func TestPool_BaseRisk(t *testing.T) {
	assert.Equal(t, StableBaseRisk, Pool{IsStable: true}.BaseRisk())
	assert.Equal(t, VolatileBaseRisk, Pool{}.BaseRisk())
}

func TestAllocation_StableWeight(t *testing.T) {
	pools := []Pool{{Name: "a", IsStable: true}, {Name: "b"}}
	a := Allocation{Vector: AllocationVector{{Pool: "a", Weight: 0.7}, {Pool: "b", Weight: 0.3}}}
	assert.InDelta(t, 0.7, a.StableWeight(pools), 1e-12)

	e, ok := a.Vector.Get("b")
	require.True(t, ok)
	assert.Equal(t, 0.3, e.Weight)
	_, ok = a.Vector.Get("missing")
	assert.False(t, ok)
}
