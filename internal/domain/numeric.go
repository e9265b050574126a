package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// WeightEpsilon is the tolerance for "weights sum to 1".
const WeightEpsilon = 1e-6

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// Normalize scales w in place so it sums to 1.
// A zero, negative or non-finite sum is reported as ErrNumericOverflow.
func Normalize(w []float64) error {
	sum := floats.Sum(w)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("%w: weight sum %v", ErrNumericOverflow, sum)
	}
	floats.Scale(1/sum, w)
	return nil
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
