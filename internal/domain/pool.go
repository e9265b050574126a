package domain

import (
	"fmt"
	"math"
)

// Base risk constants by stability class.
const (
	StableBaseRisk   = 0.02
	VolatileBaseRisk = 0.15
)

// Pool is an allocation target.
type Pool struct {
	Name                     string  `yaml:"name"`
	APY                      float64 `yaml:"apy"`
	IsStable                 bool    `yaml:"is_stable"`
	IsEco                    bool    `yaml:"is_eco"`
	CorrelationWithReference float64 `yaml:"correlation_with_reference"`
}

// BaseRisk is derived from the stability class.
func (p Pool) BaseRisk() float64 {
	if p.IsStable {
		return StableBaseRisk
	}
	return VolatileBaseRisk
}

// Validate rejects pools the allocator cannot reason about.
func (p Pool) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPool)
	}
	if p.APY < 0 || math.IsNaN(p.APY) || math.IsInf(p.APY, 0) {
		return fmt.Errorf("%w: %s apy %v", ErrInvalidPool, p.Name, p.APY)
	}
	if p.CorrelationWithReference < -1 || p.CorrelationWithReference > 1 {
		return fmt.Errorf("%w: %s correlation %v outside [-1,1]", ErrInvalidPool, p.Name, p.CorrelationWithReference)
	}
	return nil
}
