package domain

import "time"

// AllocationRecord is a persisted allocation with the regime it was computed for.
type AllocationRecord struct {
	ID         string
	CreatedAt  time.Time
	Regime     RegimeParameters
	Allocation Allocation
}
