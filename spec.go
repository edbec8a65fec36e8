package ratevalve

import (
	"fmt"
	"time"
)

// RateSpec is an immutable budget: R requests per period D.
//
// Two RateSpecs are equal iff both fields are equal.
type RateSpec struct {
	R int64
	D time.Duration
}

// NewRateSpec constructs a RateSpec, rejecting a non-positive request
// count or period.
func NewRateSpec(r int64, d time.Duration) (RateSpec, error) {
	spec := RateSpec{R: r, D: d}
	if err := spec.Validate(); err != nil {
		return RateSpec{}, err
	}
	return spec, nil
}

// Validate checks that R and D satisfy the invariant R >= 1, D > 0.
func (s RateSpec) Validate() error {
	if s.R < 1 {
		return fmt.Errorf("%w: R must be >= 1, got %d", ErrInvalidRateSpec, s.R)
	}
	if s.D <= 0 {
		return fmt.Errorf("%w: D must be positive, got %s", ErrInvalidRateSpec, s.D)
	}
	return nil
}

// PerSecond returns the derived continuous rate R/D in requests per second.
func (s RateSpec) PerSecond() float64 {
	return float64(s.R) / s.D.Seconds()
}

// String renders the spec as "R/D", e.g. "6/1m0s".
func (s RateSpec) String() string {
	return fmt.Sprintf("%d/%s", s.R, s.D)
}
