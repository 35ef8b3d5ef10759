// Package cflsearch bisects toward the explicit stability boundary.
//
// A full simulation run is the oracle: a CFL candidate is stable when
// the run finishes without the stability monitor declaring divergence.
// The oracle is expensive and noisy, so the search runs a fixed number
// of iterations rather than to a tolerance. Reported Courant numbers
// are scaled by degree^1.5, an empirical fit to how the explicit limit
// shrinks with approximation order, not a physical law.
package cflsearch

import (
	"math"

	"go.uber.org/zap"

	"github.com/mkron/eulerdg/internal/config"
)

// Iterations is fixed: the oracle's noise makes tighter bisection
// pointless.
const Iterations = 12

const (
	stableSentinel   = -0.1
	instableSentinel = 100.0
)

// Oracle runs one simulation and reports whether it stayed stable.
type Oracle func(p *config.Parameters) (bool, error)

// Bounds is the bisection state threaded through iterations.
type Bounds struct {
	ClosestStable   float64
	ClosestInstable float64
}

func NewBounds() Bounds {
	return Bounds{ClosestStable: stableSentinel, ClosestInstable: instableSentinel}
}

func (b Bounds) HasStable() bool   { return b.ClosestStable >= 0 }
func (b Bounds) HasInstable() bool { return b.ClosestInstable <= 99.0 }

// next picks the following candidate. Before a stable bound exists the
// candidate walks down, switching from fixed decrements to geometric
// shrinking once it is small relative to the degree scaling; before an
// unstable bound exists it walks up; with both bounds it bisects.
func (b Bounds) next(candidate, degreeScale float64) float64 {
	switch {
	case !b.HasStable():
		if candidate/degreeScale > 0.15 {
			return candidate - 0.1
		}
		return candidate / 3.0
	case !b.HasInstable():
		return candidate + 0.05
	default:
		return (b.ClosestInstable + b.ClosestStable) / 2.0
	}
}

// Result reports the final bounds, both raw and in Courant-number form.
type Result struct {
	Bounds
	Iterations int

	// Scaled values are candidate * degree^1.5.
	ScaledStable   float64
	ScaledInstable float64
	ScaledMidpoint float64
}

// Run probes the stability boundary starting from the CFL number in p.
// p itself is not modified; each probe gets its own parameter copy.
func Run(p *config.Parameters, oracle Oracle, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	scale := math.Pow(float64(p.Degree), 1.5)
	bounds := NewBounds()
	candidate := p.CFL

	for i := 0; i < Iterations; i++ {
		log.Info("cfl probe",
			zap.Int("iteration", i),
			zap.Float64("courant", candidate*scale))

		probe := *p
		probe.CFL = candidate
		stable, err := oracle(&probe)
		if err != nil {
			return Result{}, err
		}
		if stable {
			bounds.ClosestStable = candidate
		} else {
			bounds.ClosestInstable = candidate
		}
		candidate = bounds.next(candidate, scale)
	}

	res := Result{
		Bounds:         bounds,
		Iterations:     Iterations,
		ScaledStable:   bounds.ClosestStable * scale,
		ScaledInstable: bounds.ClosestInstable * scale,
		ScaledMidpoint: (bounds.ClosestStable + bounds.ClosestInstable) / 2.0 * scale,
	}
	log.Info("cfl search finished",
		zap.Float64("stable", res.ScaledStable),
		zap.Float64("instable", res.ScaledInstable),
		zap.Float64("midpoint", res.ScaledMidpoint))
	return res, nil
}
