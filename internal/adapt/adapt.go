// Package adapt drives periodic mesh adaptation: error-ranked flagging
// under level bounds, followed by a state-preserving rebuild.
package adapt

import (
	"sort"

	"github.com/mkron/eulerdg/internal/mesh"
	"github.com/mkron/eulerdg/internal/state"
)

// Estimator fills indicator with a per-cell error value. scratch is a
// same-generation workspace field the estimator may overwrite.
type Estimator interface {
	EstimateError(sol, scratch *state.Field, indicator []float64)
}

// Policy bounds what the controller may do to the mesh. Cells never
// leave [MinLevel, MaxLevel], and adaptation only runs every Interval
// steps.
type Policy struct {
	MinLevel, MaxLevel int
	Interval           int

	// RefineFraction of cells with the largest indicators are flagged
	// refine, CoarsenFraction with the smallest are flagged coarsen.
	RefineFraction  float64
	CoarsenFraction float64
}

type Controller struct {
	pol Policy
	est Estimator

	// refInit is the infinity norm of the indicator captured once after
	// initial pre-refinement. It anchors the relative thresholds that
	// suppress refinement of cells whose error is already negligible.
	refInit float64

	indicator []float64
}

func NewController(est Estimator, pol Policy) *Controller {
	return &Controller{pol: pol, est: est}
}

// Enabled reports whether the policy leaves any room to adapt.
func (c *Controller) Enabled() bool { return c.pol.MaxLevel > c.pol.MinLevel }

func (c *Controller) SetReferenceError(v float64) { c.refInit = v }
func (c *Controller) ReferenceError() float64     { return c.refInit }

// MaybeAdapt runs one adaptation cycle if the step lands on the policy
// cadence. It returns the field to continue with, which is a fresh
// field of the new generation when adaptation ran.
func (c *Controller) MaybeAdapt(step int, m *mesh.Mesh, sol *state.Field) (*state.Field, bool) {
	if !c.Enabled() || step%c.pol.Interval != 0 {
		return sol, false
	}
	return c.Adapt(m, sol), true
}

// Adapt estimates the error, marks cells and rebuilds the mesh,
// transferring sol onto the new generation.
func (c *Controller) Adapt(m *mesh.Mesh, sol *state.Field) *state.Field {
	sol.CheckGeneration(m)
	if len(c.indicator) != m.NumCells() {
		c.indicator = make([]float64, m.NumCells())
	}
	scratch := sol.Clone()
	c.est.EstimateError(sol, scratch, c.indicator)
	c.Mark(m, c.indicator)
	return Transfer(m, sol)
}

// Mark translates an indicator vector into refine/coarsen flags. Any
// flags already present are discarded.
func (c *Controller) Mark(m *mesh.Mesh, indicator []float64) {
	n := m.NumCells()
	m.ClearFlags()

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Descending by indicator, ties by cell index, so re-runs mark the
	// same cells.
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if indicator[ia] != indicator[ib] {
			return indicator[ia] > indicator[ib]
		}
		return ia < ib
	})

	nRefine := int(c.pol.RefineFraction * float64(n))
	nCoarsen := int(c.pol.CoarsenFraction * float64(n))
	for k := 0; k < nRefine; k++ {
		m.FlagRefine(order[k])
	}
	for k := 0; k < nCoarsen; k++ {
		m.FlagCoarsen(order[n-1-k])
	}

	suppress := 0.1 * c.refInit
	force := 0.05 * c.refInit
	for i := 0; i < n; i++ {
		if m.Level(i) >= c.pol.MaxLevel {
			m.ClearRefine(i)
		}
		if c.refInit > 0 && indicator[i] < suppress {
			m.ClearRefine(i)
		}
		if c.refInit > 0 && indicator[i] < force {
			m.FlagCoarsen(i)
		}
		if m.Level(i) <= c.pol.MinLevel {
			m.ClearCoarsen(i)
		}
	}
}

// Transfer executes the pending rebuild and interpolates sol onto the
// new cell indexing. The old field must not be used afterwards; every
// read goes through the provenance of the new generation, never through
// stale indices.
func Transfer(m *mesh.Mesh, sol *state.Field) *state.Field {
	sol.CheckGeneration(m)
	ncomp := sol.Components()

	prov := m.ExecuteCoarseningAndRefinement()
	next := state.NewField(m)
	for i, p := range prov {
		dst := next.CellValues(i)
		switch p.Kind {
		case mesh.Kept, mesh.Refined:
			copy(dst, sol.CellValues(p.Old[0]))
		case mesh.Coarsened:
			// Siblings share a volume, so the conservative restriction
			// is the plain mean.
			for _, old := range p.Old {
				src := sol.CellValues(old)
				for k := 0; k < ncomp; k++ {
					dst[k] += src[k]
				}
			}
			inv := 1.0 / float64(len(p.Old))
			for k := 0; k < ncomp; k++ {
				dst[k] *= inv
			}
		}
	}
	return next
}
