// Package integrators advances the discretized state by one explicit
// time step.
//
// Every scheme is a pure function of (state_in, t, dt, rhs): scratch
// buffers are reused across calls for allocation reasons only and carry
// no numerical state, so runs replay deterministically.
package integrators

import (
	"fmt"

	"github.com/mkron/eulerdg/internal/state"
)

// RHS is the capability the integrators demand of the spatial operator:
// evaluate the semi-discrete right-hand side at (t, in) into out.
type RHS interface {
	ApplyRHS(t float64, in, out *state.Field)
}

// Integrator advances one time step. in and out must be distinct fields
// of the same mesh generation; the caller swaps them between steps.
type Integrator interface {
	Name() string
	Order() int
	PerformTimeStep(in, out *state.Field, t, dt float64, op RHS)
}

// New maps a scheme selector to its integrator. SSPRK takes its (stages,
// order) parameterization; all other selectors ignore the two counts.
func New(scheme string, ssprkStages, ssprkOrder int) (Integrator, error) {
	switch scheme {
	case "euler":
		return &ExplicitEuler{}, nil
	case "rk4":
		return &ClassRK4{}, nil
	case "lsrk33reg2":
		return newLSRK33Reg2(), nil
	case "lsrk45reg2":
		return newLSRK45Reg2(), nil
	case "rk44reg3":
		return &RK44Reg3{}, nil
	case "dopri5":
		return &DoPri5{}, nil
	case "ssprk":
		return NewSSPRK(ssprkStages, ssprkOrder)
	default:
		return nil, fmt.Errorf("integrators: unknown scheme %q", scheme)
	}
}

// ensureLike returns buf if it matches the shape and generation of ref,
// otherwise a fresh field cloned from ref.
func ensureLike(buf, ref *state.Field) *state.Field {
	if buf == nil || buf.Generation() != ref.Generation() || len(buf.Data()) != len(ref.Data()) {
		return ref.Clone()
	}
	return buf
}
