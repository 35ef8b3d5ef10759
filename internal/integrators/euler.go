package integrators

import "github.com/mkron/eulerdg/internal/state"

// ExplicitEuler is the single-stage forward Euler scheme.
type ExplicitEuler struct {
	k *state.Field
}

func (e *ExplicitEuler) Name() string { return "expl_euler" }
func (e *ExplicitEuler) Order() int   { return 1 }

func (e *ExplicitEuler) PerformTimeStep(in, out *state.Field, t, dt float64, op RHS) {
	e.k = ensureLike(e.k, in)
	op.ApplyRHS(t, in, e.k)

	u, v, k := in.Data(), out.Data(), e.k.Data()
	for i := range v {
		v[i] = u[i] + dt*k[i]
	}
}
