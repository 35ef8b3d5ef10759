package integrators

import "github.com/mkron/eulerdg/internal/state"

// RK44Reg3 is the classical fourth-order scheme restructured into three
// working registers: the stage derivative, the stage state, and the
// output accumulator. The Butcher coefficients are identical to
// ClassRK4; only the storage layout differs.
type RK44Reg3 struct {
	k, stage *state.Field
}

func (r *RK44Reg3) Name() string { return "rk44reg3" }
func (r *RK44Reg3) Order() int   { return 4 }

func (r *RK44Reg3) PerformTimeStep(in, out *state.Field, t, dt float64, op RHS) {
	r.k = ensureLike(r.k, in)
	r.stage = ensureLike(r.stage, in)

	u := in.Data()
	v := out.Data()
	k := r.k.Data()
	s := r.stage.Data()

	// stage 1: accumulate into out while forming the next stage state
	op.ApplyRHS(t, in, r.k)
	for i := range v {
		v[i] = u[i] + dt/6.0*k[i]
		s[i] = u[i] + 0.5*dt*k[i]
	}

	// stage 2
	op.ApplyRHS(t+0.5*dt, r.stage, r.k)
	for i := range v {
		v[i] += dt / 3.0 * k[i]
		s[i] = u[i] + 0.5*dt*k[i]
	}

	// stage 3
	op.ApplyRHS(t+0.5*dt, r.stage, r.k)
	for i := range v {
		v[i] += dt / 3.0 * k[i]
		s[i] = u[i] + dt*k[i]
	}

	// stage 4
	op.ApplyRHS(t+dt, r.stage, r.k)
	for i := range v {
		v[i] += dt / 6.0 * k[i]
	}
}
