package integrators

import "github.com/mkron/eulerdg/internal/state"

// ClassRK4 is the classical four-stage fourth-order Runge-Kutta scheme.
type ClassRK4 struct {
	k1, k2, k3, k4 *state.Field
	stage          *state.Field
}

func (r *ClassRK4) Name() string { return "class_rk4" }
func (r *ClassRK4) Order() int   { return 4 }

func (r *ClassRK4) PerformTimeStep(in, out *state.Field, t, dt float64, op RHS) {
	r.k1 = ensureLike(r.k1, in)
	r.k2 = ensureLike(r.k2, in)
	r.k3 = ensureLike(r.k3, in)
	r.k4 = ensureLike(r.k4, in)
	r.stage = ensureLike(r.stage, in)

	u := in.Data()
	s := r.stage.Data()
	k1, k2, k3, k4 := r.k1.Data(), r.k2.Data(), r.k3.Data(), r.k4.Data()

	op.ApplyRHS(t, in, r.k1)

	for i := range s {
		s[i] = u[i] + 0.5*dt*k1[i]
	}
	op.ApplyRHS(t+0.5*dt, r.stage, r.k2)

	for i := range s {
		s[i] = u[i] + 0.5*dt*k2[i]
	}
	op.ApplyRHS(t+0.5*dt, r.stage, r.k3)

	for i := range s {
		s[i] = u[i] + dt*k3[i]
	}
	op.ApplyRHS(t+dt, r.stage, r.k4)

	v := out.Data()
	dt6 := dt / 6.0
	for i := range v {
		v[i] = u[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
}
