package integrators

import (
	"fmt"

	"github.com/mkron/eulerdg/internal/state"
)

// SSPRK is the strong-stability-preserving Runge-Kutta family
// parameterized by (stages, order).
//
// Supported members: order 1 with any stage count (repeated Euler
// substeps), the optimal second-order family for stages >= 2, the
// Shu-Osher three-stage and the Ruuth-Spiteri four-stage third-order
// schemes. Other combinations are configuration errors.
type SSPRK struct {
	stages, order int
	k, u1, u2     *state.Field
}

func NewSSPRK(stages, order int) (*SSPRK, error) {
	switch order {
	case 1:
		if stages < 1 {
			return nil, fmt.Errorf("integrators: ssprk order 1 needs at least 1 stage, got %d", stages)
		}
	case 2:
		if stages < 2 {
			return nil, fmt.Errorf("integrators: ssprk order 2 needs at least 2 stages, got %d", stages)
		}
	case 3:
		if stages != 3 && stages != 4 {
			return nil, fmt.Errorf("integrators: ssprk order 3 supports 3 or 4 stages, got %d", stages)
		}
	default:
		return nil, fmt.Errorf("integrators: ssprk order %d not supported", order)
	}
	return &SSPRK{stages: stages, order: order}, nil
}

func (s *SSPRK) Name() string { return fmt.Sprintf("ssprk%d%d", s.stages, s.order) }
func (s *SSPRK) Order() int   { return s.order }

// eulerInto writes dst = src + h*f(t, src); dst may alias src.
func (s *SSPRK) eulerInto(op RHS, src, dst *state.Field, t, h float64) {
	op.ApplyRHS(t, src, s.k)
	a, b, k := src.Data(), dst.Data(), s.k.Data()
	for i := range b {
		b[i] = a[i] + h*k[i]
	}
}

func (s *SSPRK) PerformTimeStep(in, out *state.Field, t, dt float64, op RHS) {
	s.k = ensureLike(s.k, in)
	s.u1 = ensureLike(s.u1, in)
	s.u2 = ensureLike(s.u2, in)

	switch s.order {
	case 1:
		h := dt / float64(s.stages)
		s.u1.CopyFrom(in)
		for i := 0; i < s.stages; i++ {
			s.eulerInto(op, s.u1, s.u1, t+float64(i)*h, h)
		}
		out.CopyFrom(s.u1)

	case 2:
		// optimal second-order family: s-1 Euler substeps of dt/(s-1),
		// then a convex combination with the start value
		n := float64(s.stages - 1)
		h := dt / n
		s.u1.CopyFrom(in)
		for i := 0; i < s.stages-1; i++ {
			s.eulerInto(op, s.u1, s.u1, t+float64(i)*h, h)
		}
		s.eulerInto(op, s.u1, s.u1, t+dt, h)
		u0, u, v := in.Data(), s.u1.Data(), out.Data()
		sf := float64(s.stages)
		for i := range v {
			v[i] = (u0[i] + (sf-1.0)*u[i]) / sf
		}

	case 3:
		if s.stages == 3 {
			s.shuOsher33(in, out, t, dt, op)
		} else {
			s.ruuthSpiteri43(in, out, t, dt, op)
		}
	}
}

// shuOsher33 is the classic three-stage third-order SSP scheme.
func (s *SSPRK) shuOsher33(in, out *state.Field, t, dt float64, op RHS) {
	s.eulerInto(op, in, s.u1, t, dt)

	s.eulerInto(op, s.u1, s.u2, t+dt, dt)
	u0, u2 := in.Data(), s.u2.Data()
	for i := range u2 {
		u2[i] = 0.75*u0[i] + 0.25*u2[i]
	}

	s.eulerInto(op, s.u2, out, t+0.5*dt, dt)
	v := out.Data()
	for i := range v {
		v[i] = (u0[i] + 2.0*v[i]) / 3.0
	}
}

// ruuthSpiteri43 is the four-stage third-order SSP scheme with an
// effective CFL of two.
func (s *SSPRK) ruuthSpiteri43(in, out *state.Field, t, dt float64, op RHS) {
	h := 0.5 * dt
	s.eulerInto(op, in, s.u1, t, h)
	s.eulerInto(op, s.u1, s.u1, t+h, h)

	s.eulerInto(op, s.u1, s.u2, t+dt, h)
	u0, u2 := in.Data(), s.u2.Data()
	for i := range u2 {
		u2[i] = (2.0*u0[i] + u2[i]) / 3.0
	}

	s.eulerInto(op, s.u2, out, t+h, h)
}
