package integrators

import "github.com/mkron/eulerdg/internal/state"

// lsrk is a two-register low-storage Runge-Kutta scheme in
// Williamson (2N) form:
//
//	k <- A[s]*k + dt*f(t + c[s]*dt, u)
//	u <- u + B[s]*k
//
// Only the solution register and one stage register are carried.
type lsrk struct {
	name    string
	order   int
	a, b, c []float64

	k, tmp *state.Field
}

// newLSRK33Reg2 is Williamson's three-stage third-order 2N scheme.
func newLSRK33Reg2() *lsrk {
	return &lsrk{
		name:  "lsrk33reg2",
		order: 3,
		a:     []float64{0, -5.0 / 9.0, -153.0 / 128.0},
		b:     []float64{1.0 / 3.0, 15.0 / 16.0, 8.0 / 15.0},
		c:     []float64{0, 1.0 / 3.0, 3.0 / 4.0},
	}
}

// newLSRK45Reg2 is the Carpenter-Kennedy five-stage fourth-order 2N
// scheme.
func newLSRK45Reg2() *lsrk {
	return &lsrk{
		name:  "lsrk45reg2",
		order: 4,
		a: []float64{
			0,
			-567301805773.0 / 1357537059087.0,
			-2404267990393.0 / 2016746695238.0,
			-3550918686646.0 / 2091501179385.0,
			-1275806237668.0 / 842570457699.0,
		},
		b: []float64{
			1432997174477.0 / 9575080441755.0,
			5161836677717.0 / 13612068292357.0,
			1720146321549.0 / 2090206949498.0,
			3134564353537.0 / 4481467310338.0,
			2277821191437.0 / 14882151754819.0,
		},
		c: []float64{
			0,
			1432997174477.0 / 9575080441755.0,
			2526269341429.0 / 6820363962896.0,
			2006345519317.0 / 3224310063776.0,
			2802321613138.0 / 2924317926251.0,
		},
	}
}

func (l *lsrk) Name() string { return l.name }
func (l *lsrk) Order() int   { return l.order }

func (l *lsrk) PerformTimeStep(in, out *state.Field, t, dt float64, op RHS) {
	l.k = ensureLike(l.k, in)
	l.tmp = ensureLike(l.tmp, in)

	out.CopyFrom(in)
	l.k.Zero()
	k := l.k.Data()
	f := l.tmp.Data()
	u := out.Data()

	for s := range l.b {
		op.ApplyRHS(t+l.c[s]*dt, out, l.tmp)
		a, b := l.a[s], l.b[s]
		for i := range u {
			k[i] = a*k[i] + dt*f[i]
			u[i] += b * k[i]
		}
	}
}
