package integrators

import "github.com/mkron/eulerdg/internal/state"

// Dormand-Prince 5(4) tableau; only the fifth-order weights are used
// here, which makes the seventh (FSAL) stage unnecessary.
var (
	dpA = [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
	}
	dpC = []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1.0}
	dpB = []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0}
)

// DoPri5 is the fifth-order Dormand-Prince scheme (six right-hand-side
// evaluations per step).
type DoPri5 struct {
	k     []*state.Field
	stage *state.Field
}

func (d *DoPri5) Name() string { return "dopri5" }
func (d *DoPri5) Order() int   { return 5 }

func (d *DoPri5) PerformTimeStep(in, out *state.Field, t, dt float64, op RHS) {
	if len(d.k) != len(dpB) {
		d.k = make([]*state.Field, len(dpB))
	}
	for s := range d.k {
		d.k[s] = ensureLike(d.k[s], in)
	}
	d.stage = ensureLike(d.stage, in)

	u := in.Data()
	sv := d.stage.Data()

	for s := 0; s < len(dpB); s++ {
		if s == 0 {
			op.ApplyRHS(t, in, d.k[0])
			continue
		}
		for i := range sv {
			acc := 0.0
			for j, a := range dpA[s] {
				acc += a * d.k[j].Data()[i]
			}
			sv[i] = u[i] + dt*acc
		}
		op.ApplyRHS(t+dpC[s]*dt, d.stage, d.k[s])
	}

	v := out.Data()
	for i := range v {
		acc := 0.0
		for s, b := range dpB {
			acc += b * d.k[s].Data()[i]
		}
		v[i] = u[i] + dt*acc
	}
}
