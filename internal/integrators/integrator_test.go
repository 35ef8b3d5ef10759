package integrators

import (
	"math"
	"testing"

	"github.com/mkron/eulerdg/internal/mesh"
	"github.com/mkron/eulerdg/internal/state"
)

// linRHS is du/dt = u + cos(t), with the exact solution
// u(t) = (u0 + 1/2) e^t + (sin t - cos t)/2. The time-dependent term
// exercises the stage-time coefficients.
type linRHS struct{}

func (linRHS) ApplyRHS(t float64, in, out *state.Field) {
	u, v := in.Data(), out.Data()
	ct := math.Cos(t)
	for i := range v {
		v[i] = u[i] + ct
	}
}

func exactLin(u0, t float64) float64 {
	return (u0+0.5)*math.Exp(t) + (math.Sin(t)-math.Cos(t))/2
}

// constRHS is du/dt = 3.
type constRHS struct{}

func (constRHS) ApplyRHS(t float64, in, out *state.Field) {
	v := out.Data()
	for i := range v {
		v[i] = 3.0
	}
}

func singleCell(t *testing.T) (*state.Field, *state.Field) {
	t.Helper()
	m, err := mesh.New(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	return state.NewField(m), state.NewField(m)
}

func allSchemes(t *testing.T) []Integrator {
	t.Helper()
	var out []Integrator
	for _, name := range []string{"euler", "rk4", "lsrk33reg2", "lsrk45reg2", "rk44reg3", "dopri5"} {
		in, err := New(name, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, in)
	}
	for _, so := range [][2]int{{5, 1}, {2, 2}, {4, 2}, {3, 3}, {4, 3}} {
		in, err := New("ssprk", so[0], so[1])
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, in)
	}
	return out
}

// integrate advances u0=1 from t=0 to t=1 in n steps and returns the
// terminal error against the exact solution.
func globalError(ig Integrator, in, out *state.Field, n int) float64 {
	for i := range in.Data() {
		in.Data()[i] = 1.0
	}
	dt := 1.0 / float64(n)
	t := 0.0
	for s := 0; s < n; s++ {
		ig.PerformTimeStep(in, out, t, dt, linRHS{})
		in.Swap(out)
		t += dt
	}
	return math.Abs(in.Data()[0] - exactLin(1.0, 1.0))
}

func TestOrderOfAccuracy(t *testing.T) {
	in, out := singleCell(t)
	for _, ig := range allSchemes(t) {
		e1 := globalError(ig, in, out, 16)
		e2 := globalError(ig, in, out, 32)
		if e2 == 0 {
			continue // below machine precision
		}
		measured := math.Log2(e1 / e2)
		if measured < float64(ig.Order())-0.35 {
			t.Errorf("%s: expected order %d, measured %.2f (errors %g -> %g)",
				ig.Name(), ig.Order(), measured, e1, e2)
		}
	}
}

func TestConsistencyOnConstantRHS(t *testing.T) {
	// every scheme's weights sum to one, so du/dt = 3 advances exactly
	in, out := singleCell(t)
	for _, ig := range allSchemes(t) {
		for i := range in.Data() {
			in.Data()[i] = 2.0
		}
		ig.PerformTimeStep(in, out, 0, 0.25, constRHS{})
		for i, v := range out.Data() {
			if math.Abs(v-2.75) > 1e-12 {
				t.Errorf("%s: entry %d expected 2.75, got %g", ig.Name(), i, v)
			}
		}
	}
}

func TestStepIsPureFunctionOfInputs(t *testing.T) {
	in, out := singleCell(t)
	for _, ig := range allSchemes(t) {
		for i := range in.Data() {
			in.Data()[i] = 1.3
		}
		before := in.Clone()

		ig.PerformTimeStep(in, out, 0.2, 0.1, linRHS{})
		first := out.Clone()
		ig.PerformTimeStep(in, out, 0.2, 0.1, linRHS{})

		for i := range in.Data() {
			if in.Data()[i] != before.Data()[i] {
				t.Fatalf("%s: input state mutated", ig.Name())
			}
			if out.Data()[i] != first.Data()[i] {
				t.Fatalf("%s: repeated step not deterministic", ig.Name())
			}
		}
	}
}

func TestEulerMatchesHandComputedStep(t *testing.T) {
	in, out := singleCell(t)
	for i := range in.Data() {
		in.Data()[i] = 1.0
	}
	ig, _ := New("euler", 0, 0)
	ig.PerformTimeStep(in, out, 0, 0.5, linRHS{})

	// u + dt*(u + cos 0) = 1 + 0.5*2 = 2
	if math.Abs(out.Data()[0]-2.0) > 1e-15 {
		t.Errorf("expected 2.0, got %g", out.Data()[0])
	}
}

func TestFactoryRejectsUnknownScheme(t *testing.T) {
	if _, err := New("leapfrog", 0, 0); err == nil {
		t.Error("unknown scheme must error")
	}
}

func TestSSPRKUnsupportedCombos(t *testing.T) {
	tests := [][2]int{{1, 2}, {2, 3}, {5, 3}, {4, 4}, {8, 5}}
	for _, so := range tests {
		if _, err := NewSSPRK(so[0], so[1]); err == nil {
			t.Errorf("ssprk(%d,%d) should be rejected", so[0], so[1])
		}
	}
}

func TestScratchSurvivesGenerationChange(t *testing.T) {
	m, _ := mesh.New(2, 1)
	in, out := state.NewField(m), state.NewField(m)
	ig, _ := New("lsrk45reg2", 0, 0)
	ig.PerformTimeStep(in, out, 0, 0.1, constRHS{})

	// rebuild the mesh; the integrator must re-shape its buffers
	m.FlagRefine(0)
	m.ExecuteCoarseningAndRefinement()
	in2, out2 := state.NewField(m), state.NewField(m)
	ig.PerformTimeStep(in2, out2, 0, 0.1, constRHS{})

	if len(out2.Data()) != m.NumCells()*4 {
		t.Fatal("integrator output has wrong shape after generation change")
	}
	for _, v := range out2.Data() {
		if math.Abs(v-0.3) > 1e-14 {
			t.Errorf("expected 0.3 everywhere, got %g", v)
		}
	}
}
