package euler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mkron/eulerdg/internal/mesh"
	"github.com/mkron/eulerdg/internal/state"
)

func setup(t *testing.T, dim, refs int) (*mesh.Mesh, *Operator) {
	t.Helper()
	m, err := mesh.New(dim, refs)
	if err != nil {
		t.Fatal(err)
	}
	op := New(2, 2)
	op.Setup(m)
	return m, op
}

func TestConstantStateIsSteady(t *testing.T) {
	m, op := setup(t, 2, 3)
	in, out := state.NewField(m), state.NewField(m)
	for c := 0; c < m.NumCells(); c++ {
		in.Set(c, state.Density, 0.7)
		in.Set(c, in.Energy(), 0.7*SoundSpeed*SoundSpeed)
	}

	op.ApplyRHS(0, in, out)
	for c := 0; c < m.NumCells(); c++ {
		for k := 0; k < out.Components(); k++ {
			if math.Abs(out.At(c, k)) > 1e-12 {
				t.Fatalf("constant state must be steady, cell %d comp %d = %g", c, k, out.At(c, k))
			}
		}
	}
}

func TestRHSConservesMass(t *testing.T) {
	m, op := setup(t, 2, 2)
	m.FlagRefine(3)
	m.FlagRefine(9)
	m.ExecuteCoarseningAndRefinement()
	op.Setup(m)

	rng := rand.New(rand.NewSource(7))
	in, out := state.NewField(m), state.NewField(m)
	for c := 0; c < m.NumCells(); c++ {
		for k := 0; k < in.Components(); k++ {
			in.Set(c, k, rng.NormFloat64())
		}
	}

	op.ApplyRHS(0, in, out)

	// Walls admit no mass flux and interior fluxes telescope, so the
	// integral of the density right-hand side vanishes, hanging faces
	// included.
	sum := 0.0
	for c := 0; c < m.NumCells(); c++ {
		sum += m.Volume(c) * out.At(c, state.Density)
	}
	if math.Abs(sum) > 1e-10 {
		t.Errorf("density RHS integral should vanish, got %g", sum)
	}
}

func TestStandingWaveNearlySteadyAtStart(t *testing.T) {
	m, op := setup(t, 2, 4)
	f, rhs := state.NewField(m), state.NewField(m)
	op.ProjectField(0, f)

	// at t=0 the standing wave has zero momentum, so the analytic
	// density derivative is zero; the discrete one only carries the
	// O(h) dissipation of the flux
	op.ApplyRHS(0, f, rhs)
	maxRho := 0.0
	for c := 0; c < m.NumCells(); c++ {
		if v := math.Abs(rhs.At(c, state.Density)); v > maxRho {
			maxRho = v
		}
	}
	if maxRho > 1.0 {
		t.Errorf("standing-wave density RHS too large at t=0: %g", maxRho)
	}
}

func TestProjectFieldCase2(t *testing.T) {
	m, op := setup(t, 2, 3)
	f := state.NewField(m)
	op.ProjectField(0, f)

	for c := 0; c < m.NumCells(); c++ {
		for a := 0; a < 2; a++ {
			if f.At(c, 1+a) != 0 {
				t.Fatalf("standing wave momentum must vanish at t=0, cell %d", c)
			}
		}
	}
	// Πcos(πx) integrates to zero over the unit box.
	if mass := f.Mass(m); math.Abs(mass) > 1e-10 {
		t.Errorf("expected zero net mass for the standing wave, got %g", mass)
	}

	rho2, _, _, mag2 := op.ErrorNormsSquared(0, f)
	if rho := math.Sqrt(rho2); rho > 1e-12 {
		t.Errorf("projection must match the analytic field at t=0, error %g", rho)
	}
	if mag := math.Sqrt(mag2); mag < 0.1 {
		t.Errorf("solution magnitude should be O(1), got %g", mag)
	}
}

func TestErrorNormsSquaredAreQuadratic(t *testing.T) {
	// The returned sums must be the squared integrals, not their roots,
	// so that partition contributions combine by plain addition.
	m, op := setup(t, 2, 3)
	f := state.NewField(m)
	op.ProjectField(0, f)

	_, _, _, mag2 := op.ErrorNormsSquared(0, f)
	for c := 0; c < m.NumCells(); c++ {
		f.Set(c, state.Density, 2*f.At(c, state.Density))
	}
	_, _, _, scaled := op.ErrorNormsSquared(0, f)
	if math.Abs(scaled-4*mag2) > 1e-12*mag2 {
		t.Errorf("doubling the density must quadruple the squared magnitude: %g vs %g", scaled, 4*mag2)
	}
}

func TestErrorIndicatorFlagsJumps(t *testing.T) {
	m, op := setup(t, 2, 3)
	sol, scratch := state.NewField(m), state.NewField(m)

	// flat field everywhere except one cell
	bump := 12
	sol.Set(bump, state.Density, 5.0)

	indicator := make([]float64, m.NumCells())
	op.EstimateError(sol, scratch, indicator)

	if indicator[bump] == 0 {
		t.Error("bump cell must have a nonzero indicator")
	}
	maxOther := 0.0
	for c, v := range indicator {
		if c == bump {
			continue
		}
		if v > maxOther {
			maxOther = v
		}
	}
	if indicator[bump] < maxOther {
		t.Error("bump cell should dominate the indicator")
	}

	far := 0
	if indicator[far] != 0 && len(m.FaceNeighbors(far, 1)) > 0 {
		// cells not adjacent to the bump see no jump
		adjacent := false
		for dir := 0; dir < 4; dir++ {
			for _, j := range m.FaceNeighbors(far, dir) {
				if j == bump {
					adjacent = true
				}
			}
		}
		if !adjacent {
			t.Error("far cell should have zero indicator")
		}
	}
}

func TestStableTimeStepScalesWithMesh(t *testing.T) {
	mCoarse, opCoarse := setup(t, 2, 2)
	mFine, opFine := setup(t, 2, 4)

	dtC := opCoarse.StableTimeStep(0.5)
	dtF := opFine.StableTimeStep(0.5)
	if math.Abs(dtC/dtF-4.0) > 1e-12 {
		t.Errorf("two extra refinements should quarter the step: %g vs %g", dtC, dtF)
	}
	_ = mCoarse
	_ = mFine
}

func TestOperatorGenerationGuard(t *testing.T) {
	m, op := setup(t, 2, 2)
	f := state.NewField(m)

	m.FlagRefine(0)
	m.ExecuteCoarseningAndRefinement()

	defer func() {
		if recover() == nil {
			t.Error("stale operator use must panic")
		}
	}()
	op.ApplyRHS(0, f, f.Clone())
}
