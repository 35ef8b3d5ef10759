package driver

import (
	"math"
	"testing"

	"github.com/mkron/eulerdg/internal/config"
	"github.com/mkron/eulerdg/internal/par"
)

func testParams() *config.Parameters {
	p := config.Default()
	p.Dimension = 2
	p.Degree = 2
	p.Scheme = "euler"
	p.CFL = 0.3
	p.FinalTime = 1.0
	p.OutputEvery = 0.5
	p.MaxSteps = 10000
	p.Refinements = 4
	p.AdaptiveRefinements = 0
	p.InitialCase = 2
	p.OutputDir = "" // no snapshots in tests
	return p
}

func TestRunEndToEnd(t *testing.T) {
	p := testParams()
	pr := New(p, par.Serial(), nil)
	rep, err := pr.Run()
	if err != nil {
		t.Fatal(err)
	}

	if pr.Phase() != Finished {
		t.Errorf("phase = %s, want finished", pr.Phase())
	}
	if rep.Outputs != 2 {
		t.Errorf("outputs = %d, want 2", rep.Outputs)
	}
	// the clock must land within one step of the final time
	overshoot := float64(rep.Steps)*rep.FinalStepSize - p.FinalTime
	if overshoot < -1e-9 || overshoot > rep.FinalStepSize {
		t.Errorf("steps %d x dt %g misses final time %g by %g",
			rep.Steps, rep.FinalStepSize, p.FinalTime, overshoot)
	}
	if !rep.Stable {
		t.Error("smooth standing-wave run reported unstable")
	}

	// initial output plus one sample per tick
	if len(pr.History()) != 3 {
		t.Fatalf("history has %d samples, want 3", len(pr.History()))
	}
	for i := 1; i < len(pr.History()); i++ {
		if pr.History()[i].Time <= pr.History()[i-1].Time {
			t.Error("history times not increasing")
		}
	}
}

func TestRunIsSingleUse(t *testing.T) {
	pr := New(testParams(), par.Serial(), nil)
	if _, err := pr.Run(); err != nil {
		t.Fatal(err)
	}
	if _, err := pr.Run(); err == nil {
		t.Error("second Run must fail")
	}
}

func TestDivergentRunDrainsCleanly(t *testing.T) {
	p := testParams()
	p.InitialCase = 1
	p.CFL = 10.0 // far beyond the explicit stability limit
	p.Refinements = 3
	p.FinalTime = 10.0
	p.OutputEvery = 1.0
	p.MaxSteps = 1000

	pr := New(p, par.Serial(), nil)
	rep, err := pr.Run()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Stable {
		t.Error("run at CFL 10 reported stable")
	}
	if rep.Steps >= 100 {
		t.Errorf("divergent run was not drained early (%d steps)", rep.Steps)
	}
	if pr.Phase() != Finished {
		t.Errorf("drained run must still finish, phase = %s", pr.Phase())
	}
}

func TestDivergentRunDetectedPastFinalTime(t *testing.T) {
	// dt = 1.8 * 0.25 = 0.45, so the output ticks land at t = 0.90 and
	// t = 1.35. Divergence is first confirmed at the second tick, when
	// the clock has already overshot the final time; the drain must not
	// try to move time backwards.
	p := testParams()
	p.CFL = 1.8
	p.Refinements = 2
	p.FinalTime = 1.0
	p.OutputEvery = 0.6

	pr := New(p, par.Serial(), nil)
	rep, err := pr.Run()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Stable {
		t.Error("run at CFL 1.8 reported stable")
	}
	if rep.Steps != 3 {
		t.Errorf("steps = %d, want 3", rep.Steps)
	}
	if pr.Phase() != Finished {
		t.Errorf("overshooting divergent run must still finish, phase = %s", pr.Phase())
	}
	if last := pr.History()[len(pr.History())-1].Time; last < p.FinalTime {
		t.Errorf("last sample at t=%g, expected the overshot tick past t=%g", last, p.FinalTime)
	}
}

func TestRunWithAdaptation(t *testing.T) {
	p := testParams()
	p.InitialCase = 1
	p.Refinements = 2
	p.AdaptiveRefinements = 2
	p.AdaptInterval = 5
	p.FinalTime = 0.5
	p.OutputEvery = 0.25

	pr := New(p, par.Serial(), nil)
	rep, err := pr.Run()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Steps == 0 || rep.Cells == 0 {
		t.Fatalf("empty report: %+v", rep)
	}
	// the gaussian pulse concentrates error, so pre-refinement must
	// have produced a finer mesh than the uniform baseline
	if rep.Cells <= 16 {
		t.Errorf("adaptive run ended with %d cells, expected refinement beyond 16", rep.Cells)
	}
	for _, s := range pr.History() {
		if math.IsNaN(s.ErrorDensity) || math.IsNaN(s.DensityMagnitude) {
			t.Fatal("NaN in history of a moderate-CFL run")
		}
	}
}
