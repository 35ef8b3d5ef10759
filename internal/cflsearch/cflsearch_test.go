package cflsearch

import (
	"errors"
	"math"
	"testing"

	"github.com/mkron/eulerdg/internal/config"
)

// thresholdOracle declares a probe stable iff its CFL number is at or
// below the limit.
func thresholdOracle(limit float64) Oracle {
	return func(p *config.Parameters) (bool, error) {
		return p.CFL <= limit, nil
	}
}

func searchParams(cfl float64, degree int) *config.Parameters {
	p := config.Default()
	p.CFL = cfl
	p.Degree = degree
	return p
}

func TestPathologicallyLowStartFindsStableBound(t *testing.T) {
	p := searchParams(0.001, 1)
	res, err := Run(p, thresholdOracle(0.3), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasStable() {
		t.Fatal("no stable bound found from a tiny start")
	}
	if res.ClosestStable > 0.3+1e-12 {
		t.Errorf("stable bound %g exceeds the true limit", res.ClosestStable)
	}
}

func TestPathologicallyHighStartFindsInstableBound(t *testing.T) {
	p := searchParams(50.0, 1)
	res, err := Run(p, thresholdOracle(0.3), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasInstable() {
		t.Fatal("no instable bound found from a huge start")
	}
	if res.ClosestInstable <= 0.3 {
		t.Errorf("instable bound %g is below the true limit", res.ClosestInstable)
	}
}

func TestBisectionBracketsTheLimit(t *testing.T) {
	const limit = 0.3
	p := searchParams(1.0, 1)
	res, err := Run(p, thresholdOracle(limit), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasStable() || !res.HasInstable() {
		t.Fatalf("bounds not bracketed: %+v", res.Bounds)
	}
	if res.ClosestStable > limit || res.ClosestInstable <= limit {
		t.Errorf("bracket [%g, %g] does not contain the limit %g",
			res.ClosestStable, res.ClosestInstable, limit)
	}
	if res.ClosestInstable-res.ClosestStable > 0.05 {
		t.Errorf("bracket width %g too wide after %d iterations",
			res.ClosestInstable-res.ClosestStable, res.Iterations)
	}
}

func TestDegreeScalingOfReport(t *testing.T) {
	p := searchParams(0.2, 4)
	res, err := Run(p, thresholdOracle(1.0), nil)
	if err != nil {
		t.Fatal(err)
	}
	scale := math.Pow(4, 1.5)
	if math.Abs(res.ScaledStable-res.ClosestStable*scale) > 1e-12 {
		t.Error("stable report not scaled by degree^1.5")
	}
	want := (res.ClosestStable + res.ClosestInstable) / 2 * scale
	if math.Abs(res.ScaledMidpoint-want) > 1e-12 {
		t.Error("midpoint must average the stable and instable bounds")
	}
}

func TestProbeDoesNotMutateInputParameters(t *testing.T) {
	p := searchParams(1.0, 2)
	if _, err := Run(p, thresholdOracle(0.3), nil); err != nil {
		t.Fatal(err)
	}
	if p.CFL != 1.0 {
		t.Errorf("input CFL mutated to %g", p.CFL)
	}
}

func TestOracleErrorAborts(t *testing.T) {
	boom := errors.New("mesh rebuild failed")
	oracle := func(*config.Parameters) (bool, error) { return false, boom }
	if _, err := Run(config.Default(), oracle, nil); !errors.Is(err, boom) {
		t.Errorf("expected the oracle error, got %v", err)
	}
}
