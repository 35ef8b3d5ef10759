// Package driver orchestrates one simulation run: mesh construction,
// discretization setup, initial pre-refinement, the time-stepping loop
// with periodic adaptation and output, and the final timing report.
package driver

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mkron/eulerdg/internal/adapt"
	"github.com/mkron/eulerdg/internal/config"
	"github.com/mkron/eulerdg/internal/euler"
	"github.com/mkron/eulerdg/internal/integrators"
	"github.com/mkron/eulerdg/internal/mesh"
	"github.com/mkron/eulerdg/internal/output"
	"github.com/mkron/eulerdg/internal/par"
	"github.com/mkron/eulerdg/internal/stability"
	"github.com/mkron/eulerdg/internal/state"
	"github.com/mkron/eulerdg/internal/timectl"
)

// Phase tracks how far a Problem has progressed through its lifecycle.
type Phase int

const (
	Uninitialized Phase = iota
	GridReady
	DofsReady
	InitialRefinement
	Running
	Finished
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case GridReady:
		return "grid-ready"
	case DofsReady:
		return "dofs-ready"
	case InitialRefinement:
		return "initial-refinement"
	case Running:
		return "running"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Sample is one output-tick observation of the error trajectory.
type Sample struct {
	Time             float64
	ErrorDensity     float64
	ErrorMomentum    float64
	ErrorEnergy      float64
	DensityMagnitude float64
}

// Report summarizes a finished run. It is valid even for a run the
// stability monitor drained early, so the CFL search always gets a
// usable verdict and timing record.
type Report struct {
	Steps   int
	Cells   int
	Outputs int
	Stable  bool

	WallTime        time.Duration
	OutputTime      time.Duration
	AdaptTime       time.Duration
	PerStep         time.Duration
	PerStepPerCell  time.Duration
	FinalTime       float64
	FinalStepSize   float64
}

// Problem owns the state vector and every component of one run. A
// Problem is single-use: construct, Run, read the report, discard.
type Problem struct {
	params *config.Parameters
	ctx    par.Context
	log    *zap.Logger

	phase Phase
	m     *mesh.Mesh
	op    *euler.Operator
	integ integrators.Integrator
	tc    timectl.Control
	mon   *stability.Monitor
	ctrl  *adapt.Controller
	out   *output.Writer

	sol, tmp *state.Field

	history    []Sample
	sampleHook func(Sample)
}

func New(p *config.Parameters, ctx par.Context, log *zap.Logger) *Problem {
	if log == nil {
		log = zap.NewNop()
	}
	return &Problem{params: p, ctx: ctx, log: log, mon: stability.New()}
}

func (pr *Problem) Phase() Phase      { return pr.phase }
func (pr *Problem) History() []Sample { return pr.history }

// SetSampleHook registers a callback invoked with every output-tick
// sample, used by the live view. Must be set before Run.
func (pr *Problem) SetSampleHook(fn func(Sample)) { pr.sampleHook = fn }

// CFLStable is the oracle verdict of a finished run.
func (pr *Problem) CFLStable() bool {
	return !pr.mon.IsDivergent()
}

func (pr *Problem) makeGrid() error {
	m, err := mesh.New(pr.params.Dimension, pr.params.Refinements)
	if err != nil {
		return err
	}
	pr.m = m
	pr.phase = GridReady
	return nil
}

func (pr *Problem) makeDofs() error {
	pr.op = euler.New(pr.params.Degree, pr.params.InitialCase)
	pr.op.Setup(pr.m)

	integ, err := integrators.New(pr.params.Scheme, pr.params.SSPRKStages, pr.params.SSPRKOrder)
	if err != nil {
		return err
	}
	pr.integ = integ

	pr.sol = state.NewField(pr.m)
	pr.tmp = state.NewField(pr.m)

	dt := pr.ctx.Min(pr.op.StableTimeStep(pr.params.CFL))
	pr.tc.Setup(pr.params.FinalTime, pr.params.OutputEvery, dt, pr.params.MaxSteps)
	pr.log.Info("discretization ready",
		zap.String("operator", pr.op.Name()),
		zap.String("integrator", pr.integ.Name()),
		zap.Int("cells", pr.m.NumCells()),
		zap.Float64("dt", dt))

	pr.ctrl = adapt.NewController(pr.op, adapt.Policy{
		MinLevel:        pr.params.MinLevel(),
		MaxLevel:        pr.params.MaxLevel(),
		Interval:        pr.params.AdaptInterval,
		RefineFraction:  pr.params.RefineFraction,
		CoarsenFraction: pr.params.CoarsenFraction,
	})

	pr.phase = DofsReady
	return nil
}

// initialRefinement resolves the initial condition on the adapted mesh:
// repeatedly adapt and re-project, then latch the reference error that
// anchors the suppression thresholds for the rest of the run.
func (pr *Problem) initialRefinement() {
	pr.phase = InitialRefinement
	pr.op.ProjectField(0, pr.sol)

	for left := pr.params.AdaptiveRefinements; left > 0; left-- {
		pr.sol = pr.ctrl.Adapt(pr.m, pr.sol)
		pr.afterRebuild()
		pr.op.ProjectField(0, pr.sol)

		if left == 1 {
			indicator := make([]float64, pr.m.NumCells())
			pr.op.EstimateError(pr.sol, pr.tmp, indicator)
			maxErr := 0.0
			for _, v := range indicator {
				if v > maxErr {
					maxErr = v
				}
			}
			pr.ctrl.SetReferenceError(pr.ctx.Max(maxErr))
			pr.log.Info("initial refinement done",
				zap.Int("cells", pr.m.NumCells()),
				zap.Float64("reference_error", pr.ctrl.ReferenceError()))
		}
	}
}

// afterRebuild re-binds everything keyed on the mesh generation and
// propagates the new stable step size.
func (pr *Problem) afterRebuild() {
	pr.op.Setup(pr.m)
	pr.tmp = state.NewField(pr.m)
	pr.tc.SetTimeStep(pr.ctx.Min(pr.op.StableTimeStep(pr.params.CFL)))
}

// observeAndOutput evaluates the error norms, feeds the stability
// monitor, drains the run on divergence and writes a snapshot.
// The initial-condition call passes monitor=false: at time zero the
// error against the projected field is identically zero and would poison
// the monitor's baseline.
func (pr *Problem) observeAndOutput(monitor bool) error {
	t := pr.tc.Time()
	// The partition-local contributions are squared integrals; sum those
	// across partitions and take the root of the global sum.
	rho, mom, energy, rhoMag := pr.op.ErrorNormsSquared(t, pr.sol)
	rho, mom = math.Sqrt(pr.ctx.Sum(rho)), math.Sqrt(pr.ctx.Sum(mom))
	energy, rhoMag = math.Sqrt(pr.ctx.Sum(energy)), math.Sqrt(pr.ctx.Sum(rhoMag))

	smp := Sample{
		Time:             t,
		ErrorDensity:     rho,
		ErrorMomentum:    mom,
		ErrorEnergy:      energy,
		DensityMagnitude: rhoMag,
	}
	pr.history = append(pr.history, smp)
	if pr.sampleHook != nil {
		pr.sampleHook(smp)
	}
	pr.log.Info("output tick",
		zap.Float64("time", t),
		zap.Int("step", pr.tc.StepNumber()),
		zap.Float64("error_rho", rho),
		zap.Float64("error_mom", mom),
		zap.Float64("error_energy", energy),
		zap.Float64("mag_rho", rhoMag))

	if monitor {
		pr.mon.Observe(rho, rhoMag)
		if pr.mon.IsDivergent() {
			// Drain to the final time instead of aborting, so the run
			// still produces a complete report for the CFL search.
			pr.log.Warn("divergence detected, draining run",
				zap.Float64("last_error", pr.mon.LastError()),
				zap.Float64("first_error", pr.mon.FirstError()))
			// The last step may already have overshot the final time;
			// the clock only moves forward, so skip the jump then.
			if pr.params.FinalTime > pr.tc.Time() {
				pr.tc.SetTime(pr.params.FinalTime)
			}
		}
	}

	if pr.out == nil {
		return nil
	}
	return pr.out.WriteSnapshot(pr.m, pr.sol, pr.tc.OutputStepNumber())
}

// Run executes the full lifecycle and returns the final report.
func (pr *Problem) Run() (Report, error) {
	if pr.phase != Uninitialized {
		return Report{}, fmt.Errorf("driver: Run on a used problem (phase %s)", pr.phase)
	}
	if err := pr.makeGrid(); err != nil {
		return Report{}, err
	}
	if err := pr.makeDofs(); err != nil {
		return Report{}, err
	}

	if pr.params.OutputDir != "" {
		w, err := output.NewWriter(pr.params.OutputDir, pr.ctx,
			pr.params.Degree, pr.op.Name(), pr.params.InitialCase, pr.params.Refinements)
		if err != nil {
			return Report{}, err
		}
		pr.out = w
	}

	pr.initialRefinement()

	if err := pr.observeAndOutput(false); err != nil {
		return Report{}, err
	}

	pr.phase = Running
	var wtime, outputTime, adaptTime time.Duration
	for !pr.tc.Done() {
		pr.tc.AdvanceTimeStep()
		stepStart := pr.tc.Time() - pr.tc.StepSize()

		mark := time.Now()
		pr.tmp.Swap(pr.sol)
		pr.integ.PerformTimeStep(pr.tmp, pr.sol, stepStart, pr.tc.StepSize(), pr.op)
		wtime += time.Since(mark)

		mark = time.Now()
		if next, adapted := pr.ctrl.MaybeAdapt(pr.tc.StepNumber(), pr.m, pr.sol); adapted {
			pr.sol = next
			pr.afterRebuild()
			adaptTime += time.Since(mark)
		}

		mark = time.Now()
		if pr.tc.AtTick() {
			if err := pr.observeAndOutput(true); err != nil {
				return Report{}, err
			}
		}
		outputTime += time.Since(mark)
	}
	pr.phase = Finished

	rep := Report{
		Steps:         pr.tc.StepNumber(),
		Cells:         pr.m.NumCells(),
		Outputs:       pr.tc.OutputStepNumber(),
		Stable:        pr.CFLStable(),
		WallTime:      pr.ctx.MaxDuration(wtime),
		OutputTime:    outputTime,
		AdaptTime:     pr.ctx.MaxDuration(adaptTime),
		FinalTime:     pr.tc.Time(),
		FinalStepSize: pr.tc.StepSize(),
	}
	if rep.Steps > 0 {
		rep.PerStep = rep.WallTime / time.Duration(rep.Steps)
		rep.PerStepPerCell = rep.PerStep / time.Duration(rep.Cells)
	}

	pr.log.Info("run finished",
		zap.Int("steps", rep.Steps),
		zap.Int("cells", rep.Cells),
		zap.Int("outputs", rep.Outputs),
		zap.Bool("stable", rep.Stable),
		zap.Duration("per_step", rep.PerStep),
		zap.Duration("per_step_per_cell", rep.PerStepPerCell),
		zap.Duration("output_time", rep.OutputTime),
		zap.Duration("adapt_time", rep.AdaptTime),
		zap.Duration("compute_time", rep.WallTime))
	return rep, nil
}
