// Package timectl tracks the simulation clock: current time, step count,
// step size and the output cadence.
package timectl

import (
	"fmt"
	"math"
)

// tickSlop absorbs accumulated floating-point error when the step size
// does not evenly divide the output interval.
const tickSlop = 1e-8

// Control is the time state of one simulation run.
//
// The zero value is unusable; call Setup exactly once before stepping.
type Control struct {
	time           float64
	finalTime      float64
	stepSize       float64
	outputInterval float64
	stepNumber     int
	maxSteps       int
	lastTick       int
	outputStep     int
	initialized    bool
}

// Setup initializes the clock. Non-positive final time, output interval
// or step size is a precondition violation and panics.
func (c *Control) Setup(finalTime, outputInterval, stepSize float64, maxSteps int) {
	if c.initialized {
		panic("timectl: Setup called twice")
	}
	if finalTime <= 0 || outputInterval <= 0 || stepSize <= 0 || maxSteps <= 0 {
		panic(fmt.Sprintf("timectl: invalid setup (final=%g interval=%g step=%g max=%d)",
			finalTime, outputInterval, stepSize, maxSteps))
	}
	c.finalTime = finalTime
	c.outputInterval = outputInterval
	c.stepSize = stepSize
	c.maxSteps = maxSteps
	c.initialized = true
}

// AdvanceTimeStep moves the clock forward by one step. Called once per
// loop iteration, before the state is integrated.
func (c *Control) AdvanceTimeStep() {
	if !c.initialized {
		panic("timectl: AdvanceTimeStep before Setup")
	}
	c.stepNumber++
	c.time += c.stepSize
}

// AtTick reports whether the clock has crossed the next output-interval
// multiple since the previous tick, and consumes the tick. Tick crossing
// compares floor-based tick indices, not time equality, so a step size
// that does not divide the interval neither skips nor double-fires.
func (c *Control) AtTick() bool {
	idx := int(math.Floor(c.time/c.outputInterval + tickSlop))
	if idx <= c.lastTick {
		return false
	}
	c.lastTick = idx
	c.outputStep++
	return true
}

// Done reports whether the run is over: final time reached or the step
// budget exhausted.
func (c *Control) Done() bool {
	return c.time >= c.finalTime-tickSlop*c.finalTime || c.stepNumber >= c.maxSteps
}

// SetTimeStep changes the step size; takes effect on the next
// AdvanceTimeStep. Used after mesh adaptation changes the stable step.
func (c *Control) SetTimeStep(v float64) {
	if v <= 0 {
		panic(fmt.Sprintf("timectl: non-positive step size %g", v))
	}
	c.stepSize = v
}

// SetTime jumps the clock forward. The only caller is the divergence
// early-exit, which drains the run by jumping to the final time; moving
// time backwards panics.
func (c *Control) SetTime(t float64) {
	if t < c.time {
		panic(fmt.Sprintf("timectl: time must not decrease (%g -> %g)", c.time, t))
	}
	c.time = t
}

func (c *Control) Time() float64      { return c.time }
func (c *Control) FinalTime() float64 { return c.finalTime }
func (c *Control) StepSize() float64  { return c.stepSize }
func (c *Control) StepNumber() int    { return c.stepNumber }

// OutputStepNumber counts emitted outputs; 0 until the first tick, so the
// initial-condition snapshot can use index 0.
func (c *Control) OutputStepNumber() int { return c.outputStep }
