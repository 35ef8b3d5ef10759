// Package stability accumulates the error signal of a run and flags
// divergence.
//
// The divergence test is a heuristic, not a proof of instability: it
// compares the latest error against the error and solution magnitude
// observed at the first output tick, which in practice separates stable
// and unstable CFL numbers well enough for bisection.
package stability

// Monitor records the error trajectory of a single run.
type Monitor struct {
	firstError     float64
	firstMagnitude float64
	lastError      float64
	observed       bool
}

// New returns a monitor with no observations.
func New() *Monitor {
	return &Monitor{}
}

// Observe is called once per output tick with the current error and a
// reference solution magnitude. The first call latches both as the
// baseline; every call updates the latest error.
func (m *Monitor) Observe(errorMagnitude, referenceMagnitude float64) {
	if !m.observed {
		m.firstError = errorMagnitude
		m.firstMagnitude = referenceMagnitude
		m.observed = true
	}
	m.lastError = errorMagnitude
}

// IsDivergent reports whether the run should be considered unstable:
// the error grew a hundredfold over its initial value, or past 1.5x the
// initial solution magnitude.
func (m *Monitor) IsDivergent() bool {
	if !m.observed {
		return false
	}
	return m.lastError > 100.0*m.firstError || m.lastError > 1.5*m.firstMagnitude
}

// Observed reports whether any output tick has been seen.
func (m *Monitor) Observed() bool { return m.observed }

// FirstError returns the latched baseline error.
func (m *Monitor) FirstError() float64 { return m.firstError }

// LastError returns the most recent error observation.
func (m *Monitor) LastError() float64 { return m.lastError }
