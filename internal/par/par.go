// Package par carries the partition context a simulation runs under.
//
// Every component that would otherwise reach for process-wide parallel
// state (rank, world size) receives a Context explicitly. Reductions are
// order-independent combines (sum, min, max) so results do not depend on
// how many partitions a mesh is split into.
package par

import "time"

// Context identifies one partition of a run.
type Context struct {
	Rank int
	Size int
}

// Serial is the single-partition context used by tests and the CLI.
func Serial() Context {
	return Context{Rank: 0, Size: 1}
}

// IsRoot reports whether this partition is responsible for aggregated
// output (index records, console reports).
func (c Context) IsRoot() bool {
	return c.Rank == 0
}

// Sum combines partial sums across partitions. With a single partition
// this is the identity; the combine is associative and commutative so a
// distributed implementation can fold in any order.
func (c Context) Sum(local float64) float64 {
	return local
}

// Min combines partial minima across partitions.
func (c Context) Min(local float64) float64 {
	return local
}

// Max combines partial maxima across partitions.
func (c Context) Max(local float64) float64 {
	return local
}

// MaxDuration combines partial wall-clock maxima, used for the timing
// report.
func (c Context) MaxDuration(local time.Duration) time.Duration {
	return local
}
