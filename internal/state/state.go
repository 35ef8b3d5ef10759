// Package state holds the discretized solution vector.
//
// A Field is tied to the mesh generation it was allocated for. Mesh
// adaptation invalidates the indexing; the adaptation controller builds a
// fresh Field and interpolates into it, and any use of a stale Field is a
// programming error caught by the generation check, not a recoverable
// condition.
package state

import (
	"fmt"
	"math"

	"github.com/mkron/eulerdg/internal/mesh"
)

// Component indices within one cell.
const (
	Density = 0
	// Momentum components are 1..dim; Energy follows them.
)

// Field is a cell-major vector of dim+2 conserved quantities per cell.
type Field struct {
	dim        int
	ncomp      int
	ncells     int
	generation int
	data       []float64
}

// NewField allocates a zero field matching the mesh's current generation.
func NewField(m *mesh.Mesh) *Field {
	ncomp := m.Dim() + 2
	return &Field{
		dim:        m.Dim(),
		ncomp:      ncomp,
		ncells:     m.NumCells(),
		generation: m.Generation(),
		data:       make([]float64, m.NumCells()*ncomp),
	}
}

func (f *Field) Dim() int        { return f.dim }
func (f *Field) NumCells() int   { return f.ncells }
func (f *Field) Components() int { return f.ncomp }
func (f *Field) Generation() int { return f.generation }

// Energy returns the index of the energy component.
func (f *Field) Energy() int { return f.dim + 1 }

// CheckGeneration panics when the field's indexing no longer matches the
// mesh. Every read path through the driver goes through this gate.
func (f *Field) CheckGeneration(m *mesh.Mesh) {
	if f.generation != m.Generation() || f.ncells != m.NumCells() {
		panic(fmt.Sprintf("state: field of generation %d (%d cells) used with mesh generation %d (%d cells)",
			f.generation, f.ncells, m.Generation(), m.NumCells()))
	}
}

// At returns component k of cell c.
func (f *Field) At(c, k int) float64 { return f.data[c*f.ncomp+k] }

// Set writes component k of cell c.
func (f *Field) Set(c, k int, v float64) { f.data[c*f.ncomp+k] = v }

// CellValues returns the mutable component slice of cell c.
func (f *Field) CellValues(c int) []float64 {
	return f.data[c*f.ncomp : (c+1)*f.ncomp]
}

// Data exposes the raw vector for the integrators' axpy loops.
func (f *Field) Data() []float64 { return f.data }

// Clone copies the field, generation tag included.
func (f *Field) Clone() *Field {
	c := *f
	c.data = make([]float64, len(f.data))
	copy(c.data, f.data)
	return &c
}

// CopyFrom overwrites this field's values from another of the same shape.
func (f *Field) CopyFrom(src *Field) {
	if f.generation != src.generation || len(f.data) != len(src.data) {
		panic("state: CopyFrom across generations")
	}
	copy(f.data, src.data)
}

// Swap exchanges the storage of two fields of the same generation. The
// driver uses it to rotate current and previous solutions between steps.
func (f *Field) Swap(other *Field) {
	if f.generation != other.generation || len(f.data) != len(other.data) {
		panic("state: Swap across generations")
	}
	f.data, other.data = other.data, f.data
}

// Zero resets all values.
func (f *Field) Zero() {
	for i := range f.data {
		f.data[i] = 0
	}
}

// L2Norm returns the volume-weighted L2 norm of one component.
func (f *Field) L2Norm(m *mesh.Mesh, k int) float64 {
	f.CheckGeneration(m)
	sum := 0.0
	for c := 0; c < f.ncells; c++ {
		v := f.At(c, k)
		sum += m.Volume(c) * v * v
	}
	return math.Sqrt(sum)
}

// Mass returns the integral of the density component over the domain.
func (f *Field) Mass(m *mesh.Mesh) float64 {
	f.CheckGeneration(m)
	sum := 0.0
	for c := 0; c < f.ncells; c++ {
		sum += m.Volume(c) * f.At(c, Density)
	}
	return sum
}

// IsFinite reports whether every entry is a finite number.
func (f *Field) IsFinite() bool {
	for _, v := range f.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
