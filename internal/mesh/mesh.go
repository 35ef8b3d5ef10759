// Package mesh implements an adaptive quadtree/octree mesh over the unit
// box.
//
// Cells split into 2^dim children and recombine when a whole sibling
// family is flagged for coarsening. Every structural rebuild increments a
// generation counter; state vectors record the generation they were built
// for, and any access across generations is a programming error caught at
// the API boundary.
package mesh

import (
	"fmt"
	"math"
)

const geomEps = 1e-9

type node struct {
	level    int
	center   [3]float64
	size     float64
	parent   *node
	children []*node

	// index is the position in the active-cell ordering, -1 for
	// interior nodes.
	index   int
	refine  bool
	coarsen bool

	// oldChildren holds the pre-rebuild indices of a coarsened family,
	// kept only until provenance is emitted.
	oldChildren []int
}

func (n *node) leaf() bool { return len(n.children) == 0 }

func (n *node) lo(axis int) float64 { return n.center[axis] - n.size/2 }
func (n *node) hi(axis int) float64 { return n.center[axis] + n.size/2 }

// Cell is the public view of one active cell.
type Cell struct {
	Index  int
	Level  int
	Center [3]float64
	Size   float64
}

// Kind tags how a post-rebuild cell relates to the previous generation.
type Kind int

const (
	// Kept: the cell survived unchanged; Old holds its previous index.
	Kept Kind = iota
	// Refined: the cell is a new child; Old holds its parent's index.
	Refined
	// Coarsened: the cell replaced its children; Old holds their indices.
	Coarsened
)

// Provenance maps one cell of the new generation back to the cells of
// the previous generation it derives from. The slice returned by
// ExecuteCoarseningAndRefinement is indexed by new cell index.
type Provenance struct {
	Kind Kind
	Old  []int
}

// Mesh is an adaptively refined mesh over [0,1]^dim, dim 2 or 3.
type Mesh struct {
	dim        int
	root       *node
	active     []*node
	generation int
}

// New builds a mesh uniformly refined to the given level. Dimension must
// be 2 or 3.
func New(dim, refinements int) (*Mesh, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("mesh: unsupported dimension %d", dim)
	}
	if refinements < 0 {
		return nil, fmt.Errorf("mesh: negative refinement count %d", refinements)
	}
	root := &node{size: 1.0, index: -1}
	for a := 0; a < dim; a++ {
		root.center[a] = 0.5
	}
	m := &Mesh{dim: dim, root: root}
	for r := 0; r < refinements; r++ {
		for _, n := range m.leaves() {
			m.split(n)
		}
	}
	m.rebuildActive()
	return m, nil
}

func (m *Mesh) Dim() int        { return m.dim }
func (m *Mesh) NumCells() int   { return len(m.active) }
func (m *Mesh) Generation() int { return m.generation }

func (m *Mesh) numChildren() int { return 1 << m.dim }

// Cell returns the active cell at index i.
func (m *Mesh) Cell(i int) Cell {
	n := m.active[i]
	return Cell{Index: i, Level: n.level, Center: n.center, Size: n.size}
}

// Cells returns all active cells in the deterministic depth-first order.
func (m *Mesh) Cells() []Cell {
	out := make([]Cell, len(m.active))
	for i := range m.active {
		out[i] = m.Cell(i)
	}
	return out
}

func (m *Mesh) Level(i int) int { return m.active[i].level }

// Volume returns the measure of cell i.
func (m *Mesh) Volume(i int) float64 {
	return math.Pow(m.active[i].size, float64(m.dim))
}

// MinCellDiameter is the smallest vertex distance over all active cells,
// which for axis-aligned boxes is the smallest edge length.
func (m *Mesh) MinCellDiameter() float64 {
	min := math.MaxFloat64
	for _, n := range m.active {
		if n.size < min {
			min = n.size
		}
	}
	return min
}

func (m *Mesh) FlagRefine(i int)  { m.active[i].refine = true }
func (m *Mesh) FlagCoarsen(i int) { m.active[i].coarsen = true }

func (m *Mesh) ClearRefine(i int)  { m.active[i].refine = false }
func (m *Mesh) ClearCoarsen(i int) { m.active[i].coarsen = false }

func (m *Mesh) RefineFlagged(i int) bool  { return m.active[i].refine }
func (m *Mesh) CoarsenFlagged(i int) bool { return m.active[i].coarsen }

// ClearFlags drops all refine and coarsen flags.
func (m *Mesh) ClearFlags() {
	for _, n := range m.active {
		n.refine = false
		n.coarsen = false
	}
}

// ExecuteCoarseningAndRefinement applies the current flags, increments
// the mesh generation and returns the provenance of every cell of the
// new generation. A family coarsens only when every sibling is an
// unrefined leaf flagged for coarsening; a flagged refine anywhere in
// the family wins over coarsening.
func (m *Mesh) ExecuteCoarseningAndRefinement() []Provenance {
	// Coarsening first: collect candidate parents from the active list.
	parents := make(map[*node]bool)
	for _, n := range m.active {
		if n.coarsen && n.parent != nil {
			parents[n.parent] = true
		}
	}
	for p := range parents {
		ok := true
		for _, c := range p.children {
			if !c.leaf() || !c.coarsen || c.refine {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		old := make([]int, len(p.children))
		for k, c := range p.children {
			old[k] = c.index
		}
		p.children = nil
		p.oldChildren = old
	}

	// Refinement on the remaining leaves.
	for _, n := range m.active {
		if n.refine && n.leaf() {
			m.split(n)
		}
	}

	leavesNow := m.leaves()
	prov := make([]Provenance, len(leavesNow))
	for i, n := range leavesNow {
		switch {
		case n.oldChildren != nil:
			prov[i] = Provenance{Kind: Coarsened, Old: n.oldChildren}
			n.oldChildren = nil
		case n.index >= 0:
			prov[i] = Provenance{Kind: Kept, Old: []int{n.index}}
		default:
			prov[i] = Provenance{Kind: Refined, Old: []int{n.parent.index}}
		}
	}

	m.rebuildActive()
	m.generation++
	m.ClearFlags()
	return prov
}

func (m *Mesh) split(n *node) {
	kids := m.numChildren()
	n.children = make([]*node, kids)
	for k := 0; k < kids; k++ {
		child := &node{
			level:  n.level + 1,
			size:   n.size / 2,
			parent: n,
			index:  -1,
		}
		for a := 0; a < m.dim; a++ {
			off := -n.size / 4
			if k&(1<<a) != 0 {
				off = n.size / 4
			}
			child.center[a] = n.center[a] + off
		}
		n.children[k] = child
	}
	n.refine = false
}

func (m *Mesh) leaves() []*node {
	var out []*node
	var walk func(*node)
	walk = func(n *node) {
		if n.leaf() {
			out = append(out, n)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(m.root)
	return out
}

func (m *Mesh) rebuildActive() {
	m.active = m.leaves()
	// Stamp old parents back to interior, then assign new indices.
	var clearIdx func(*node)
	clearIdx = func(n *node) {
		if !n.leaf() {
			n.index = -1
			for _, c := range n.children {
				clearIdx(c)
			}
		}
	}
	clearIdx(m.root)
	for i, n := range m.active {
		n.index = i
	}
}

// FaceNeighbors returns the active cells sharing the face of cell i in
// direction dir (0..2*dim-1: -x, +x, -y, +y, -z, +z). A face on the
// domain boundary has no neighbors. A hanging face returns every finer
// neighbor touching it.
func (m *Mesh) FaceNeighbors(i, dir int) []int {
	n := m.active[i]
	axis := dir / 2
	positive := dir%2 == 1

	var plane float64
	if positive {
		plane = n.hi(axis)
	} else {
		plane = n.lo(axis)
	}
	if plane < geomEps || plane > 1-geomEps {
		return nil
	}

	// Query box: a thin slab on the far side of the face, shrunk in the
	// tangential axes so corner-only contacts are excluded.
	var qlo, qhi [3]float64
	for a := 0; a < m.dim; a++ {
		if a == axis {
			if positive {
				qlo[a], qhi[a] = plane+geomEps, plane+3*geomEps
			} else {
				qlo[a], qhi[a] = plane-3*geomEps, plane-geomEps
			}
			continue
		}
		qlo[a] = n.lo(a) + n.size*1e-6
		qhi[a] = n.hi(a) - n.size*1e-6
	}

	var out []int
	var walk func(*node)
	walk = func(c *node) {
		for a := 0; a < m.dim; a++ {
			if c.hi(a) < qlo[a] || c.lo(a) > qhi[a] {
				return
			}
		}
		if c.leaf() {
			if c.index != i {
				out = append(out, c.index)
			}
			return
		}
		for _, ch := range c.children {
			walk(ch)
		}
	}
	walk(m.root)
	return out
}
