// Package output persists visualization snapshots of the solution field.
//
// One CSV per partition per output step, named after degree, scheme,
// test case, refinement count and output step. With more than one
// partition the root additionally writes a JSON index tying the
// per-partition files into one logical record.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mkron/eulerdg/internal/mesh"
	"github.com/mkron/eulerdg/internal/par"
	"github.com/mkron/eulerdg/internal/state"
)

type Writer struct {
	dir         string
	ctx         par.Context
	degree      int
	scheme      string
	initialCase int
	refinements int
}

func NewWriter(dir string, ctx par.Context, degree int, scheme string, initialCase, refinements int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Writer{
		dir:         dir,
		ctx:         ctx,
		degree:      degree,
		scheme:      scheme,
		initialCase: initialCase,
		refinements: refinements,
	}, nil
}

// SnapshotBase is the partition-independent part of a snapshot filename.
func (w *Writer) SnapshotBase(outputStep int) string {
	return fmt.Sprintf("sol_deg%d_%s_case%d_ref%d_step%03d",
		w.degree, w.scheme, w.initialCase, w.refinements, outputStep)
}

type indexRecord struct {
	Base       string   `json:"base"`
	Partitions []string `json:"partitions"`
}

// WriteSnapshot persists the field at one output step.
func (w *Writer) WriteSnapshot(m *mesh.Mesh, sol *state.Field, outputStep int) error {
	sol.CheckGeneration(m)

	base := w.SnapshotBase(outputStep)
	name := base
	if w.ctx.Size > 1 {
		name = fmt.Sprintf("%s_proc%d", base, w.ctx.Rank)
	}

	f, err := os.Create(filepath.Join(w.dir, name+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	dim := m.Dim()
	header := []string{"x", "y"}
	if dim == 3 {
		header = append(header, "z")
	}
	header = append(header, "level", "density")
	axes := []string{"momentum_x", "momentum_y", "momentum_z"}
	header = append(header, axes[:dim]...)
	header = append(header, "energy")
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < m.NumCells(); i++ {
		c := m.Cell(i)
		row := make([]string, 0, len(header))
		for a := 0; a < dim; a++ {
			row = append(row, strconv.FormatFloat(c.Center[a], 'f', 6, 64))
		}
		row = append(row, strconv.Itoa(c.Level))
		for _, v := range sol.CellValues(i) {
			row = append(row, strconv.FormatFloat(v, 'e', 8, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if w.ctx.Size > 1 && w.ctx.IsRoot() {
		return w.writeIndex(base)
	}
	return nil
}

func (w *Writer) writeIndex(base string) error {
	rec := indexRecord{Base: base}
	for p := 0; p < w.ctx.Size; p++ {
		rec.Partitions = append(rec.Partitions, fmt.Sprintf("%s_proc%d.csv", base, p))
	}
	f, err := os.Create(filepath.Join(w.dir, base+".json"))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
