// Package plot exports the error history of a run as a PNG figure.
package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/mkron/eulerdg/internal/driver"
)

// WritePNG plots the per-component error norms over time.
func WritePNG(history []driver.Sample, title, path string) error {
	if len(history) == 0 {
		return fmt.Errorf("plot: empty history")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Y.Label.Text = "L2 error"
	p.Legend.Top = true

	curves := []struct {
		name string
		pick func(driver.Sample) float64
	}{
		{"density", func(s driver.Sample) float64 { return s.ErrorDensity }},
		{"momentum", func(s driver.Sample) float64 { return s.ErrorMomentum }},
		{"energy", func(s driver.Sample) float64 { return s.ErrorEnergy }},
	}
	for i, c := range curves {
		xys := make(plotter.XYs, len(history))
		for j, s := range history {
			xys[j].X = s.Time
			xys[j].Y = c.pick(s)
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(c.name, line)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
