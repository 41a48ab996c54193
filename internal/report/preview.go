//go:build gnuplot

package report

import (
	"github.com/Arafatk/glot"
)

// Preview saves a quick gnuplot rendering of (x, y) to name in the run
// directory. glot looks for gnuplot when the program starts, so this file is
// only built with the gnuplot tag.
func (r *Run) Preview(
	name, title, xlabel, ylabel string,
	x, y []float64,
) error {
	plot, err := glot.NewPlot(2, false, false)
	if err != nil {
		return err
	}
	if err := plot.AddPointGroup(title, "lines", [][]float64{x, y}); err != nil {
		return err
	}
	if err := plot.SetTitle(title); err != nil {
		return err
	}
	if err := plot.SetXLabel(xlabel); err != nil {
		return err
	}
	if err := plot.SetYLabel(ylabel); err != nil {
		return err
	}
	return plot.SavePlot(r.Path(name))
}
