package report

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	plotpalette "gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

func xys(x, y []float64) (plotter.XYs, error) {
	if len(x) != len(y) || len(x) == 0 {
		return nil, fmt.Errorf("report: %d x values but %d y values", len(x), len(y))
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts, nil
}

func span(v []float64) [2]float64 {
	lo, hi := floats.Min(v), floats.Max(v)
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return [2]float64{lo, hi}
}

// PSFPlot draws a radial PSF. fit, when not nil, is overlaid dashed, and a
// vertical marker is drawn at the half-current radius size/2.
func PSFPlot(
	r, psf, fit []float64,
	size float64,
	p optics.Parameters,
	slide bool,
) (
	*plot.Plot, error,
) {
	pts, err := xys(r, psf)
	if err != nil {
		return nil, err
	}
	pl, err := prepPlot("Probe intensity\n"+p.String(), "Radius (A)", "Intensity (a.u.)",
		[2]float64{r[0], r[len(r)-1]}, [2]float64{0, 1.05}, slide)
	if err != nil {
		return nil, err
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(4)
	line.LineStyle.Color = palette(0, false)
	pl.Add(line)
	pl.Legend.Add("PSF", line)

	if fit != nil {
		fpts, err := xys(r, fit)
		if err != nil {
			return nil, err
		}
		fl, err := plotter.NewLine(fpts)
		if err != nil {
			return nil, err
		}
		fl.LineStyle.Width = vg.Points(3)
		fl.LineStyle.Color = palette(1, true)
		fl.LineStyle.Dashes = []vg.Length{vg.Points(12), vg.Points(6)}
		pl.Add(fl)
		pl.Legend.Add("Gaussian fit", fl)
	}

	if size > 0 {
		marker, err := plotter.NewLine(plotter.XYs{{X: size / 2, Y: 0}, {X: size / 2, Y: 1.05}})
		if err != nil {
			return nil, err
		}
		marker.LineStyle.Width = vg.Points(2)
		marker.LineStyle.Color = palette(2, true)
		pl.Add(marker)
		pl.Legend.Add(fmt.Sprintf("FWHM-II/2 = %.3f A", size/2), marker)
	}
	return pl, nil
}

// MTFPlot draws the transfer function against spatial frequency.
func MTFPlot(
	k, mtf []float64,
	p optics.Parameters,
	slide bool,
) (
	*plot.Plot, error,
) {
	pts, err := xys(k, mtf)
	if err != nil {
		return nil, err
	}
	yr := span(append([]float64{0}, mtf...))
	pl, err := prepPlot("Modulation transfer\n"+p.String(), "Spatial frequency (1/A)", "MTF",
		[2]float64{k[0], k[len(k)-1]}, [2]float64{yr[0], math.Max(yr[1], 1) * 1.05}, slide)
	if err != nil {
		return nil, err
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(4)
	line.LineStyle.Color = palette(2, false)
	pl.Add(line)
	pl.Legend.Add("MTF", line)
	return pl, nil
}

// FocusPlot draws probe size against defocus and marks best, the index of
// the smallest probe (ignored when negative).
func FocusPlot(
	defoci, sizes []float64,
	best int,
	p optics.Parameters,
	slide bool,
) (
	*plot.Plot, error,
) {
	pts, err := xys(defoci, sizes)
	if err != nil {
		return nil, err
	}
	yr := span(sizes)
	pl, err := prepPlot("Through-focus probe size\n"+p.String(), "Defocus (A)", "FWHM-II (A)",
		span(defoci), [2]float64{0, yr[1] * 1.1}, slide)
	if err != nil {
		return nil, err
	}
	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(3)
	line.LineStyle.Color = palette(4, false)
	scatter.Shape = draw.CircleGlyph{}
	scatter.Radius = vg.Points(8)
	scatter.Color = palette(4, true)
	pl.Add(line, scatter)
	pl.Legend.Add("FWHM-II", line, scatter)

	if best >= 0 && best < len(pts) {
		opt, err := plotter.NewScatter(plotter.XYs{pts[best]})
		if err != nil {
			return nil, err
		}
		opt.Shape = draw.PyramidGlyph{}
		opt.Radius = vg.Points(14)
		opt.Color = palette(1, true)
		pl.Add(opt)
		pl.Legend.Add(fmt.Sprintf("optimum %.1f A", pts[best].X), opt)
	}
	return pl, nil
}

// SizeBars compares probe-size measures side by side.
func SizeBars(
	labels []string,
	sizes []float64,
	slide bool,
) (
	*plot.Plot, error,
) {
	if len(labels) != len(sizes) || len(sizes) == 0 {
		return nil, fmt.Errorf("report: %d labels for %d sizes", len(labels), len(sizes))
	}
	pl, err := prepPlot("Probe size", "", "Diameter (A)",
		[2]float64{-0.5, float64(len(sizes)) - 0.5}, [2]float64{0, floats.Max(sizes) * 1.15}, slide)
	if err != nil {
		return nil, err
	}
	bars, err := plotter.NewBarChart(plotter.Values(sizes), vg.Points(60))
	if err != nil {
		return nil, err
	}
	bars.Color = palette(2, false)
	bars.LineStyle.Width = vg.Points(1.5)
	pl.Add(bars)
	pl.NominalX(labels...)
	return pl, nil
}

// ResidualHist histograms the residuals of a fit.
func ResidualHist(
	residuals []float64,
	slide bool,
) (
	*plot.Plot, error,
) {
	if len(residuals) == 0 {
		return nil, fmt.Errorf("report: no residuals")
	}
	hist, err := plotter.NewHist(plotter.Values(residuals), 20)
	if err != nil {
		return nil, err
	}
	hist.FillColor = palette(0, false)
	var hmax float64
	for _, b := range hist.Bins {
		hmax = math.Max(hmax, b.Weight)
	}
	xr := span(residuals)
	pl, err := prepPlot("Fit residuals", "PSF - fit", "Count", xr, [2]float64{0, hmax * 1.1}, slide)
	if err != nil {
		return nil, err
	}
	pl.Add(hist)
	return pl, nil
}

// ResidualBox summarises the residuals of a fit as a single box.
func ResidualBox(
	residuals []float64,
	slide bool,
) (
	*plot.Plot, error,
) {
	if len(residuals) == 0 {
		return nil, fmt.Errorf("report: no residuals")
	}
	box, err := plotter.NewBoxPlot(vg.Length(40), 0, plotter.Values(residuals))
	if err != nil {
		return nil, err
	}
	box.FillColor = palette(1, false)
	pl, err := prepPlot("Fit residuals", "", "PSF - fit", [2]float64{-1, 1}, span(residuals), slide)
	if err != nil {
		return nil, err
	}
	pl.Add(box)
	pl.NominalX("Gaussian")
	return pl, nil
}

type potentialGrid struct {
	v      *mat.Dense
	dx, dy float64
}

func (g potentialGrid) Dims() (c, r int)   { return g.v.Dims() }
func (g potentialGrid) Z(c, r int) float64 { return g.v.At(c, r) }
func (g potentialGrid) X(c int) float64    { return float64(c) * g.dx }
func (g potentialGrid) Y(r int) float64    { return float64(r) * g.dy }

// PotentialHeatMap renders a projected potential indexed [ix, iy] with
// pixel sizes dx and dy.
func PotentialHeatMap(
	v *mat.Dense,
	dx, dy float64,
	slide bool,
) (
	*plot.Plot, error,
) {
	g := potentialGrid{v: v, dx: dx, dy: dy}
	nx, ny := v.Dims()
	pl, err := prepPlot("Projected potential", "x (A)", "y (A)",
		[2]float64{-dx / 2, (float64(nx) - 0.5) * dx},
		[2]float64{-dy / 2, (float64(ny) - 0.5) * dy}, slide)
	if err != nil {
		return nil, err
	}
	hm := plotter.NewHeatMap(g, plotpalette.Heat(32, 1))
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	pl.Add(hm)
	return pl, nil
}
