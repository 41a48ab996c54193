package report

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// figureSize is the edge of every saved figure.
const figureSize = 15 * vg.Inch

// prepPlot returns a titled, boxed plot over xrange x yrange with fonts
// scaled for print or, with slide set, for projection.
func prepPlot(
	title, xlabel, ylabel string,
	xrange, yrange [2]float64,
	slide bool,
) (
	*plot.Plot, error,
) {
	p := plot.New()
	p.BackgroundColor = color.RGBA{A: 0}
	p.Title.Text = title
	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"

	p.X.Label.Text = xlabel
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.LineStyle.Width = vg.Points(1.5)
	p.X.Min = xrange[0]
	p.X.Max = xrange[1]
	p.X.Tick.LineStyle.Width = vg.Points(1.5)
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Padding = vg.Points(-8)

	p.Y.Label.Text = ylabel
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.LineStyle.Width = vg.Points(1.5)
	p.Y.Min = yrange[0]
	p.Y.Max = yrange[1]
	p.Y.Tick.LineStyle.Width = vg.Points(1.5)
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Padding = vg.Points(-6)

	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-25)
	p.Legend.YOffs = vg.Points(25)
	p.Legend.Padding = vg.Points(10)
	p.Legend.ThumbnailWidth = vg.Points(50)

	titleSize, labelSize, legendSize := font.Length(50), font.Length(36), font.Length(28)
	labelPad := font.Length(20)
	if slide {
		titleSize, labelSize, legendSize = 80, 56, 56
		labelPad = 40
	}
	p.Title.TextStyle.Font.Size = titleSize
	p.Title.Padding = titleSize
	p.X.Label.TextStyle.Font.Size = labelSize
	p.X.Label.Padding = labelPad
	p.X.Tick.Label.Font.Size = labelSize
	p.Y.Label.TextStyle.Font.Size = labelSize
	p.Y.Label.Padding = labelPad
	p.Y.Tick.Label.Font.Size = labelSize
	p.Legend.TextStyle.Font.Size = legendSize

	// enclose the plot with top and right axes
	top, err := plotter.NewLine(plotter.XYs{
		{X: xrange[0], Y: yrange[1]},
		{X: xrange[1], Y: yrange[1]},
	})
	if err != nil {
		return nil, err
	}
	right, err := plotter.NewLine(plotter.XYs{
		{X: xrange[1], Y: yrange[0]},
		{X: xrange[1], Y: yrange[1]},
	})
	if err != nil {
		return nil, err
	}
	top.LineStyle.Width = vg.Points(1.5)
	right.LineStyle.Width = vg.Points(1.5)
	p.Add(top, right)
	return p, nil
}

var (
	lightColors = []color.RGBA{
		{R: 31, G: 211, B: 172, A: 255},
		{R: 255, G: 122, B: 180, A: 255},
		{R: 122, G: 156, B: 255, A: 255},
		{R: 91, G: 22, B: 22, A: 255},
		{R: 188, G: 117, B: 255, A: 255},
		{R: 234, G: 156, B: 172, A: 255},
		{R: 1, G: 56, B: 84, A: 255},
		{R: 46, G: 140, B: 60, A: 255},
		{R: 140, G: 46, B: 49, A: 255},
		{R: 122, G: 41, B: 104, A: 255},
		{R: 41, G: 122, B: 100, A: 255},
		{R: 122, G: 90, B: 41, A: 255},
		{R: 255, G: 193, B: 122, A: 255},
		{R: 22, G: 44, B: 91, A: 255},
		{R: 59, G: 17, B: 66, A: 255},
		{R: 27, G: 150, B: 146, A: 255},
		{R: 255, G: 102, B: 102, A: 255},
	}
	darkColors = []color.RGBA{
		{R: 27, G: 170, B: 139, A: 255},
		{R: 201, G: 104, B: 146, A: 255},
		{R: 99, G: 124, B: 198, A: 255},
		{R: 91, G: 22, B: 22, A: 255},
		{R: 188, G: 117, B: 255, A: 255},
		{R: 234, G: 156, B: 172, A: 255},
		{R: 1, G: 56, B: 84, A: 255},
		{R: 46, G: 140, B: 60, A: 255},
		{R: 140, G: 46, B: 49, A: 255},
		{R: 122, G: 41, B: 104, A: 255},
		{R: 41, G: 122, B: 100, A: 255},
		{R: 122, G: 90, B: 41, A: 255},
		{R: 183, G: 139, B: 89, A: 255},
		{R: 22, G: 44, B: 91, A: 255},
		{R: 59, G: 17, B: 66, A: 255},
		{R: 18, G: 102, B: 99, A: 255},
		{R: 255, G: 102, B: 102, A: 255},
	}
)

// palette returns the brush-th series colour. Dark shades are used for
// markers drawn over a light line of the same brush.
func palette(brush int, dark bool) color.RGBA {
	if brush < 0 {
		brush = -brush
	}
	if dark {
		return darkColors[brush%len(darkColors)]
	}
	return lightColors[brush%len(lightColors)]
}

// Save writes p as name.<format> for each of the run's formats.
func (r *Run) Save(p *plot.Plot, name string) error {
	for _, format := range r.Formats {
		if err := p.Save(figureSize, figureSize, r.Path(name+"."+format)); err != nil {
			return err
		}
	}
	return nil
}
