package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot"

	"github.com/HamletTheHamster/stemprobe/internal/probe"
	"github.com/HamletTheHamster/stemprobe/internal/report"
)

func (a *app) focusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Through-focus series of probe size with an animated PSF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFocus(cmd)
		},
	}
	f := cmd.Flags()
	f.Float64("start", -200, "first defocus (A)")
	f.Float64("stop", 200, "last defocus (A)")
	f.Int("frames", 21, "defocus steps")
	f.Int("delay", 10, "GIF frame delay (1/100 s)")
	f.Int("points", 300, "radial grid points")
	f.Float64("rmax", 0, "outer radius (A), 0 = automatic")
	a.bind(f, map[string]string{
		"focus.start_a": "start",
		"focus.stop_a":  "stop",
		"focus.frames":  "frames",
		"focus.delay":   "delay",
	})
	a.bindShared(cmd, "points", "grid.points")
	a.bindShared(cmd, "rmax", "grid.rmax_a")
	return cmd
}

func (a *app) runFocus(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	s, err := a.start(ctx, "focus")
	if err != nil {
		return err
	}
	defer closeInto(s, &err)

	r, err := s.cfg.Radii()
	if err != nil {
		return err
	}
	defoci, err := s.cfg.Defoci()
	if err != nil {
		return err
	}
	frames, err := s.engine.FocusSeries(ctx, r, s.cfg.Optics, defoci)
	if err != nil {
		return err
	}

	sizes := make([]float64, len(frames))
	plots := make([]*plot.Plot, len(frames))
	s.run.Logf("Defocus (A)\tFWHM-II (A)")
	for i, f := range frames {
		sizes[i] = f.SizeA
		flag := ""
		if f.Degenerate {
			flag = "\t(degenerate)"
		}
		s.run.Logf("%.2f\t%.4f%s", f.DefocusA, f.SizeA, flag)

		p, err := report.PSFPlot(r, f.PSF, nil, f.SizeA, s.cfg.Optics.WithDefocus(f.DefocusA), s.run.Slide)
		if err != nil {
			return err
		}
		plots[i] = p
	}

	best := probe.BestFocus(frames)
	if best >= 0 {
		s.run.Logf("Optimum defocus: %.2f A, FWHM-II %.4f A", frames[best].DefocusA, frames[best].SizeA)
		fmt.Fprintf(a.stdout, "Optimum defocus: %.2f A (FWHM-II %.4f A)\n", frames[best].DefocusA, frames[best].SizeA)
	}

	p, err := report.FocusPlot(defoci, sizes, best, s.cfg.Optics, s.run.Slide)
	if err != nil {
		return err
	}
	if err := s.run.Save(p, "focus"); err != nil {
		return err
	}
	if err := s.run.WriteGIF("focus.gif", plots, s.cfg.Focus.Delay); err != nil {
		return err
	}
	if err := s.run.WriteCSV("focus.csv", []string{"defocus_a", "fwhm_ii_a"}, defoci, sizes); err != nil {
		return err
	}
	return a.finish(s)
}
