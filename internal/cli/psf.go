package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HamletTheHamster/stemprobe/internal/fit"
	"github.com/HamletTheHamster/stemprobe/internal/probe"
	"github.com/HamletTheHamster/stemprobe/internal/report"
)

func (a *app) psfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "psf",
		Short: "Radial probe intensity and FWHM-II probe size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPSF(cmd)
		},
	}
	f := cmd.Flags()
	f.Int("points", 300, "radial grid points")
	f.Float64("rmax", 0, "outer radius (A), 0 = automatic")
	a.bindShared(cmd, "points", "grid.points")
	a.bindShared(cmd, "rmax", "grid.rmax_a")
	return cmd
}

func (a *app) runPSF(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	s, err := a.start(ctx, "psf")
	if err != nil {
		return err
	}
	defer closeInto(s, &err)

	r, err := s.cfg.Radii()
	if err != nil {
		return err
	}
	psf, size, err := s.engine.ProbeSize(ctx, r, s.cfg.Optics)
	if err != nil {
		return err
	}
	s.run.Logf("Radial grid: %d points to %.4g A", len(r), r[len(r)-1])
	s.run.Logf("FWHM-II probe size: %.4f A", size)
	fmt.Fprintf(a.stdout, "FWHM-II probe size: %.4f A\n", size)

	labels := []string{"FWHM-II"}
	sizes := []float64{size}

	if fwhm, err := probe.HalfMaxDiameter(r, psf); err != nil {
		s.log.WithError(err).Warn("amplitude FWHM unavailable")
	} else {
		s.run.Logf("Amplitude FWHM: %.4f A", fwhm)
		labels = append(labels, "FWHM")
		sizes = append(sizes, fwhm)
	}

	var curve []float64
	gfit, err := fit.Gaussian(r, psf, fit.Options{})
	if err != nil {
		s.log.WithError(err).Warn("gaussian fit failed")
	} else {
		curve = gfit.Curve(r)
		s.run.Logf("Gaussian fit: A = %.4g, sigma = %.4g A, C = %.3g, FWHM = %.4f A, rms = %.3g",
			gfit.Amplitude, gfit.Sigma, gfit.Offset, gfit.FWHM, gfit.RMS)
		labels = append(labels, "Gaussian")
		sizes = append(sizes, gfit.FWHM)
	}

	p, err := report.PSFPlot(r, psf, curve, size, s.cfg.Optics, s.run.Slide)
	if err != nil {
		return err
	}
	if err := s.run.Save(p, "psf"); err != nil {
		return err
	}
	bars, err := report.SizeBars(labels, sizes, s.run.Slide)
	if err != nil {
		return err
	}
	if err := s.run.Save(bars, "sizes"); err != nil {
		return err
	}

	if curve != nil {
		resid := make([]float64, len(psf))
		for i := range psf {
			resid[i] = psf[i] - curve[i]
		}
		hist, err := report.ResidualHist(resid, s.run.Slide)
		if err != nil {
			return err
		}
		if err := s.run.Save(hist, "residuals"); err != nil {
			return err
		}
		box, err := report.ResidualBox(resid, s.run.Slide)
		if err != nil {
			return err
		}
		if err := s.run.Save(box, "residual-box"); err != nil {
			return err
		}
		if err := s.run.WriteCSV("psf.csv", []string{"r_a", "psf", "gaussian_fit"}, r, psf, curve); err != nil {
			return err
		}
	} else if err := s.run.WriteCSV("psf.csv", []string{"r_a", "psf"}, r, psf); err != nil {
		return err
	}

	if s.cfg.Output.Preview {
		if err := s.run.Preview("psf-preview.png", "PSF", "r (A)", "intensity", r, psf); err != nil {
			s.log.WithError(err).Warn("gnuplot preview failed")
		}
	}
	return a.finish(s)
}
