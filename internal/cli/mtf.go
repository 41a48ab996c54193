package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HamletTheHamster/stemprobe/internal/report"
)

func (a *app) mtfCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mtf",
		Short: "Modulation-transfer function of the probe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMTF(cmd)
		},
	}
	f := cmd.Flags()
	f.Float64("kmax", 0, "highest spatial frequency (1/A), 0 = twice the aperture cutoff")
	f.Int("kpoints", 200, "spatial frequency points")
	a.bind(f, map[string]string{
		"grid.kmax_inv_a": "kmax",
		"grid.kpoints":    "kpoints",
	})
	return cmd
}

func (a *app) runMTF(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	s, err := a.start(ctx, "mtf")
	if err != nil {
		return err
	}
	defer closeInto(s, &err)

	k, err := s.cfg.Frequencies()
	if err != nil {
		return err
	}
	mtf, err := s.engine.MTF(ctx, k, s.cfg.Optics)
	if err != nil {
		return err
	}
	s.run.Logf("Frequency grid: %d points to %.4g 1/A", len(k), k[len(k)-1])
	cutoff := -1.0
	for i, v := range mtf {
		if v < 0.01 {
			cutoff = k[i]
			break
		}
	}
	if cutoff >= 0 {
		s.run.Logf("MTF falls below 1%% at %.4g 1/A (%.4g A)", cutoff, 1/cutoff)
		fmt.Fprintf(a.stdout, "MTF falls below 1%% at %.4g 1/A\n", cutoff)
	}

	p, err := report.MTFPlot(k, mtf, s.cfg.Optics, s.run.Slide)
	if err != nil {
		return err
	}
	if err := s.run.Save(p, "mtf"); err != nil {
		return err
	}
	if err := s.run.WriteCSV("mtf.csv", []string{"k_inv_a", "mtf"}, k, mtf); err != nil {
		return err
	}
	if s.cfg.Output.Preview {
		if err := s.run.Preview("mtf-preview.png", "MTF", "k (1/A)", "MTF", k, mtf); err != nil {
			s.log.WithError(err).Warn("gnuplot preview failed")
		}
	}
	return a.finish(s)
}
