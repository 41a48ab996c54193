package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HamletTheHamster/stemprobe/internal/potential"
	"github.com/HamletTheHamster/stemprobe/internal/report"
)

type potentialFlags struct {
	atoms      string
	xmax, ymax float64
	nx, ny     int
}

func (a *app) potentialCommand() *cobra.Command {
	var pf potentialFlags
	cmd := &cobra.Command{
		Use:   "potential",
		Short: "Projected potential of an atom list",
		Long: `potential reads a CSV of atoms (Z, x, y, depth, occupancy; an optional
header line) and deposits Z^2*occupancy on a periodic pixel grid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPotential(cmd, pf)
		},
	}
	f := cmd.Flags()
	f.StringVar(&pf.atoms, "atoms", "", "atom list CSV")
	f.Float64Var(&pf.xmax, "xmax", 20, "slice width (A)")
	f.Float64Var(&pf.ymax, "ymax", 20, "slice height (A)")
	f.IntVar(&pf.nx, "nx", 128, "pixels along x")
	f.IntVar(&pf.ny, "ny", 128, "pixels along y")
	if err := cmd.MarkFlagRequired("atoms"); err != nil {
		panic(err)
	}
	return cmd
}

func (a *app) runPotential(cmd *cobra.Command, pf potentialFlags) (err error) {
	s, err := a.start(cmd.Context(), "potential")
	if err != nil {
		return err
	}
	defer closeInto(s, &err)

	atoms, err := potential.LoadAtoms(pf.atoms)
	if err != nil {
		return err
	}
	slice := potential.Slice{XMax: pf.xmax, YMax: pf.ymax, NX: pf.nx, NY: pf.ny}
	v, err := potential.Project(atoms, slice)
	if err != nil {
		return err
	}
	dx, dy := slice.Pixel()
	s.run.Logf("Atoms: %d from %s", len(atoms), pf.atoms)
	s.run.Logf("Slice: %.4g x %.4g A on %d x %d pixels", pf.xmax, pf.ymax, pf.nx, pf.ny)
	fmt.Fprintf(a.stdout, "Projected %d atoms onto %dx%d pixels\n", len(atoms), pf.nx, pf.ny)

	p, err := report.PotentialHeatMap(v, dx, dy, s.run.Slide)
	if err != nil {
		return err
	}
	if err := s.run.Save(p, "potential"); err != nil {
		return err
	}

	n := pf.nx * pf.ny
	xs, ys, vs := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	for i := 0; i < pf.nx; i++ {
		for j := 0; j < pf.ny; j++ {
			xs = append(xs, float64(i)*dx)
			ys = append(ys, float64(j)*dy)
			vs = append(vs, v.At(i, j))
		}
	}
	if err := s.run.WriteCSV("potential.csv", []string{"x_a", "y_a", "v"}, xs, ys, vs); err != nil {
		return err
	}
	return a.finish(s)
}
