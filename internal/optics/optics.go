// Package optics holds the electron-optical parameters of a STEM probe-forming
// lens and the aberration function evaluated inside the diffraction integral.
package optics

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is returned for parameters or grids that cannot be
// computed on. No computation is attempted once it is reported.
var ErrInvalidParameter = errors.New("invalid parameter")

// Parameters describes the lens and beam.
//
//	BeamEnergyKeV  = electron energy (keV)
//	Cs3mm          = third order spherical aberration (mm)
//	Cs5mm          = fifth order spherical aberration (mm)
//	DefocusA       = defocus (Angstroms)
//	ApertureMrad   = objective aperture semiangle (mrad)
//	DefocusSpreadA = FWHM of the defocus spread (Angstroms)
//
// Cs3 and Cs5 may be negative (corrected lenses).
type Parameters struct {
	BeamEnergyKeV  float64 `json:"beam_energy_kev" yaml:"beam_energy_kev" mapstructure:"beam_energy_kev"`
	Cs3mm          float64 `json:"cs3_mm" yaml:"cs3_mm" mapstructure:"cs3_mm"`
	Cs5mm          float64 `json:"cs5_mm" yaml:"cs5_mm" mapstructure:"cs5_mm"`
	DefocusA       float64 `json:"defocus_a" yaml:"defocus_a" mapstructure:"defocus_a"`
	ApertureMrad   float64 `json:"aperture_mrad" yaml:"aperture_mrad" mapstructure:"aperture_mrad"`
	DefocusSpreadA float64 `json:"defocus_spread_a" yaml:"defocus_spread_a" mapstructure:"defocus_spread_a"`
}

// Validate reports the first parameter that is out of its domain.
func (p Parameters) Validate() error {
	switch {
	case !finite(p.BeamEnergyKeV) || p.BeamEnergyKeV <= 0:
		return fmt.Errorf("%w: beam energy %g keV must be > 0", ErrInvalidParameter, p.BeamEnergyKeV)
	case !finite(p.Cs3mm):
		return fmt.Errorf("%w: Cs3 %g mm", ErrInvalidParameter, p.Cs3mm)
	case !finite(p.Cs5mm):
		return fmt.Errorf("%w: Cs5 %g mm", ErrInvalidParameter, p.Cs5mm)
	case !finite(p.DefocusA):
		return fmt.Errorf("%w: defocus %g A", ErrInvalidParameter, p.DefocusA)
	case !finite(p.ApertureMrad) || p.ApertureMrad < 0:
		return fmt.Errorf("%w: aperture %g mrad must be >= 0", ErrInvalidParameter, p.ApertureMrad)
	case !finite(p.DefocusSpreadA) || p.DefocusSpreadA < 0:
		return fmt.Errorf("%w: defocus spread %g A must be >= 0", ErrInvalidParameter, p.DefocusSpreadA)
	}
	return nil
}

// WithDefocus returns a copy of p with the defocus replaced.
func (p Parameters) WithDefocus(df float64) Parameters {
	p.DefocusA = df
	return p
}

// String formats p the way plot titles and the run log show it.
func (p Parameters) String() string {
	return fmt.Sprintf(
		"Cs3= %gmm, Cs5= %gmm, df= %gA, E= %gkeV, OA= %gmrad, ddf= %gA",
		p.Cs3mm, p.Cs5mm, p.DefocusA, p.BeamEnergyKeV, p.ApertureMrad, p.DefocusSpreadA,
	)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
