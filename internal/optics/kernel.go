package optics

import (
	"math"
	"math/cmplx"
)

const (
	// mmToAngstrom converts aberration coefficients from mm to Angstroms.
	mmToAngstrom = 1.0e7
	mradToRad    = 1.0e-3
)

// Constants are derived once per Parameters value. Any change of defocus
// needs a fresh Derive.
type Constants struct {
	Wavelength float64 // Angstroms
	KMax       float64 // aperture cutoff (1/Angstroms)
	W2         float64 // pi*wav*df
	W4         float64 // 0.5*pi*Cs3*wav^3
	W6         float64 // (1/3)*pi*Cs5*wav^5
}

// Derive computes the wavelength, the aperture cutoff and the aberration
// phase coefficients of p.
func Derive(
	p Parameters,
) (
	Constants, error,
) {
	if err := p.Validate(); err != nil {
		return Constants{}, err
	}
	wav, err := Wavelength(p.BeamEnergyKeV)
	if err != nil {
		return Constants{}, err
	}

	cs3 := p.Cs3mm * mmToAngstrom
	cs5 := p.Cs5mm * mmToAngstrom
	wav3 := wav * wav * wav

	return Constants{
		Wavelength: wav,
		KMax:       p.ApertureMrad * mradToRad / wav,
		W2:         wav * math.Pi * p.DefocusA,
		W4:         0.5 * math.Pi * cs3 * wav3,
		W6:         math.Pi * cs5 * wav3 * wav * wav / 3.0,
	}, nil
}

// Kernel returns the integrand context for radius r (Angstroms).
func (c Constants) Kernel(r float64) Kernel {
	return Kernel{W2: c.W2, W4: c.W4, W6: c.W6, RadiusFactor: 2 * math.Pi * r}
}

// Kernel is the immutable context of the diffraction integrand at one
// radius. RadiusFactor is 2*pi*r.
//
//	chi(k) = pi*wav*k^2*[ 0.5*Cs3*wav^2*k^2 + (1/3)*Cs5*wav^4*k^4 - df ]
type Kernel struct {
	W2, W4, W6   float64
	RadiusFactor float64
}

// Phase returns the aberration phase chi at spatial frequency k.
func (kn Kernel) Phase(k float64) float64 {
	k2 := k * k
	return ((kn.W6*k2+kn.W4)*k2 - kn.W2) * k2
}

// Integrand returns exp(-i*chi(k)) * J0(2*pi*r*k) * k. The real part is
// cos(chi)*J0*k and the imaginary part -sin(chi)*J0*k, both from the same chi.
func (kn Kernel) Integrand(k float64) complex128 {
	amp := math.J0(kn.RadiusFactor*k) * k
	return cmplx.Rect(amp, -kn.Phase(k))
}
