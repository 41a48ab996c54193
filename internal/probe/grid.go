package probe

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

// ErrInvalidParameter is optics.ErrInvalidParameter, repeated here so callers
// of this package need not import optics to test for it.
var ErrInvalidParameter = optics.ErrInvalidParameter

// ErrDivisionByZero is returned when a normalisation would divide by a zero
// peak, current or zero-frequency value.
var ErrDivisionByZero = errors.New("division by zero")

// ErrZeroAperture is returned for a zero aperture semiangle. The aperture
// integral vanishes, so the probe carries no current to normalise.
var ErrZeroAperture = fmt.Errorf("%w: zero aperture semiangle", ErrDivisionByZero)

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(
	lo, hi float64,
	n int,
) (
	[]float64, error,
) {
	if n < 2 || !(hi > lo) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("%w: linspace(%g, %g, %d)", ErrInvalidParameter, lo, hi, n)
	}
	g := floats.Span(make([]float64, n), lo, hi)
	g[n-1] = hi
	return g, nil
}

// ValidateGrid checks that g has at least min points and is finite,
// non-negative and strictly increasing.
func ValidateGrid(g []float64, min int) error {
	if len(g) < min {
		return fmt.Errorf("%w: grid has %d points, need %d", ErrInvalidParameter, len(g), min)
	}
	for i, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: grid[%d] = %g", ErrInvalidParameter, i, v)
		}
		if i > 0 && v <= g[i-1] {
			return fmt.Errorf("%w: grid not increasing at %d (%g <= %g)", ErrInvalidParameter, i, v, g[i-1])
		}
	}
	return nil
}

// normalizePeak divides v in place by its maximum so the peak is exactly 1.
func normalizePeak(v []float64) error {
	if floats.HasNaN(v) {
		return fmt.Errorf("%w: profile contains NaN", ErrDivisionByZero)
	}
	m := floats.Max(v)
	if !(m > 0) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: profile maximum is %g", ErrDivisionByZero, m)
	}
	for i := range v {
		v[i] /= m
	}
	return nil
}

// normalizeCurrent divides psf in place by its radially weighted current
// sum(psf*r).
func normalizeCurrent(psf, r []float64) error {
	a := floats.Dot(psf, r)
	if !(a > 0) || math.IsInf(a, 0) {
		return fmt.Errorf("%w: total current is %g", ErrDivisionByZero, a)
	}
	for i := range psf {
		psf[i] /= a
	}
	return nil
}

// autoRadius is sqrt(sqrt(Cs*wav^3)) with Cs floored at 0.1 mm, the scale
// of the aberration-limited probe.
func autoRadius(
	p optics.Parameters,
) (
	float64, error,
) {
	wav, err := optics.Wavelength(p.BeamEnergyKeV)
	if err != nil {
		return 0, err
	}
	cs := math.Max(math.Abs(p.Cs3mm), 0.1) * 1.0e7
	return math.Sqrt(math.Sqrt(cs * wav * wav * wav)), nil
}

// PSFRadius is the default outer radius of a PSF plot for p.
func PSFRadius(p optics.Parameters) (float64, error) {
	return autoRadius(p)
}

// MTFRadius is the outer radius of the integration grid used by MTF.
func MTFRadius(p optics.Parameters) (float64, error) {
	r, err := autoRadius(p)
	return 2 * r, err
}
