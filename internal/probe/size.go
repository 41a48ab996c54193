package probe

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

func checkProfile(r, psf []float64) error {
	if len(r) != len(psf) {
		return fmt.Errorf("%w: %d radii but %d intensities", ErrInvalidParameter, len(r), len(psf))
	}
	if err := ValidateGrid(r, 2); err != nil {
		return err
	}
	for i, v := range psf {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: psf[%d] = %g", ErrInvalidParameter, i, v)
		}
	}
	return nil
}

// HalfCurrentDiameter returns the FWHM-II probe size: the diameter enclosing
// half of the radially weighted current sum(psf*r).
//
// The crossing is located on a left Riemann cumulative sum by scanning down
// from the outermost radius and interpolating linearly inside the bracket.
// When the bracket would start at index 0 or 1 there is nothing to
// interpolate; the result is then 2*r[1] and degenerate is true.
func HalfCurrentDiameter(
	r, psf []float64,
) (
	size float64, degenerate bool, err error,
) {
	if err := checkProfile(r, psf); err != nil {
		return 0, false, err
	}
	cum := make([]float64, len(psf))
	floats.MulTo(cum, psf, r)
	floats.CumSum(cum, cum)

	n := len(cum)
	total := cum[n-1]
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, false, fmt.Errorf("%w: total current is %g", ErrDivisionByZero, total)
	}
	target := 0.5 * total

	j := n - 1
	for i := n - 1; i >= 1; i-- {
		j = i
		if cum[i] < target {
			break
		}
	}
	if j <= 1 {
		return 2 * r[1], true, nil
	}
	d := math.Abs((r[j+1] - r[j]) * (target - cum[j]) / (cum[j+1] - cum[j]))
	return 2 * (r[j] + d), false, nil
}

// HalfMaxDiameter returns the conventional FWHM of the intensity profile:
// twice the radius at which psf first falls below half its maximum, linearly
// interpolated.
func HalfMaxDiameter(r, psf []float64) (float64, error) {
	if err := checkProfile(r, psf); err != nil {
		return 0, err
	}
	peak := floats.Max(psf)
	if !(peak > 0) {
		return 0, fmt.Errorf("%w: profile maximum is %g", ErrDivisionByZero, peak)
	}
	half := 0.5 * peak
	for i := 1; i < len(psf); i++ {
		if psf[i] >= half || psf[i-1] < half {
			continue
		}
		t := (psf[i-1] - half) / (psf[i-1] - psf[i])
		return 2 * (r[i-1] + t*(r[i]-r[i-1])), nil
	}
	return 0, fmt.Errorf("%w: profile never falls below half maximum", ErrInvalidParameter)
}

// ProbeSize computes ChromaticPSF on r and returns it with its
// HalfCurrentDiameter. A degenerate size is logged as a warning.
func (e *Engine) ProbeSize(
	ctx context.Context,
	r []float64,
	p optics.Parameters,
) (
	psf []float64, size float64, err error,
) {
	return MeasureSize(ctx, e, e.log, r, p)
}

// MeasureSize is ProbeSize for any Profiler.
func MeasureSize(
	ctx context.Context,
	src Profiler,
	log logrus.FieldLogger,
	r []float64,
	p optics.Parameters,
) (
	psf []float64, size float64, err error,
) {
	if err := ValidateGrid(r, 2); err != nil {
		return nil, 0, err
	}
	psf, err = src.ChromaticPSF(ctx, r, p)
	if err != nil {
		return nil, 0, err
	}
	size, degenerate, err := HalfCurrentDiameter(r, psf)
	if err != nil {
		return nil, 0, err
	}
	if degenerate {
		orDiscard(log).WithFields(logrus.Fields{
			"points":  len(r),
			"size":    size,
			"defocus": p.DefocusA,
		}).Warn("half-current crossing inside first grid step, probe size is 2*r[1]")
	}
	return psf, size, nil
}
