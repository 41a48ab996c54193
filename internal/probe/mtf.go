package probe

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

// MTFPoints is the size of the radial grid MTF integrates over.
const MTFPoints = 500

// MTF returns the modulation-transfer function at spatial frequencies k
// (1/A), normalised to 1 at k[0]. The chromatic PSF is evaluated on
// Linspace(0, MTFRadius(p), MTFPoints) and transformed with a zero-order
// Bessel weighted radial sum.
func (e *Engine) MTF(
	ctx context.Context,
	k []float64,
	p optics.Parameters,
) (
	[]float64, error,
) {
	if err := ValidateGrid(k, 1); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rmax, err := MTFRadius(p)
	if err != nil {
		return nil, err
	}
	r, err := Linspace(0, rmax, MTFPoints)
	if err != nil {
		return nil, err
	}
	psf, err := e.ChromaticPSF(ctx, r, p)
	if err != nil {
		return nil, err
	}

	mtf := make([]float64, len(k))
	for i, ki := range k {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var sum float64
		for j, rj := range r {
			sum += psf[j] * math.J0(2*math.Pi*rj*ki) * rj
		}
		mtf[i] = sum
	}
	zero := mtf[0]
	if zero == 0 || math.IsNaN(zero) || math.IsInf(zero, 0) {
		return nil, fmt.Errorf("%w: transfer at k=%g is %g", ErrDivisionByZero, k[0], zero)
	}
	for i := range mtf {
		mtf[i] /= zero
	}

	e.log.WithFields(logrus.Fields{
		"frequencies": len(k),
		"rmax":        rmax,
	}).Debug("mtf")
	return mtf, nil
}
