// Package fit fits analytic profiles to probe intensities with
// Levenberg-Marquardt.
package fit

import (
	"errors"
	"fmt"
	"math"

	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrFitFailed is returned when the solver cannot be seeded or does not
// produce a usable result.
var ErrFitFailed = errors.New("fit failed")

// Options control the solver.
type Options struct {
	// Iterations caps the solver. Defaults to 1000.
	Iterations int
	// NumericJacobian swaps the analytic Jacobian for finite differences.
	NumericJacobian bool
}

// GaussianFit is A*exp(-r^2/(2*sigma^2)) + C fitted to a radial profile.
type GaussianFit struct {
	Amplitude float64
	Sigma     float64
	Offset    float64
	// FWHM is 2*sqrt(2 ln 2)*Sigma.
	FWHM float64
	// RMS is the root-mean-square residual.
	RMS float64
}

// Eval returns the fitted profile at r.
func (g GaussianFit) Eval(r float64) float64 {
	return g.Amplitude*math.Exp(-r*r/(2*g.Sigma*g.Sigma)) + g.Offset
}

// Curve evaluates the fit on every radius of r.
func (g GaussianFit) Curve(r []float64) []float64 {
	out := make([]float64, len(r))
	for i, ri := range r {
		out[i] = g.Eval(ri)
	}
	return out
}

var fwhmPerSigma = 2 * math.Sqrt(2*math.Ln2)

// Gaussian fits a centred Gaussian plus constant to (r, y). The initial
// width comes from the radius where y first falls to half way between its
// extremes.
func Gaussian(
	r, y []float64,
	opts Options,
) (
	res GaussianFit, err error,
) {
	if len(r) != len(y) {
		return res, fmt.Errorf("%w: %d radii but %d values", ErrFitFailed, len(r), len(y))
	}
	if len(r) < 4 {
		return res, fmt.Errorf("%w: need at least 4 points, have %d", ErrFitFailed, len(r))
	}
	init, err := seed(r, y)
	if err != nil {
		return res, err
	}

	resid := func(dst, x []float64) {
		for i, ri := range r {
			dst[i] = x[0]*math.Exp(-ri*ri/(2*x[1]*x[1])) + x[2] - y[i]
		}
	}
	jac := func(dst *mat.Dense, x []float64) {
		s := x[1]
		for i, ri := range r {
			e := math.Exp(-ri * ri / (2 * s * s))
			dst.Set(i, 0, e)
			dst.Set(i, 1, x[0]*e*ri*ri/(s*s*s))
			dst.Set(i, 2, 1)
		}
	}
	if opts.NumericJacobian {
		nj := &lm.NumJac{Func: resid}
		jac = nj.Jac
	}
	iterations := opts.Iterations
	if iterations <= 0 {
		iterations = 1000
	}

	problem := lm.LMProblem{
		Dim:        3,
		Size:       len(r),
		Func:       resid,
		Jac:        jac,
		InitParams: init,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	// the solver panics on a singular normal matrix
	defer func() {
		if p := recover(); p != nil {
			res, err = GaussianFit{}, fmt.Errorf("%w: %v", ErrFitFailed, p)
		}
	}()
	result, err := lm.LM(problem, &lm.Settings{Iterations: iterations, ObjectiveTol: 1e-16})
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}

	amp, sigma, off := result.X[0], math.Abs(result.X[1]), result.X[2]
	if floats.HasNaN(result.X) || sigma == 0 {
		return res, fmt.Errorf("%w: solver returned %v", ErrFitFailed, result.X)
	}
	dst := make([]float64, len(r))
	resid(dst, result.X)
	res = GaussianFit{
		Amplitude: amp,
		Sigma:     sigma,
		Offset:    off,
		FWHM:      fwhmPerSigma * sigma,
		RMS:       floats.Norm(dst, 2) / math.Sqrt(float64(len(dst))),
	}
	return res, nil
}

func seed(r, y []float64) ([]float64, error) {
	hi, lo := floats.Max(y), floats.Min(y)
	amp := hi - lo
	if !(amp > 0) {
		return nil, fmt.Errorf("%w: flat profile", ErrFitFailed)
	}
	half := lo + 0.5*amp
	for i := 1; i < len(y); i++ {
		if y[i-1] >= half && y[i] < half {
			t := (y[i-1] - half) / (y[i-1] - y[i])
			rh := r[i-1] + t*(r[i]-r[i-1])
			if rh <= 0 {
				break
			}
			return []float64{amp, rh / math.Sqrt(2*math.Ln2), lo}, nil
		}
	}
	return nil, fmt.Errorf("%w: no half-maximum crossing to seed the width", ErrFitFailed)
}
