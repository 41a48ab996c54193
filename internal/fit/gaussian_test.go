package fit

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func synthetic(amp, sigma, off float64, n int, rmax float64) (r, y []float64) {
	r = floats.Span(make([]float64, n), 0, rmax)
	y = make([]float64, n)
	for i, ri := range r {
		y[i] = amp*math.Exp(-ri*ri/(2*sigma*sigma)) + off
	}
	return r, y
}

func TestGaussian_RecoversParameters(t *testing.T) {
	for _, numeric := range []bool{false, true} {
		name := "analytic"
		if numeric {
			name = "numeric"
		}
		t.Run(name, func(t *testing.T) {
			r, y := synthetic(2, 1.5, 0.1, 120, 6)
			got, err := Gaussian(r, y, Options{NumericJacobian: numeric})
			if err != nil {
				t.Fatal(err)
			}
			check := func(field string, got, want float64) {
				t.Helper()
				if !scalar.EqualWithinAbsOrRel(got, want, 1e-4, 1e-4) {
					t.Errorf("%s = %g, want %g", field, got, want)
				}
			}
			check("Amplitude", got.Amplitude, 2)
			check("Sigma", got.Sigma, 1.5)
			check("Offset", got.Offset, 0.1)
			check("FWHM", got.FWHM, 1.5*2*math.Sqrt(2*math.Ln2))
			if got.RMS > 1e-4 {
				t.Errorf("RMS = %g on noiseless data", got.RMS)
			}
		})
	}
}

func TestGaussianFit_Curve(t *testing.T) {
	g := GaussianFit{Amplitude: 1, Sigma: 1, Offset: 0.5}
	c := g.Curve([]float64{0, 1})
	if c[0] != 1.5 {
		t.Errorf("Curve(0) = %g, want 1.5", c[0])
	}
	if want := math.Exp(-0.5) + 0.5; math.Abs(c[1]-want) > 1e-15 {
		t.Errorf("Curve(1) = %g, want %g", c[1], want)
	}
}

func TestGaussian_Errors(t *testing.T) {
	tests := []struct {
		name string
		r, y []float64
	}{
		{"length mismatch", []float64{0, 1, 2, 3}, []float64{1, 1, 1}},
		{"too few points", []float64{0, 1, 2}, []float64{1, 0.5, 0}},
		{"flat", []float64{0, 1, 2, 3}, []float64{1, 1, 1, 1}},
		{"rising", []float64{0, 1, 2, 3}, []float64{0, 1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Gaussian(tc.r, tc.y, Options{}); !errors.Is(err, ErrFitFailed) {
				t.Errorf("err = %v, want ErrFitFailed", err)
			}
		})
	}
}
