// Package potential builds the projected potential of a thin specimen slice
// from a list of atoms, for use as a STEM image object.
package potential

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

// ErrInvalidParameter is optics.ErrInvalidParameter.
var ErrInvalidParameter = optics.ErrInvalidParameter

// Zed is the exponent of the atomic number in each atom's weight. 2 is
// unscreened Rutherford scattering from the nucleus.
const Zed = 2

// Slice is the sampled box. XMax and YMax are its size in Angstroms.
type Slice struct {
	XMax, YMax float64
	NX, NY     int
}

func (s Slice) validate() error {
	if s.NX < 2 || s.NY < 2 {
		return fmt.Errorf("%w: slice needs at least 2x2 pixels, have %dx%d", ErrInvalidParameter, s.NX, s.NY)
	}
	if !(s.XMax > 0) || !(s.YMax > 0) || !finite(s.XMax) || !finite(s.YMax) {
		return fmt.Errorf("%w: slice size %gx%g A", ErrInvalidParameter, s.XMax, s.YMax)
	}
	return nil
}

// Pixel returns the sampling interval along x and y.
func (s Slice) Pixel() (dx, dy float64) {
	return s.XMax / float64(s.NX-1), s.YMax / float64(s.NY-1)
}

// Project deposits atoms on an NX x NY grid, indexed [ix, iy]. Coordinates
// are shifted so the lowest x and y sit on the first pixel. Each atom
// carries Z^Zed*occupancy, shared bilinearly between the four pixels of the
// cell that contains it; the far neighbour wraps periodically.
func Project(
	atoms []Atom,
	s Slice,
) (
	*mat.Dense, error,
) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return nil, fmt.Errorf("%w: no atoms", ErrInvalidParameter)
	}
	xmin, ymin := math.Inf(1), math.Inf(1)
	for i, a := range atoms {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
		xmin = math.Min(xmin, a.X)
		ymin = math.Min(ymin, a.Y)
	}

	dx, dy := s.Pixel()
	v := mat.NewDense(s.NX, s.NY, nil)
	for _, a := range atoms {
		ix, fx := cell(a.X-xmin, dx, s.NX)
		iy, fy := cell(a.Y-ymin, dy, s.NY)
		jx := (ix + 1) % s.NX
		jy := (iy + 1) % s.NY

		w := math.Pow(float64(a.Z), Zed) * a.Occupancy
		v.Set(ix, iy, v.At(ix, iy)+fx*fy*w)
		v.Set(jx, iy, v.At(jx, iy)+(1-fx)*fy*w)
		v.Set(ix, jy, v.At(ix, jy)+fx*(1-fy)*w)
		v.Set(jx, jy, v.At(jx, jy)+(1-fx)*(1-fy)*w)
	}
	return v, nil
}

// cell returns the pixel at or left of pos and the fraction of the atom
// that stays on it.
func cell(pos, step float64, n int) (int, float64) {
	i := int(math.Floor(pos / step))
	if i > n-1 {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i, 1 - math.Mod(pos/step, 1)
}
