package optics

import (
	"fmt"
	"math"
)

// Wavelength returns the relativistic electron wavelength in Angstroms for a
// beam energy in keV.
func Wavelength(
	kev float64,
) (
	float64, error,
) {
	if !finite(kev) || kev <= 0 {
		return 0, fmt.Errorf("%w: beam energy %g keV must be > 0", ErrInvalidParameter, kev)
	}
	return 12.3986 / math.Sqrt((2*511.0+kev)*kev), nil
}
