// Package probe computes the radial point-spread function of an aberrated STEM
// probe, its average over a Gaussian defocus spread, the FWHM-II probe size and
// the modulation-transfer function.
//
// Control flow is MTF -> ChromaticPSF -> RadialPSF -> optics.Kernel. Every
// profile returned by the engines is normalised to a peak of exactly 1.
package probe
