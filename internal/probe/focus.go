package probe

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

// FocusFrame is one step of a through-focus series.
type FocusFrame struct {
	DefocusA   float64
	PSF        []float64
	SizeA      float64
	Degenerate bool
}

// FocusSeries evaluates the chromatic PSF and its FWHM-II size at each
// defocus in defoci, holding every other parameter of p fixed. Frames are
// returned in the order of defoci.
func (e *Engine) FocusSeries(
	ctx context.Context,
	r []float64,
	p optics.Parameters,
	defoci []float64,
) (
	[]FocusFrame, error,
) {
	return FocusSeries(ctx, e, e.log, r, p, defoci)
}

// FocusSeries is Engine.FocusSeries for any Profiler.
func FocusSeries(
	ctx context.Context,
	src Profiler,
	log logrus.FieldLogger,
	r []float64,
	p optics.Parameters,
	defoci []float64,
) (
	[]FocusFrame, error,
) {
	if err := ValidateGrid(r, 2); err != nil {
		return nil, err
	}
	if len(defoci) == 0 {
		return nil, fmt.Errorf("%w: empty defocus series", ErrInvalidParameter)
	}
	log = orDiscard(log)
	frames := make([]FocusFrame, 0, len(defoci))
	for _, df := range defoci {
		psf, err := src.ChromaticPSF(ctx, r, p.WithDefocus(df))
		if err != nil {
			return nil, fmt.Errorf("defocus %g A: %w", df, err)
		}
		size, degenerate, err := HalfCurrentDiameter(r, psf)
		if err != nil {
			return nil, fmt.Errorf("defocus %g A: %w", df, err)
		}
		frames = append(frames, FocusFrame{
			DefocusA:   df,
			PSF:        psf,
			SizeA:      size,
			Degenerate: degenerate,
		})
		log.WithFields(logrus.Fields{
			"defocus": df,
			"size":    size,
		}).Info("focus frame")
	}
	return frames, nil
}

// BestFocus returns the index of the frame with the smallest probe size.
// Degenerate frames are skipped; -1 means none qualified.
func BestFocus(frames []FocusFrame) int {
	best := -1
	for i, f := range frames {
		if f.Degenerate {
			continue
		}
		if best < 0 || f.SizeA < frames[best].SizeA {
			best = i
		}
	}
	return best
}
