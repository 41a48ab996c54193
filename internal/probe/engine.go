package probe

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
	"github.com/HamletTheHamster/stemprobe/internal/quadrature"
)

// Config tunes an Engine.
type Config struct {
	// Workers bounds the radii integrated concurrently by one RadialPSF call.
	Workers int
	// SpreadThreshold is the defocus spread in Angstroms below which
	// ChromaticPSF skips the average.
	SpreadThreshold float64
	// Quadrature sets the adaptive integrator tolerances.
	Quadrature quadrature.Settings
}

// DefaultConfig returns one worker per CPU, a 1 A spread threshold and the
// default integrator tolerances.
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.GOMAXPROCS(0),
		SpreadThreshold: 1.0,
		Quadrature:      quadrature.DefaultSettings(),
	}
}

// Engine evaluates probe profiles. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	cfg Config
	log logrus.FieldLogger
}

// NewEngine returns an Engine using cfg. A nil log discards output.
func NewEngine(cfg Config, log logrus.FieldLogger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.SpreadThreshold < 0 {
		cfg.SpreadThreshold = 0
	}
	return &Engine{cfg: cfg, log: orDiscard(log)}
}

// Profiler produces peak-normalised chromatic PSFs. *Engine implements it,
// as do caching wrappers around one.
type Profiler interface {
	ChromaticPSF(ctx context.Context, r []float64, p optics.Parameters) ([]float64, error)
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// RadialPSF returns the coherent probe intensity at each radius of r,
// normalised to a maximum of 1. Radii are integrated concurrently and
// written back by index, so the result does not depend on scheduling.
func (e *Engine) RadialPSF(
	ctx context.Context,
	r []float64,
	p optics.Parameters,
) (
	[]float64, error,
) {
	if err := ValidateGrid(r, 1); err != nil {
		return nil, err
	}
	c, err := optics.Derive(p)
	if err != nil {
		return nil, err
	}
	if c.KMax == 0 {
		return nil, ErrZeroAperture
	}

	psf := make([]float64, len(r))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, ri := range r {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			kn := c.Kernel(ri)
			amp, err := quadrature.Adaptive(kn.Integrand, 0, c.KMax, e.cfg.Quadrature)
			if err != nil {
				return fmt.Errorf("radius %g A: %w", ri, err)
			}
			psf[i] = real(amp)*real(amp) + imag(amp)*imag(amp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := normalizePeak(psf); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"radii":   len(r),
		"kmax":    c.KMax,
		"defocus": p.DefocusA,
	}).Debug("radial psf")
	return psf, nil
}
