package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
	"github.com/HamletTheHamster/stemprobe/internal/probe"
)

// Kinds of cached profile.
const (
	KindPSF = "psf"
	KindMTF = "mtf"
)

// Engine wraps a probe.Engine with a Store. A nil Store makes it a plain
// pass-through. Store failures are logged and never fail a computation.
type Engine struct {
	inner  *probe.Engine
	store  Store
	prefix string
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewEngine wraps inner. Keys are prefixed with prefix and expire after ttl
// (0 keeps them).
func NewEngine(
	inner *probe.Engine,
	store Store,
	prefix string,
	ttl time.Duration,
	log logrus.FieldLogger,
) *Engine {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{inner: inner, store: store, prefix: prefix, ttl: ttl, log: log}
}

type keyMaterial struct {
	Kind            string            `json:"kind"`
	Params          optics.Parameters `json:"params"`
	Grid            []float64         `json:"grid"`
	SpreadThreshold float64           `json:"spread_threshold"`
	AbsTol          float64           `json:"abs_tol"`
	RelTol          float64           `json:"rel_tol"`
	MaxPanels       int               `json:"max_panels"`
}

// Key returns the cache key of a profile of the given kind. Worker count is
// left out since it does not change results.
func Key(
	prefix, kind string,
	p optics.Parameters,
	grid []float64,
	cfg probe.Config,
) (
	string, error,
) {
	b, err := json.Marshal(keyMaterial{
		Kind:            kind,
		Params:          p,
		Grid:            grid,
		SpreadThreshold: cfg.SpreadThreshold,
		AbsTol:          cfg.Quadrature.AbsTol,
		RelTol:          cfg.Quadrature.RelTol,
		MaxPanels:       cfg.Quadrature.MaxPanels,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%s:%s:%s", prefix, kind, hex.EncodeToString(sum[:])), nil
}

// ChromaticPSF is probe.Engine.ChromaticPSF through the cache.
func (e *Engine) ChromaticPSF(
	ctx context.Context,
	r []float64,
	p optics.Parameters,
) (
	[]float64, error,
) {
	return e.cached(ctx, KindPSF, r, p, e.inner.ChromaticPSF)
}

// MTF is probe.Engine.MTF through the cache.
func (e *Engine) MTF(
	ctx context.Context,
	k []float64,
	p optics.Parameters,
) (
	[]float64, error,
) {
	return e.cached(ctx, KindMTF, k, p, e.inner.MTF)
}

// ProbeSize is probe.Engine.ProbeSize with the PSF served from the cache.
func (e *Engine) ProbeSize(
	ctx context.Context,
	r []float64,
	p optics.Parameters,
) (
	[]float64, float64, error,
) {
	return probe.MeasureSize(ctx, e, e.log, r, p)
}

// FocusSeries is probe.Engine.FocusSeries with every frame served from the
// cache.
func (e *Engine) FocusSeries(
	ctx context.Context,
	r []float64,
	p optics.Parameters,
	defoci []float64,
) (
	[]probe.FocusFrame, error,
) {
	return probe.FocusSeries(ctx, e, e.log, r, p, defoci)
}

type computeFunc func(context.Context, []float64, optics.Parameters) ([]float64, error)

func (e *Engine) cached(
	ctx context.Context,
	kind string,
	grid []float64,
	p optics.Parameters,
	compute computeFunc,
) (
	[]float64, error,
) {
	if e.store == nil {
		return compute(ctx, grid, p)
	}
	key, err := Key(e.prefix, kind, p, grid, e.inner.Config())
	if err != nil {
		return nil, err
	}
	log := e.log.WithFields(logrus.Fields{"kind": kind, "key": key})

	if v, ok := e.lookup(ctx, key, len(grid), log); ok {
		log.Debug("cache hit")
		return v, nil
	}

	v, err := compute(ctx, grid, p)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err == nil {
		err = e.store.Set(ctx, key, b, e.ttl)
	}
	if err != nil {
		log.WithError(err).Warn("cache store failed")
	}
	return v, nil
}

func (e *Engine) lookup(
	ctx context.Context,
	key string,
	n int,
	log logrus.FieldLogger,
) (
	[]float64, bool,
) {
	b, err := e.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		return nil, false
	case err != nil:
		log.WithError(err).Warn("cache lookup failed")
		return nil, false
	}
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil || len(v) != n {
		log.WithField("len", len(v)).Warn("discarding malformed cache entry")
		return nil, false
	}
	return v, true
}
