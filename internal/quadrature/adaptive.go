// Package quadrature provides the two integration rules used by the probe
// engines: a globally adaptive Gauss-Legendre integrator for the oscillatory
// aperture integral, and a fixed Gauss-Hermite table for Gaussian-weighted
// averages over defocus.
package quadrature

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/integrate/quad"
)

// ErrNonConvergence is returned when the adaptive integrator cannot reach
// its tolerance within the panel cap.
var ErrNonConvergence = errors.New("quadrature did not converge")

// NonConvergenceError carries the best estimate reached before giving up.
type NonConvergenceError struct {
	Estimate complex128
	ErrEst   float64
	Panels   int
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf(
		"quadrature did not converge: estimate %v, error estimate %.3g after %d panels",
		e.Estimate, e.ErrEst, e.Panels,
	)
}

func (e *NonConvergenceError) Is(target error) bool { return target == ErrNonConvergence }

// Settings control the adaptive integrator.
type Settings struct {
	// AbsTol is the absolute error target. Defaults to 1e-12.
	AbsTol float64
	// RelTol is the error target relative to |integral|. Defaults to 1e-9.
	RelTol float64
	// MaxPanels caps the number of subintervals. Defaults to 4096.
	MaxPanels int
}

// DefaultSettings returns the tolerances used when none are configured.
func DefaultSettings() Settings {
	return Settings{AbsTol: 1e-12, RelTol: 1e-9, MaxPanels: 4096}
}

func (s Settings) target(total complex128) float64 {
	return math.Max(s.AbsTol, s.RelTol*cmplx.Abs(total))
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.AbsTol <= 0 {
		s.AbsTol = d.AbsTol
	}
	if s.RelTol <= 0 {
		s.RelTol = d.RelTol
	}
	if s.MaxPanels <= 0 {
		s.MaxPanels = d.MaxPanels
	}
	return s
}

// Node counts of the embedded pair. The higher order value is kept, the
// difference is the panel error.
const (
	lowOrder  = 10
	highOrder = 21
)

// legendreRule holds Gauss-Legendre nodes and weights on [-1, 1].
type legendreRule struct {
	x, w []float64
}

func newLegendreRule(n int) legendreRule {
	r := legendreRule{x: make([]float64, n), w: make([]float64, n)}
	quad.Legendre{}.FixedLocations(r.x, r.w, -1, 1)
	return r
}

var (
	lowRule  = newLegendreRule(lowOrder)
	highRule = newLegendreRule(highOrder)
)

func (r legendreRule) apply(f func(float64) complex128, a, b float64) complex128 {
	half := 0.5 * (b - a)
	mid := 0.5 * (a + b)
	var sum complex128
	for i, x := range r.x {
		sum += complex(r.w[i], 0) * f(mid+half*x)
	}
	return sum * complex(half, 0)
}

type panel struct {
	a, b  float64
	value complex128
	err   float64
}

func newPanel(f func(float64) complex128, a, b float64) panel {
	hi := highRule.apply(f, a, b)
	lo := lowRule.apply(f, a, b)
	return panel{a: a, b: b, value: hi, err: cmplx.Abs(hi - lo)}
}

// panelHeap is a max-heap on panel error.
type panelHeap []panel

func (h panelHeap) Len() int            { return len(h) }
func (h panelHeap) Less(i, j int) bool  { return h[i].err > h[j].err }
func (h panelHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *panelHeap) Push(x any)         { *h = append(*h, x.(panel)) }
func (h *panelHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

func (h panelHeap) sums() (total complex128, errSum float64) {
	for _, p := range h {
		total += p.value
		errSum += p.err
	}
	return total, errSum
}

// Adaptive integrates f from a to b. The panel with the largest error
// estimate is bisected until the summed error meets
// max(AbsTol, RelTol*|I|) or MaxPanels is reached.
func Adaptive(
	f func(float64) complex128,
	a, b float64,
	settings Settings,
) (
	complex128, error,
) {
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, fmt.Errorf("quadrature: non-finite bounds [%g, %g]", a, b)
	}
	if a > b {
		return 0, fmt.Errorf("quadrature: lower bound %g > upper bound %g", a, b)
	}
	if a == b {
		return 0, nil
	}
	s := settings.withDefaults()

	h := panelHeap{newPanel(f, a, b)}
	total := h[0].value
	errSum := h[0].err
	minWidth := 64 * math.SmallestNonzeroFloat64
	if w := (b - a) * 1e-13; w > minWidth {
		minWidth = w
	}

	for {
		if errSum <= s.target(total) {
			total, errSum = h.sums()
			if errSum <= s.target(total) {
				return total, nil
			}
		}
		if h.Len() >= s.MaxPanels {
			break
		}
		worst := heap.Pop(&h).(panel)
		if worst.b-worst.a < minWidth {
			heap.Push(&h, worst)
			break
		}
		mid := 0.5 * (worst.a + worst.b)
		left := newPanel(f, worst.a, mid)
		right := newPanel(f, mid, worst.b)
		heap.Push(&h, left)
		heap.Push(&h, right)

		total += left.value + right.value - worst.value
		errSum += left.err + right.err - worst.err
	}
	total, errSum = h.sums()
	return total, &NonConvergenceError{Estimate: total, ErrEst: errSum, Panels: h.Len()}
}
