//go:build !gnuplot

package report

// Preview reports ErrPreviewUnavailable; build with -tags gnuplot for the
// gnuplot rendering.
func (r *Run) Preview(
	name, title, xlabel, ylabel string,
	x, y []float64,
) error {
	return ErrPreviewUnavailable
}
