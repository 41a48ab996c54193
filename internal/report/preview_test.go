//go:build gnuplot

package report

import (
	"os"
	"os/exec"
	"testing"
)

func TestPreview(t *testing.T) {
	if _, err := exec.LookPath("gnuplot"); err != nil {
		t.Skip("gnuplot not installed")
	}
	r := newTestRun(t)
	x, y := gaussian(10)
	if err := r.Preview("preview.png", "psf", "r", "I", x, y); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(r.Path("preview.png")); err != nil || fi.Size() == 0 {
		t.Errorf("preview.png not written: %v", err)
	}
}
