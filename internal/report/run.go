// Package report writes the figures, tables and run log of a stemprobe run.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

// ErrPreviewUnavailable is returned by Preview in builds without the gnuplot
// tag.
var ErrPreviewUnavailable = errors.New("report: gnuplot preview not built in (use -tags gnuplot)")

// Run is one output directory, <root>/<date>/<time>-<id>, and the log
// lines accumulated for it.
type Run struct {
	ID      string
	Dir     string
	Started time.Time
	Formats []string
	Slide   bool

	lines []string
}

// NewRun creates the run directory under root.
func NewRun(
	root, note string,
	formats []string,
	slide bool,
) (
	*Run, error,
) {
	now := time.Now()
	id := uuid.NewString()[:8]
	dir := filepath.Join(root, now.Format("2006-Jan-02"), now.Format("15:04:05")+"-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	r := &Run{ID: id, Dir: dir, Started: now, Formats: formats, Slide: slide}
	if note != "" {
		r.Logf("Runtime note: %s", note)
	}
	if slide {
		r.Logf("Figures formatted for slide presentation")
	}
	return r, nil
}

// Path joins name onto the run directory.
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Logf appends one line to the run log.
func (r *Run) Logf(format string, args ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...)+"\n")
}

// Header logs the command and the optics it ran with.
func (r *Run) Header(command string, p optics.Parameters) {
	r.Logf("\n*%s*", command)
	r.Logf("Run: %s (%s)", r.ID, r.Started.Format(time.RFC3339))
	r.Logf("Parameters: %s", p)
	if wav, err := optics.Wavelength(p.BeamEnergyKeV); err == nil {
		r.Logf("Wavelength: %.6g A", wav)
	}
	r.Logf("")
}

// Lines returns the log lines written so far.
func (r *Run) Lines() []string {
	return r.lines
}

// WriteLog writes the accumulated lines to log.txt.
func (r *Run) WriteLog() (err error) {
	txt, err := os.Create(r.Path("log.txt"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := txt.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(txt)
	for _, line := range r.lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
	}
	return w.Flush()
}
