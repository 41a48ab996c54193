package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/HamletTheHamster/stemprobe/internal/cache"
	"github.com/HamletTheHamster/stemprobe/internal/config"
	"github.com/HamletTheHamster/stemprobe/internal/optics"
)

// run executes args into a fresh output root and returns the run directory
// and stdout.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := t.TempDir()
	var stdout, stderr bytes.Buffer
	// Later flags win, so the caller's args follow the defaults.
	args = append([]string{args[0], "--out", root, "--formats", "png", "--log-level", "error"}, args[1:]...)
	err := Execute(context.Background(), args, &stdout, &stderr)
	dirs, _ := filepath.Glob(filepath.Join(root, "*", "*"))
	dir := ""
	if len(dirs) == 1 {
		dir = dirs[0]
	}
	return dir, stdout.String(), err
}

func requireFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if fi.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestPSFCommand(t *testing.T) {
	dir, out, err := run(t, "psf", "--points", "60", "--note", "cli test")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "FWHM-II probe size:") {
		t.Errorf("stdout = %q", out)
	}
	requireFiles(t, dir, "psf.png", "sizes.png", "psf.csv", "log.txt", "config.yaml")

	b, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Runtime note: cli test", "FWHM-II probe size", "Elapsed:"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("log.txt missing %q", want)
		}
	}
}

func TestPSFCommand_FlagsReachConfig(t *testing.T) {
	dir, _, err := run(t, "psf", "--points", "40", "--kev", "200", "--amax", "12", "--ddf", "30")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(viper.New(), filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Points != 40 || cfg.Optics.BeamEnergyKeV != 200 ||
		cfg.Optics.ApertureMrad != 12 || cfg.Optics.DefocusSpreadA != 30 {
		t.Errorf("config.yaml = %+v", cfg)
	}
}

func TestPSFCommand_PreviewIsOptional(t *testing.T) {
	dir, _, err := run(t, "psf", "--points", "30", "--preview")
	if err != nil {
		t.Fatal(err)
	}
	requireFiles(t, dir, "psf.png", "log.txt")
}

func TestMTFCommand(t *testing.T) {
	dir, _, err := run(t, "mtf", "--kpoints", "12")
	if err != nil {
		t.Fatal(err)
	}
	requireFiles(t, dir, "mtf.png", "mtf.csv", "log.txt")
}

func TestFocusCommand(t *testing.T) {
	dir, out, err := run(t, "focus", "--points", "40", "--frames", "3", "--start", "-50", "--stop", "50")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Optimum defocus:") {
		t.Errorf("stdout = %q", out)
	}
	requireFiles(t, dir, "focus.png", "focus.gif", "focus.csv")
}

func TestPotentialCommand(t *testing.T) {
	atoms := filepath.Join(t.TempDir(), "atoms.csv")
	body := "Z, x, y, depth, occupancy\n6, 0, 0, 0, 1\n14, 2.5, 2.5, 0, 0.5\n"
	if err := os.WriteFile(atoms, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	dir, _, err := run(t, "potential", "--atoms", atoms, "--xmax", "5", "--ymax", "5", "--nx", "8", "--ny", "8")
	if err != nil {
		t.Fatal(err)
	}
	requireFiles(t, dir, "potential.png", "potential.csv")
}

func TestCommand_Errors(t *testing.T) {
	if _, _, err := run(t, "psf", "--kev", "-1"); !errors.Is(err, optics.ErrInvalidParameter) {
		t.Errorf("negative energy: err = %v", err)
	}
	if _, _, err := run(t, "mtf", "--amax", "0"); err == nil {
		t.Error("zero aperture accepted")
	}
	if _, _, err := run(t, "potential"); err == nil {
		t.Error("potential ran without --atoms")
	}
	if _, _, err := run(t, "psf", "--log-level", "loud"); err == nil {
		t.Error("unknown log level accepted")
	}
	if _, _, err := run(t, "psf", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing config file accepted")
	}
}

type closeFailStore struct{ err error }

func (s closeFailStore) Get(context.Context, string) ([]byte, error) { return nil, cache.ErrMiss }
func (s closeFailStore) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}
func (s closeFailStore) Close() error { return s.err }

func TestCloseInto(t *testing.T) {
	boom := errors.New("connection reset")

	var err error
	closeInto(&session{store: closeFailStore{err: boom}}, &err)
	if !errors.Is(err, boom) {
		t.Errorf("close error lost: err = %v", err)
	}

	first := errors.New("plot failed")
	err = first
	closeInto(&session{store: closeFailStore{err: boom}}, &err)
	if err != first {
		t.Errorf("earlier error replaced: err = %v", err)
	}

	err = nil
	closeInto(&session{}, &err)
	if err != nil {
		t.Errorf("session without cache: err = %v", err)
	}
}
