// Package cli implements the stemprobe command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/HamletTheHamster/stemprobe/internal/cache"
	"github.com/HamletTheHamster/stemprobe/internal/config"
	"github.com/HamletTheHamster/stemprobe/internal/logging"
	"github.com/HamletTheHamster/stemprobe/internal/probe"
	"github.com/HamletTheHamster/stemprobe/internal/report"
)

type app struct {
	v          *viper.Viper
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

// session is everything a subcommand needs once flags are parsed.
type session struct {
	cfg    *config.Config
	log    *logrus.Entry
	run    *report.Run
	engine *cache.Engine
	store  cache.Store
}

// close releases the cache connection.
func (s *session) close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}

// closeInto closes s and reports its error through err unless err is
// already set.
func closeInto(s *session, err *error) {
	if cerr := s.close(); *err == nil {
		*err = cerr
	}
}

// Execute runs the command line args and returns the first error. Cobra has
// already printed it to stderr.
func Execute(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
) error {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree with its own viper instance.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "stemprobe",
		Short: "STEM probe point-spread and modulation-transfer functions",
		Long: `stemprobe computes the radial intensity of an aberrated STEM probe,
its average over a defocus spread, the FWHM-II probe size and the MTF.
Figures, CSV tables and log.txt are written to <out>/<date>/<time>-<run>.`,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML configuration file")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("out", "plots", "output root directory")
	pf.String("note", "", "runtime note recorded in log.txt")
	pf.StringSlice("formats", []string{"png", "svg", "pdf"}, "figure formats")
	pf.Bool("slide", false, "format figures for slides")
	pf.Bool("preview", false, "also render a gnuplot preview")
	pf.Int("workers", 0, "concurrent integrations (0 = all CPUs)")
	pf.Bool("cache", false, "cache profiles in Redis")

	pf.Float64("kev", 100, "beam energy (keV)")
	pf.Float64("cs3", 1, "third order spherical aberration (mm)")
	pf.Float64("cs5", 0, "fifth order spherical aberration (mm)")
	pf.Float64("df", 0, "defocus (A)")
	pf.Float64("amax", 10, "objective aperture semiangle (mrad)")
	pf.Float64("ddf", 0, "FWHM of the defocus spread (A)")

	a.bind(pf, map[string]string{
		"output.log_level":        "log-level",
		"output.directory":        "out",
		"output.note":             "note",
		"output.formats":          "formats",
		"output.slide":            "slide",
		"output.preview":          "preview",
		"engine.workers":          "workers",
		"cache.enabled":           "cache",
		"optics.beam_energy_kev":  "kev",
		"optics.cs3_mm":           "cs3",
		"optics.cs5_mm":           "cs5",
		"optics.defocus_a":        "df",
		"optics.aperture_mrad":    "amax",
		"optics.defocus_spread_a": "ddf",
	})

	root.AddCommand(
		a.psfCommand(),
		a.mtfCommand(),
		a.focusCommand(),
		a.potentialCommand(),
	)
	return root
}

func (a *app) bind(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", key, err))
		}
	}
}

// bindShared binds a flag whose key is also bound by another subcommand.
// Viper keeps one flag per key, so the binding is made when cmd runs.
func (a *app) bindShared(cmd *cobra.Command, name, key string) {
	prev := cmd.PreRunE
	cmd.PreRunE = func(c *cobra.Command, args []string) error {
		if prev != nil {
			if err := prev(c, args); err != nil {
				return err
			}
		}
		return a.v.BindPFlag(key, c.Flags().Lookup(name))
	}
}

// start loads configuration, opens the run directory and assembles the
// engine, wrapped in the Redis cache when enabled.
func (a *app) start(
	ctx context.Context,
	command string,
) (
	*session, error,
) {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Output.LogLevel, a.stderr)
	if err != nil {
		return nil, err
	}
	run, err := report.NewRun(cfg.Output.Directory, cfg.Output.Note, cfg.Output.Formats, cfg.Output.Slide)
	if err != nil {
		return nil, err
	}
	log := logging.ForRun(logger, run.ID).WithField("command", command)
	if err := config.Dump(cfg, run.Path("config.yaml")); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log, run: run}
	var store cache.Store
	if cfg.Cache.Enabled {
		rs := cache.NewRedisStore(cfg.Cache)
		if err := rs.Ping(ctx); err != nil {
			log.WithError(err).Warn("cache unavailable, computing without it")
			if err := rs.Close(); err != nil {
				log.WithError(err).Debug("closing unreachable cache")
			}
		} else {
			s.store = rs
			store = rs
		}
	}
	s.engine = cache.NewEngine(
		probe.NewEngine(cfg.ProbeConfig(), log),
		store,
		cfg.Cache.Prefix,
		cfg.Cache.TTL,
		log,
	)

	run.Header(command, cfg.Optics)
	log.WithField("dir", run.Dir).Info("run started")
	return s, nil
}

// finish writes log.txt and reports the run directory.
func (a *app) finish(s *session) error {
	s.run.Logf("Elapsed: %s", time.Since(s.run.Started).Round(time.Millisecond))
	if err := s.run.WriteLog(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Results in %s\n", s.run.Dir)
	return nil
}
