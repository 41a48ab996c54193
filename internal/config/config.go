// Package config loads stemprobe settings from defaults, an optional YAML
// file, STEMPROBE_ environment variables and command-line flags, in rising
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/HamletTheHamster/stemprobe/internal/optics"
	"github.com/HamletTheHamster/stemprobe/internal/probe"
	"github.com/HamletTheHamster/stemprobe/internal/quadrature"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes environment overrides, e.g. STEMPROBE_OPTICS_CS3_MM.
const EnvPrefix = "STEMPROBE"

// GridConfig sets the radial and spatial-frequency grids. Zero extents are
// chosen from the optics.
type GridConfig struct {
	Points   int     `json:"points" yaml:"points" mapstructure:"points"`
	RMaxA    float64 `json:"rmax_a" yaml:"rmax_a" mapstructure:"rmax_a"`
	KMaxInvA float64 `json:"kmax_inv_a" yaml:"kmax_inv_a" mapstructure:"kmax_inv_a"`
	KPoints  int     `json:"kpoints" yaml:"kpoints" mapstructure:"kpoints"`
}

// EngineConfig tunes the probe engine.
type EngineConfig struct {
	Workers          int     `json:"workers" yaml:"workers" mapstructure:"workers"`
	SpreadThresholdA float64 `json:"spread_threshold_a" yaml:"spread_threshold_a" mapstructure:"spread_threshold_a"`
	AbsTol           float64 `json:"abs_tol" yaml:"abs_tol" mapstructure:"abs_tol"`
	RelTol           float64 `json:"rel_tol" yaml:"rel_tol" mapstructure:"rel_tol"`
	MaxPanels        int     `json:"max_panels" yaml:"max_panels" mapstructure:"max_panels"`
}

// OutputConfig controls the run directory, figures and logging.
type OutputConfig struct {
	Directory string   `json:"directory" yaml:"directory" mapstructure:"directory"`
	Note      string   `json:"note" yaml:"note" mapstructure:"note"`
	Formats   []string `json:"formats" yaml:"formats" mapstructure:"formats"`
	Slide     bool     `json:"slide" yaml:"slide" mapstructure:"slide"`
	Preview   bool     `json:"preview" yaml:"preview" mapstructure:"preview"`
	LogLevel  string   `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// CacheConfig is the optional Redis profile cache.
type CacheConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Host     string        `json:"host" yaml:"host" mapstructure:"host"`
	Port     int           `json:"port" yaml:"port" mapstructure:"port"`
	Password string        `json:"password" yaml:"password" mapstructure:"password"`
	DB       int           `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string        `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// FocusConfig is the defocus range of a through-focus series, in Angstroms.
type FocusConfig struct {
	StartA float64 `json:"start_a" yaml:"start_a" mapstructure:"start_a"`
	StopA  float64 `json:"stop_a" yaml:"stop_a" mapstructure:"stop_a"`
	Frames int     `json:"frames" yaml:"frames" mapstructure:"frames"`
	// Delay between GIF frames in hundredths of a second.
	Delay int `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// Config is the full stemprobe configuration.
type Config struct {
	Optics optics.Parameters `json:"optics" yaml:"optics" mapstructure:"optics"`
	Grid   GridConfig        `json:"grid" yaml:"grid" mapstructure:"grid"`
	Engine EngineConfig      `json:"engine" yaml:"engine" mapstructure:"engine"`
	Output OutputConfig      `json:"output" yaml:"output" mapstructure:"output"`
	Cache  CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Focus  FocusConfig       `json:"focus" yaml:"focus" mapstructure:"focus"`
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("optics.beam_energy_kev", 100.0)
	v.SetDefault("optics.cs3_mm", 1.0)
	v.SetDefault("optics.cs5_mm", 0.0)
	v.SetDefault("optics.defocus_a", 0.0)
	v.SetDefault("optics.aperture_mrad", 10.0)
	v.SetDefault("optics.defocus_spread_a", 0.0)

	v.SetDefault("grid.points", 300)
	v.SetDefault("grid.rmax_a", 0.0)     // 0 = from Cs and wavelength
	v.SetDefault("grid.kmax_inv_a", 0.0) // 0 = twice the aperture cutoff
	v.SetDefault("grid.kpoints", 200)

	v.SetDefault("engine.workers", 0) // 0 = GOMAXPROCS
	v.SetDefault("engine.spread_threshold_a", 1.0)
	v.SetDefault("engine.abs_tol", 1e-12)
	v.SetDefault("engine.rel_tol", 1e-9)
	v.SetDefault("engine.max_panels", 4096)

	v.SetDefault("output.directory", "plots")
	v.SetDefault("output.note", "")
	v.SetDefault("output.formats", []string{"png", "svg", "pdf"})
	v.SetDefault("output.slide", false)
	v.SetDefault("output.preview", false)
	v.SetDefault("output.log_level", "info")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.host", "localhost")
	v.SetDefault("cache.port", 6379)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.prefix", "stemprobe")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("focus.start_a", -200.0)
	v.SetDefault("focus.stop_a", 200.0)
	v.SetDefault("focus.frames", 21)
	v.SetDefault("focus.delay", 10)
}

// Load reads the configuration held by v. path may be empty; otherwise the
// YAML file must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that the engines do not check themselves.
func (c *Config) Validate() error {
	if err := c.Optics.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}
	switch {
	case c.Grid.Points < 2:
		return bad("grid.points %d < 2", c.Grid.Points)
	case c.Grid.KPoints < 2:
		return bad("grid.kpoints %d < 2", c.Grid.KPoints)
	case c.Grid.RMaxA < 0:
		return bad("grid.rmax_a %g < 0", c.Grid.RMaxA)
	case c.Grid.KMaxInvA < 0:
		return bad("grid.kmax_inv_a %g < 0", c.Grid.KMaxInvA)
	case c.Engine.Workers < 0:
		return bad("engine.workers %d < 0", c.Engine.Workers)
	case c.Engine.SpreadThresholdA < 0:
		return bad("engine.spread_threshold_a %g < 0", c.Engine.SpreadThresholdA)
	case c.Engine.AbsTol <= 0 || c.Engine.RelTol <= 0:
		return bad("engine tolerances must be > 0")
	case c.Engine.MaxPanels < 1:
		return bad("engine.max_panels %d < 1", c.Engine.MaxPanels)
	case c.Focus.Frames < 1:
		return bad("focus.frames %d < 1", c.Focus.Frames)
	case c.Focus.Frames > 1 && !(c.Focus.StopA > c.Focus.StartA):
		return bad("focus.stop_a %g must exceed focus.start_a %g", c.Focus.StopA, c.Focus.StartA)
	case c.Focus.Delay < 0:
		return bad("focus.delay %d < 0", c.Focus.Delay)
	case c.Cache.Enabled && (c.Cache.Port <= 0 || c.Cache.Port > 65535):
		return bad("cache.port %d", c.Cache.Port)
	case c.Cache.TTL < 0:
		return bad("cache.ttl %v < 0", c.Cache.TTL)
	}
	for _, f := range c.Output.Formats {
		switch f {
		case "png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff":
		default:
			return bad("output.formats: unsupported %q", f)
		}
	}
	return nil
}

// ProbeConfig converts the engine section for probe.NewEngine.
func (c *Config) ProbeConfig() probe.Config {
	return probe.Config{
		Workers:         c.Engine.Workers,
		SpreadThreshold: c.Engine.SpreadThresholdA,
		Quadrature: quadrature.Settings{
			AbsTol:    c.Engine.AbsTol,
			RelTol:    c.Engine.RelTol,
			MaxPanels: c.Engine.MaxPanels,
		},
	}
}

// Radii returns the PSF grid, 0 to grid.rmax_a or the automatic radius.
func (c *Config) Radii() ([]float64, error) {
	rmax := c.Grid.RMaxA
	if rmax == 0 {
		var err error
		if rmax, err = probe.PSFRadius(c.Optics); err != nil {
			return nil, err
		}
	}
	return probe.Linspace(0, rmax, c.Grid.Points)
}

// Frequencies returns the MTF grid, 0 to grid.kmax_inv_a or twice the
// aperture cutoff.
func (c *Config) Frequencies() ([]float64, error) {
	kmax := c.Grid.KMaxInvA
	if kmax == 0 {
		d, err := optics.Derive(c.Optics)
		if err != nil {
			return nil, err
		}
		if d.KMax == 0 {
			return nil, probe.ErrZeroAperture
		}
		kmax = 2 * d.KMax
	}
	return probe.Linspace(0, kmax, c.Grid.KPoints)
}

// Defoci returns the through-focus defocus values.
func (c *Config) Defoci() ([]float64, error) {
	if c.Focus.Frames == 1 {
		return []float64{c.Focus.StartA}, nil
	}
	return probe.Linspace(c.Focus.StartA, c.Focus.StopA, c.Focus.Frames)
}

// Dump writes c as YAML to path.
func Dump(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
