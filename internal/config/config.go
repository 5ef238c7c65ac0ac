package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/nbody/internal/partition"
	"github.com/san-kum/nbody/internal/physics"
	"github.com/san-kum/nbody/internal/sim"
)

const (
	DefaultParticles   = 1024
	DefaultThreads     = 4
	DefaultSeed        = 25
	DefaultInit        = "uniform"
	DefaultIntegrator  = "threaded-euler"
	DefaultSeparation  = 0.1
	DefaultDataDir     = "data"
	DefaultLogLevel    = "info"
	DefaultSampleEvery = 1

	// EnvPrefix prefixes environment overrides: NBODY_THREADS,
	// NBODY_PHYSICS_SOFTENING.
	EnvPrefix = "NBODY"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Particles  int    `yaml:"particles" mapstructure:"particles"`
	Threads    int    `yaml:"threads" mapstructure:"threads"`
	Init       string `yaml:"init" mapstructure:"init"`
	Seed       int64  `yaml:"seed" mapstructure:"seed"`
	Integrator string `yaml:"integrator" mapstructure:"integrator"`
	// Dt and MaxTime of zero derive from the characteristic time: the run
	// lasts one characteristic time in a thousand steps.
	Dt          float64 `yaml:"dt" mapstructure:"dt"`
	MaxTime     float64 `yaml:"max_time" mapstructure:"max_time"`
	SampleEvery int     `yaml:"sample_every" mapstructure:"sample_every"`
	Remainder   string  `yaml:"remainder" mapstructure:"remainder"`
	Order       string  `yaml:"order" mapstructure:"order"`
	// ValidateState enables the engine's finite-value checks.
	ValidateState bool           `yaml:"validate" mapstructure:"validate"`
	Physics       physics.Params `yaml:"physics" mapstructure:"physics"`
	Pair          PairConfig     `yaml:"pair" mapstructure:"pair"`
	DataDir       string         `yaml:"data_dir" mapstructure:"data_dir"`
	LogLevel      string         `yaml:"log_level" mapstructure:"log_level"`
}

type PairConfig struct {
	Separation float64 `yaml:"separation" mapstructure:"separation"`
	Speed      float64 `yaml:"speed" mapstructure:"speed"`
}

func DefaultConfig() *Config {
	return &Config{
		Particles:     DefaultParticles,
		Threads:       DefaultThreads,
		Init:          DefaultInit,
		Seed:          DefaultSeed,
		Integrator:    DefaultIntegrator,
		SampleEvery:   DefaultSampleEvery,
		Remainder:     partition.AbsorbLast.String(),
		Order:         sim.OrderByIndex.String(),
		ValidateState: true,
		Physics:       physics.DefaultParams(),
		Pair:          PairConfig{Separation: DefaultSeparation},
		DataDir:       DefaultDataDir,
		LogLevel:      DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate checks the fields the engine does not check itself.
func (c *Config) Validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("%w: particles must be positive, got %d", ErrInvalid, c.Particles)
	}
	if c.Threads <= 0 {
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalid, c.Threads)
	}
	if c.Dt < 0 || c.MaxTime < 0 {
		return fmt.Errorf("%w: dt and max_time must not be negative", ErrInvalid)
	}
	if _, err := partition.ParsePolicy(c.Remainder); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := sim.ParseOrder(c.Order); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SimConfig converts c into engine settings, deriving Dt and MaxTime when
// they are zero.
func (c *Config) SimConfig() (sim.Config, error) {
	if err := c.Validate(); err != nil {
		return sim.Config{}, err
	}
	policy, _ := partition.ParsePolicy(c.Remainder)
	order, _ := sim.ParseOrder(c.Order)

	p := c.Physics.WithDefaults()
	maxTime := c.MaxTime
	if maxTime == 0 {
		maxTime = physics.CharacteristicTime(c.Particles, p.BoxLength, p.G)
	}
	dt := c.Dt
	if dt == 0 {
		dt = 1e-3 * maxTime
	}

	return sim.Config{
		Threads:       c.Threads,
		Dt:            dt,
		MaxTime:       maxTime,
		Physics:       p,
		Remainder:     policy,
		Order:         order,
		SampleEvery:   c.SampleEvery,
		ValidateState: c.ValidateState,
	}, nil
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"particles":    "particles",
	"threads":      "threads",
	"init":         "init",
	"seed":         "seed",
	"integrator":   "integrator",
	"dt":           "dt",
	"max-time":     "max_time",
	"sample-every": "sample_every",
	"remainder":    "remainder",
	"order":        "order",
	"validate":     "validate",
	"g":            "physics.g",
	"box":          "physics.box_length",
	"softening":    "physics.softening",
	"separation":   "pair.separation",
	"speed":        "pair.speed",
	"data-dir":     "data_dir",
	"log-level":    "log_level",
}

// Resolve layers configuration sources over base, lowest first: base, the
// YAML file at path (if any), NBODY_* environment variables, then flags
// that were set on the command line.
func Resolve(base *Config, path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, base); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, base *Config) error {
	data, err := yaml.Marshal(base)
	if err != nil {
		return err
	}
	tree := make(map[string]any)
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for key, val := range flatten("", tree) {
		v.SetDefault(key, val)
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = val
	}
	return out
}
