package config

import (
	"slices"

	"github.com/san-kum/nbody/internal/physics"
)

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]*Config{
	"tiny": preset(func(c *Config) {
		c.Particles, c.Threads = 8, 4
	}),
	"small": preset(func(c *Config) {
		c.Particles, c.Threads = DefaultParticles, DefaultThreads
	}),
	"lattice": preset(func(c *Config) {
		c.Particles, c.Threads = 512, 8
		c.Init = "lattice"
	}),
	"pair": preset(func(c *Config) {
		c.Particles, c.Threads = 2, 2
		c.Init = "pair"
		c.Order = "time"
	}),
	"leapfrog": preset(func(c *Config) {
		c.Particles, c.Threads = 256, 1
		c.Integrator = "leapfrog"
	}),
	"figure8": preset(func(c *Config) {
		c.Particles, c.Threads = 3, 3
		c.Init = "figure8"
		c.Integrator = "leapfrog"
		c.Dt, c.MaxTime = 1e-3, 6.3259
		c.SampleEvery = 10
		c.Order = "time"
		c.Physics = physics.Params{G: 1, BoxLength: 4}
	}),
	"classic": preset(func(c *Config) {
		c.Particles, c.Threads = 1024, 4
		c.Dt, c.MaxTime = 1e2, 1e5
		c.Remainder = "drop"
		c.Order = "time"
		c.Physics = physics.DefaultParams()
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
