package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dyluth/sleuth/internal/reasoning"
)

const (
	// DefaultNamespace is used when neither sleuth.yml nor the environment names one
	DefaultNamespace = "default"

	// DefaultCaseTTL bounds how long an untouched case stays in Redis
	DefaultCaseTTL = 24 * time.Hour
)

// SleuthConfig represents the top-level sleuth.yml configuration
type SleuthConfig struct {
	Version string        `yaml:"version"`
	Engine  *EngineConfig `yaml:"engine,omitempty"`
	Store   *StoreConfig  `yaml:"store,omitempty"`
}

// EngineConfig tunes the reasoning engine
type EngineConfig struct {
	Weights         *WeightsConfig `yaml:"weights,omitempty"`
	MaxSteps        *int           `yaml:"max_steps,omitempty"` // AutoSolve iteration cap (default 20)
	NegationMarkers []string       `yaml:"negation_markers,omitempty"`
}

// WeightsConfig overrides individual scoring weights; unset fields keep their defaults
type WeightsConfig struct {
	Solutions        *float64 `yaml:"solutions,omitempty"`
	AvgDomain        *float64 `yaml:"avg_domain,omitempty"`
	Unresolved       *float64 `yaml:"unresolved,omitempty"`
	InfoGain         *float64 `yaml:"info_gain,omitempty"`
	EliminationYield *float64 `yaml:"elimination_yield,omitempty"`
}

// StoreConfig describes where cases live in Redis
type StoreConfig struct {
	Namespace string        `yaml:"namespace,omitempty"`
	CaseTTL   time.Duration `yaml:"case_ttl,omitempty"` // 0 = default
}

// Env holds settings read from the process environment
type Env struct {
	RedisURL   string        `env:"SLEUTH_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	Namespace  string        `env:"SLEUTH_NAMESPACE"`
	CaseTTL    time.Duration `env:"SLEUTH_CASE_TTL"`
	ConfigPath string        `env:"SLEUTH_CONFIG" envDefault:"sleuth.yml"`
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *SleuthConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Engine == nil {
		c.Engine = &EngineConfig{}
	}
	if c.Engine.MaxSteps == nil {
		defaultSteps := reasoning.DefaultMaxSteps
		c.Engine.MaxSteps = &defaultSteps
	}
	if *c.Engine.MaxSteps < 1 {
		return fmt.Errorf("engine.max_steps must be >= 1, got %d", *c.Engine.MaxSteps)
	}
	if len(c.Engine.NegationMarkers) == 0 {
		c.Engine.NegationMarkers = append([]string(nil), reasoning.DefaultNegationMarkers...)
	}
	for i, m := range c.Engine.NegationMarkers {
		if m == "" {
			return fmt.Errorf("engine.negation_markers[%d] cannot be empty", i)
		}
	}
	if w := c.Engine.Weights; w != nil {
		for name, v := range map[string]*float64{
			"solutions":         w.Solutions,
			"avg_domain":        w.AvgDomain,
			"unresolved":        w.Unresolved,
			"info_gain":         w.InfoGain,
			"elimination_yield": w.EliminationYield,
		} {
			if v != nil && *v < 0 {
				return fmt.Errorf("engine.weights.%s must be >= 0, got %g", name, *v)
			}
		}
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Store.Namespace == "" {
		c.Store.Namespace = DefaultNamespace
	}
	if c.Store.CaseTTL == 0 {
		c.Store.CaseTTL = DefaultCaseTTL
	}
	if c.Store.CaseTTL < 0 {
		return fmt.Errorf("store.case_ttl must be positive, got %s", c.Store.CaseTTL)
	}

	return nil
}

// Weights returns the default scoring weights with any configured overrides applied
func (c *SleuthConfig) Weights() reasoning.Weights {
	w := reasoning.DefaultWeights()
	if c.Engine == nil || c.Engine.Weights == nil {
		return w
	}
	o := c.Engine.Weights
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&w.Solutions, o.Solutions)
	set(&w.AvgDomain, o.AvgDomain)
	set(&w.Unresolved, o.Unresolved)
	set(&w.InfoGain, o.InfoGain)
	set(&w.EliminationYield, o.EliminationYield)
	return w
}

// MaxSteps returns the configured AutoSolve cap
func (c *SleuthConfig) MaxSteps() int {
	if c.Engine == nil || c.Engine.MaxSteps == nil {
		return reasoning.DefaultMaxSteps
	}
	return *c.Engine.MaxSteps
}

// EngineOptions turns the configuration into reasoning engine options
func (c *SleuthConfig) EngineOptions() []reasoning.Option {
	opts := []reasoning.Option{reasoning.WithWeights(c.Weights())}
	if c.Engine != nil && len(c.Engine.NegationMarkers) > 0 {
		opts = append(opts, reasoning.WithNegationMarkers(c.Engine.NegationMarkers))
	}
	return opts
}

// ApplyEnv overrides file settings with values set in the environment
func (c *SleuthConfig) ApplyEnv(e *Env) {
	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if e.Namespace != "" {
		c.Store.Namespace = e.Namespace
	}
	if e.CaseTTL > 0 {
		c.Store.CaseTTL = e.CaseTTL
	}
}

// Default returns a validated configuration with every default applied
func Default() *SleuthConfig {
	c := &SleuthConfig{Version: "1.0"}
	_ = c.Validate()
	return c
}

// Load reads and validates sleuth.yml from the specified path
func Load(path string) (*SleuthConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config SleuthConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnv parses SLEUTH_* variables, after loading dotenvPath if it exists
func LoadEnv(dotenvPath string) (*Env, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

// Resolve loads the config file named by the environment, falling back to defaults
// when it does not exist, and applies environment overrides.
func Resolve(e *Env) (*SleuthConfig, error) {
	cfg := Default()
	if e.ConfigPath != "" {
		loaded, err := Load(e.ConfigPath)
		switch {
		case err == nil:
			cfg = loaded
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	cfg.ApplyEnv(e)
	return cfg, nil
}
