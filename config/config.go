// Package config provides configuration loading and validation for the
// simulation engine.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Network    NetworkConfig    `yaml:"network"`
	Rates      RatesConfig      `yaml:"rates"`
	Response   ResponseConfig   `yaml:"response"`
	Simulation SimulationConfig `yaml:"simulation"`
	Rewiring   RewiringConfig   `yaml:"rewiring"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Experiment ExperimentConfig `yaml:"experiment"`
}

// NetworkConfig selects and parameterises the web generator.
type NetworkConfig struct {
	Model       string  `yaml:"model"`       // niche | adbm
	Species     int     `yaml:"species"`     // S
	Connectance float64 `yaml:"connectance"` // niche model target
	Tolerance   float64 `yaml:"tolerance"`   // 0 = accept first draw
	MaxRetries  int     `yaml:"max_retries"` // bounded resample budget
}

// RatesConfig holds the Boltzmann-Arrhenius scaling inputs.
type RatesConfig struct {
	TemperatureK       float64 `yaml:"temperature_k"`       // Kelvin
	K0                 float64 `yaml:"k0"`                  // carrying capacity intercept
	MassRatioZ         float64 `yaml:"mass_ratio_z"`        // consumer:resource mass ratio
	MassJitterSigma    float64 `yaml:"mass_jitter_sigma"`   // log-normal jitter on Z-derived masses
	ProducerMetabolism bool    `yaml:"producer_metabolism"` // give producers a metabolic rate
}

// ResponseConfig selects the functional response formulation.
type ResponseConfig struct {
	Kind                string  `yaml:"kind"`                 // classical | bioenergetic
	Hill                float64 `yaml:"hill"`                 // 1 = Type II, 2 = Type III
	Interference        float64 `yaml:"interference"`         // predator interference c
	HerbivoreEfficiency float64 `yaml:"herbivore_efficiency"` // e when resource is a producer
	CarnivoreEfficiency float64 `yaml:"carnivore_efficiency"` // e otherwise
	MaxConsumption      float64 `yaml:"max_consumption"`      // bioenergetic y
	HalfSaturation      float64 `yaml:"half_saturation"`      // bioenergetic B0
}

// SimulationConfig holds the integration controls.
type SimulationConfig struct {
	Start               float64 `yaml:"start"`
	Stop                float64 `yaml:"stop"`
	SampleInterval      float64 `yaml:"sample_interval"`
	ExtinctionThreshold float64 `yaml:"extinction_threshold"`
	RelTol              float64 `yaml:"rel_tol"` // 0 = solver default
	AbsTol              float64 `yaml:"abs_tol"` // 0 = solver default
}

// RewiringConfig selects the diet rewiring rule.
type RewiringConfig struct {
	Rule string `yaml:"rule"` // none | do | ds | adbm
}

// MetricsConfig holds the reporting window.
type MetricsConfig struct {
	Window int `yaml:"window"` // trailing samples per summary
}

// ExperimentConfig holds the replicate and perturbation settings.
type ExperimentConfig struct {
	Replicates      int     `yaml:"replicates"`
	Seed            int64   `yaml:"seed"`             // base seed; replicate k uses seed+k
	Workers         int     `yaml:"workers"`          // 0 = GOMAXPROCS
	Equilibrate     bool    `yaml:"equilibrate"`      // settle before the burn-in phase
	HarvestFraction float64 `yaml:"harvest_fraction"` // 0 = no harvest phase
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field the engine cannot tolerate being wrong.
func (c *Config) Validate() error {
	switch c.Network.Model {
	case "niche", "adbm":
	default:
		return fmt.Errorf("config: unknown network model %q", c.Network.Model)
	}
	if c.Network.Species < 1 {
		return fmt.Errorf("config: species count %d must be positive", c.Network.Species)
	}
	if c.Network.Model == "niche" && (c.Network.Connectance <= 0 || c.Network.Connectance >= 1) {
		return fmt.Errorf("config: connectance %v outside (0,1)", c.Network.Connectance)
	}
	if c.Network.MaxRetries < 1 {
		return fmt.Errorf("config: max_retries %d must be positive", c.Network.MaxRetries)
	}
	if c.Rates.TemperatureK <= 0 {
		return fmt.Errorf("config: temperature %vK must be positive", c.Rates.TemperatureK)
	}
	if c.Rates.K0 <= 0 {
		return fmt.Errorf("config: k0 %v must be positive", c.Rates.K0)
	}
	if c.Rates.MassRatioZ <= 0 {
		return fmt.Errorf("config: mass_ratio_z %v must be positive", c.Rates.MassRatioZ)
	}
	switch c.Response.Kind {
	case "classical", "bioenergetic":
	default:
		return fmt.Errorf("config: unknown functional response %q", c.Response.Kind)
	}
	if c.Response.Hill <= 0 {
		return fmt.Errorf("config: hill exponent %v must be positive", c.Response.Hill)
	}
	if c.Response.Interference < 0 {
		return fmt.Errorf("config: interference %v must be non-negative", c.Response.Interference)
	}
	if c.Simulation.Stop <= c.Simulation.Start {
		return fmt.Errorf("config: stop %v must exceed start %v", c.Simulation.Stop, c.Simulation.Start)
	}
	if c.Simulation.SampleInterval <= 0 {
		return fmt.Errorf("config: sample_interval %v must be positive", c.Simulation.SampleInterval)
	}
	if c.Simulation.ExtinctionThreshold < 0 {
		return fmt.Errorf("config: extinction_threshold %v must be non-negative", c.Simulation.ExtinctionThreshold)
	}
	switch c.Rewiring.Rule {
	case "none", "do", "ds", "adbm":
	default:
		return fmt.Errorf("config: unknown rewiring rule %q", c.Rewiring.Rule)
	}
	if c.Metrics.Window < 1 {
		return fmt.Errorf("config: metrics window %d must be positive", c.Metrics.Window)
	}
	if c.Experiment.Replicates < 1 {
		return fmt.Errorf("config: replicates %d must be positive", c.Experiment.Replicates)
	}
	if c.Experiment.HarvestFraction < 0 || c.Experiment.HarvestFraction > 1 {
		return fmt.Errorf("config: harvest_fraction %v outside [0,1]", c.Experiment.HarvestFraction)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
