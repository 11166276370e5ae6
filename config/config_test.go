package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Network.Model != "niche" {
		t.Errorf("default model = %q, want niche", cfg.Network.Model)
	}
	if cfg.Network.Species != 20 {
		t.Errorf("default species = %d, want 20", cfg.Network.Species)
	}
	if cfg.Rates.TemperatureK != 293.15 {
		t.Errorf("default temperature = %v, want 293.15", cfg.Rates.TemperatureK)
	}
	if cfg.Response.Kind != "classical" {
		t.Errorf("default response = %q, want classical", cfg.Response.Kind)
	}
	if cfg.Rewiring.Rule != "none" {
		t.Errorf("default rewiring = %q, want none", cfg.Rewiring.Rule)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "network:\n  species: 40\nrewiring:\n  rule: do\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.Species != 40 {
		t.Errorf("species = %d, want overridden 40", cfg.Network.Species)
	}
	if cfg.Rewiring.Rule != "do" {
		t.Errorf("rule = %q, want overridden do", cfg.Rewiring.Rule)
	}
	// Untouched fields keep their defaults.
	if cfg.Network.Connectance != 0.15 {
		t.Errorf("connectance = %v, want default 0.15", cfg.Network.Connectance)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad model", func(c *Config) { c.Network.Model = "random" }, "network model"},
		{"zero species", func(c *Config) { c.Network.Species = 0 }, "species"},
		{"bad connectance", func(c *Config) { c.Network.Connectance = 1.2 }, "connectance"},
		{"zero retries", func(c *Config) { c.Network.MaxRetries = 0 }, "max_retries"},
		{"zero temperature", func(c *Config) { c.Rates.TemperatureK = 0 }, "temperature"},
		{"zero k0", func(c *Config) { c.Rates.K0 = 0 }, "k0"},
		{"zero z", func(c *Config) { c.Rates.MassRatioZ = 0 }, "mass_ratio_z"},
		{"bad response", func(c *Config) { c.Response.Kind = "linear" }, "functional response"},
		{"zero hill", func(c *Config) { c.Response.Hill = 0 }, "hill"},
		{"negative interference", func(c *Config) { c.Response.Interference = -1 }, "interference"},
		{"stop before start", func(c *Config) { c.Simulation.Stop = c.Simulation.Start }, "stop"},
		{"zero interval", func(c *Config) { c.Simulation.SampleInterval = 0 }, "sample_interval"},
		{"negative threshold", func(c *Config) { c.Simulation.ExtinctionThreshold = -1 }, "extinction_threshold"},
		{"bad rewiring", func(c *Config) { c.Rewiring.Rule = "always" }, "rewiring rule"},
		{"zero window", func(c *Config) { c.Metrics.Window = 0 }, "window"},
		{"zero replicates", func(c *Config) { c.Experiment.Replicates = 0 }, "replicates"},
		{"bad harvest", func(c *Config) { c.Experiment.HarvestFraction = 2 }, "harvest_fraction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted a bad config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Network.Species = 33

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load round trip: %v", err)
	}
	if back.Network.Species != 33 {
		t.Errorf("round trip species = %d, want 33", back.Network.Species)
	}
}
