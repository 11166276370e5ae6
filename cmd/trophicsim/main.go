// Package main runs replicated food-web simulations from a YAML config
// and writes trajectories, extinction logs and summary metrics as CSV.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/pthm-cable/trophic/config"
	"github.com/pthm-cable/trophic/dynamics"
	"github.com/pthm-cable/trophic/metrics"
	"github.com/pthm-cable/trophic/network"
	"github.com/pthm-cable/trophic/rates"
)

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	outputDir := flag.String("output", "", "Output directory for CSV results (empty = log only)")
	replicates := flag.Int("replicates", 0, "Override replicate count from config")
	seed := flag.Int64("seed", 0, "Override base seed from config")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}
	if *replicates > 0 {
		cfg.Experiment.Replicates = *replicates
	}
	if *seed != 0 {
		cfg.Experiment.Seed = *seed
	}

	om, err := metrics.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("opening output", "err", err)
		os.Exit(1)
	}
	defer om.Close()

	if om != nil {
		// Save the resolved config next to the results for provenance.
		if err := cfg.WriteYAML(filepath.Join(om.Dir(), "config.yaml")); err != nil {
			slog.Error("writing config", "err", err)
			os.Exit(1)
		}
	}

	results := runAll(cfg)

	failed := 0
	for rep, res := range results {
		if res.err != nil {
			slog.Error("replicate failed", "replicate", rep, "err", res.err)
			failed++
			continue
		}
		slog.Info("replicate done", "summary", res.summary)
		if err := om.WriteRecord(rep, res.record); err != nil {
			slog.Error("writing record", "replicate", rep, "err", err)
			os.Exit(1)
		}
		if err := om.WriteSummary(res.summary); err != nil {
			slog.Error("writing summary", "replicate", rep, "err", err)
			os.Exit(1)
		}
	}
	if failed > 0 {
		slog.Warn("finished with failures", "failed", failed, "total", len(results))
		os.Exit(1)
	}
}

type result struct {
	record  *dynamics.Record
	summary metrics.Summary
	err     error
}

// runAll fans replicates out over a bounded worker pool. Every replicate
// owns its own RNG, graph and system, so the workers share nothing.
func runAll(cfg *config.Config) []result {
	n := cfg.Experiment.Replicates
	workers := cfg.Experiment.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]result, n)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rep := range jobs {
				rec, sum, err := runReplicate(cfg, rep)
				results[rep] = result{record: rec, summary: sum, err: err}
			}
		}()
	}
	for rep := 0; rep < n; rep++ {
		jobs <- rep
	}
	close(jobs)
	wg.Wait()
	return results
}

// runReplicate builds one community and simulates its phases: optional
// equilibration, burn-in (phase 0), then an optional harvest followed by
// a post-perturbation phase (phase 1).
func runReplicate(cfg *config.Config, rep int) (*dynamics.Record, metrics.Summary, error) {
	rng := rand.New(rand.NewSource(cfg.Experiment.Seed + int64(rep)))

	graph, masses, err := buildCommunity(cfg, rng)
	if err != nil {
		return nil, metrics.Summary{}, fmt.Errorf("building community: %w", err)
	}

	tables, err := rates.Scale(masses, cfg.Rates.TemperatureK, graph.Producers(), rates.Options{
		K0:                 cfg.Rates.K0,
		ProducerMetabolism: cfg.Rates.ProducerMetabolism,
	})
	if err != nil {
		return nil, metrics.Summary{}, fmt.Errorf("scaling rates: %w", err)
	}

	efficiency := dynamics.EfficiencyMatrix(graph, cfg.Response.HerbivoreEfficiency, cfg.Response.CarnivoreEfficiency)
	var response dynamics.Response
	switch cfg.Response.Kind {
	case "classical":
		response = dynamics.NewClassical(graph, tables, efficiency, cfg.Response.Hill, cfg.Response.Interference)
	case "bioenergetic":
		response = dynamics.NewBioenergetic(graph, tables, efficiency,
			cfg.Response.MaxConsumption, cfg.Response.HalfSaturation, cfg.Response.Hill, cfg.Response.Interference)
	}

	var rewirer dynamics.Rewirer
	switch cfg.Rewiring.Rule {
	case "do":
		rewirer = dynamics.DietOverlap{}
	case "ds":
		rewirer = dynamics.DietSimilarity{}
	case "adbm":
		rewirer = dynamics.ADBMRewire{Params: network.DefaultADBMParams(graph.Size())}
	}

	sys, err := dynamics.NewSystem(graph, tables, masses, response, rewirer)
	if err != nil {
		return nil, metrics.Summary{}, err
	}

	b := dynamics.UniformBiomass(graph.Size(), rng)
	if cfg.Experiment.Equilibrate {
		if b, err = dynamics.Equilibrium(sys, b, 0); err != nil {
			return nil, metrics.Summary{}, fmt.Errorf("equilibrating: %w", err)
		}
	}

	sim := dynamics.SimConfig{
		Start:               cfg.Simulation.Start,
		Stop:                cfg.Simulation.Stop,
		SampleInterval:      cfg.Simulation.SampleInterval,
		ExtinctionThreshold: cfg.Simulation.ExtinctionThreshold,
		RelTol:              cfg.Simulation.RelTol,
		AbsTol:              cfg.Simulation.AbsTol,
		Phase:               0,
	}
	rec, err := sys.Run(b, sim)
	if err != nil {
		return nil, metrics.Summary{}, fmt.Errorf("burn-in phase: %w", err)
	}

	if cfg.Experiment.HarvestFraction > 0 {
		harvested, err := dynamics.Harvest(rec.Final(), masses, cfg.Experiment.HarvestFraction)
		if err != nil {
			return nil, metrics.Summary{}, err
		}
		span := cfg.Simulation.Stop - cfg.Simulation.Start
		sim.Start = cfg.Simulation.Stop
		sim.Stop = cfg.Simulation.Stop + span
		sim.Phase = 1
		rec, err = sys.Run(harvested, sim)
		if err != nil {
			return nil, metrics.Summary{}, fmt.Errorf("post-harvest phase: %w", err)
		}
	}

	window := cfg.Metrics.Window
	if window > rec.Len() {
		window = rec.Len()
	}
	summary, err := metrics.Summarize(rec, window, cfg.Simulation.ExtinctionThreshold)
	if err != nil {
		return nil, metrics.Summary{}, err
	}
	summary.Replicate = rep
	return rec, summary, nil
}

// buildCommunity generates the interaction graph and body masses.
func buildCommunity(cfg *config.Config, rng *rand.Rand) (*network.Graph, []float64, error) {
	switch cfg.Network.Model {
	case "adbm":
		params := network.DefaultADBMParams(cfg.Network.Species)
		params.MaxAttempts = cfg.Network.MaxRetries
		res, err := network.ADBM(params, rng)
		if err != nil {
			return nil, nil, err
		}
		return res.Graph, res.Masses, nil
	default: // niche
		var graph *network.Graph
		var err error
		if cfg.Network.Tolerance > 0 {
			graph, err = network.NicheExact(cfg.Network.Species, cfg.Network.Connectance,
				cfg.Network.Tolerance, cfg.Network.MaxRetries, rng)
		} else {
			graph, err = network.Niche(cfg.Network.Species, cfg.Network.Connectance, rng)
		}
		if err != nil {
			return nil, nil, err
		}
		levels, err := network.TrophicLevels(graph)
		if err != nil {
			return nil, nil, err
		}
		masses, err := rates.MassesFromZ(cfg.Rates.MassRatioZ, levels, cfg.Rates.MassJitterSigma, rng)
		if err != nil {
			return nil, nil, err
		}
		return graph, masses, nil
	}
}
