package dynamics

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/pthm-cable/trophic/network"
	"github.com/pthm-cable/trophic/rates"
)

// System owns the mutable state of one simulation run: the interaction
// graph handle (shared with the response and mutated by rewiring), the
// rate tables, and the per-species extinction flags. A System is not
// safe for concurrent use; independent runs get independent Systems.
//
// The extinction log persists across successive Run calls on the same
// System, so a burn-in phase and a perturbation phase share one log with
// distinct phase ids.
type System struct {
	graph    *network.Graph
	tables   *rates.Tables
	masses   []float64
	response Response
	rewirer  Rewirer

	producers []bool
	cannibal  []bool // structurally able to self-consume at init
	extinct   []bool
	log       []Extinction

	gains, losses []float64
}

// NewSystem assembles a simulation system. It takes ownership of the
// graph handle: the response must have been built over the same handle,
// and no other run may share it. rewirer nil disables rewiring.
func NewSystem(g *network.Graph, t *rates.Tables, masses []float64, response Response, rewirer Rewirer) (*System, error) {
	s := g.Size()
	if len(masses) != s {
		return nil, fmt.Errorf("dynamics: mass vector length %d != %d species: %w", len(masses), s, ErrInvalidParameter)
	}
	if response == nil {
		return nil, fmt.Errorf("dynamics: nil response: %w", ErrInvalidParameter)
	}
	sys := &System{
		graph:     g,
		tables:    t,
		masses:    masses,
		response:  response,
		rewirer:   rewirer,
		producers: g.Producers(),
		cannibal:  make([]bool, s),
		extinct:   make([]bool, s),
		gains:     make([]float64, s),
		losses:    make([]float64, s),
	}
	for i := 0; i < s; i++ {
		sys.cannibal[i] = g.Has(i, i)
	}
	return sys, nil
}

// Graph returns the graph handle owned by this system.
func (sys *System) Graph() *network.Graph { return sys.graph }

// Extinct reports whether species i has been clamped to zero.
func (sys *System) Extinct(i int) bool { return sys.extinct[i] }

// alive returns the complement of the extinction flags.
func (sys *System) alive() []bool {
	out := make([]bool, len(sys.extinct))
	for i, e := range sys.extinct {
		out[i] = !e
	}
	return out
}

// derivative computes dB/dt into db. Producers grow logistically toward
// their carrying capacity; consumers balance assimilated gains against
// predation losses and linear metabolic mortality.
func (sys *System) derivative(b, db []float64) {
	sys.response.Flows(b, sys.gains, sys.losses)
	for i := range b {
		if sys.extinct[i] {
			db[i] = 0
			continue
		}
		if sys.producers[i] {
			r, k := sys.tables.Growth[i], sys.tables.Capacity[i]
			db[i] = r*b[i]*(1-b[i]/k) - sys.losses[i] - sys.tables.Metabolism[i]*b[i]
		} else {
			db[i] = sys.gains[i] - sys.losses[i] - sys.tables.Metabolism[i]*b[i]
		}
	}
}

// SimConfig controls one Run call.
type SimConfig struct {
	Start, Stop         float64
	SampleInterval      float64
	ExtinctionThreshold float64
	Phase               int // phase id recorded with extinctions

	// Solver controls; zero values pick defaults derived from the span.
	InitialStep float64
	MinStep     float64
	MaxStep     float64
	RelTol      float64
	AbsTol      float64
}

func (c SimConfig) withDefaults() SimConfig {
	span := c.Stop - c.Start
	if c.InitialStep <= 0 {
		c.InitialStep = span * 1e-4
	}
	if c.MinStep <= 0 {
		c.MinStep = span * 1e-12
	}
	if c.MaxStep <= 0 {
		c.MaxStep = c.SampleInterval
	}
	if c.RelTol <= 0 {
		c.RelTol = 1e-6
	}
	if c.AbsTol <= 0 {
		c.AbsTol = 1e-10
	}
	return c
}

func (c SimConfig) validate() error {
	if c.Stop <= c.Start {
		return fmt.Errorf("dynamics: stop %v <= start %v: %w", c.Stop, c.Start, ErrInvalidParameter)
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("dynamics: sample interval %v: %w", c.SampleInterval, ErrInvalidParameter)
	}
	if c.ExtinctionThreshold < 0 {
		return fmt.Errorf("dynamics: extinction threshold %v: %w", c.ExtinctionThreshold, ErrInvalidParameter)
	}
	return nil
}

// Cash-Karp Runge-Kutta-Fehlberg 4(5) tableau.
var (
	rkA = [6][5]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{3.0 / 10, -9.0 / 10, 6.0 / 5},
		{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27},
		{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096},
	}
	rk5 = [6]float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771}
	rk4 = [6]float64{2825.0 / 27648, 0, 18575.0 / 48384, 13525.0 / 55296, 277.0 / 14336, 1.0 / 4}
)

// Run integrates the biomass dynamics from cfg.Start to cfg.Stop with an
// embedded Cash-Karp 4(5) pair and adaptive step-size control. Snapshots
// land only on multiples of cfg.SampleInterval. After every accepted
// step, species at or below the extinction threshold are clamped to
// exactly zero and logged once with the current time and phase. When a
// rewirer is configured, the surviving consumers of each newly extinct
// resource get their diets recomputed before integration resumes with
// the same biomass state.
//
// Returns ErrIntegrationDiverged when the controller cannot hold the
// error tolerance above the minimum step size. No partial record is
// returned on failure.
func (sys *System) Run(b0 []float64, cfg SimConfig) (*Record, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := sys.graph.Size()
	if len(b0) != s {
		return nil, fmt.Errorf("dynamics: initial biomass length %d != %d species: %w", len(b0), s, ErrInvalidParameter)
	}
	for i, v := range b0 {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("dynamics: initial biomass %v for species %d: %w", v, i, ErrInvalidParameter)
		}
	}
	cfg = cfg.withDefaults()

	b := make([]float64, s)
	copy(b, b0)
	for i := range b {
		if sys.extinct[i] {
			b[i] = 0
		}
	}

	if pw, ok := sys.response.(preyWeighted); ok {
		pw.RefreshWeights(sys.alive())
	}
	sys.clampExtinctions(b, cfg.Start, cfg)

	rec := &Record{}
	rec.append(cfg.Start, b)

	// Stage and candidate buffers, reused across steps.
	var k [6][]float64
	for i := range k {
		k[i] = make([]float64, s)
	}
	stage := make([]float64, s)
	next := make([]float64, s)

	t := cfg.Start
	h := cfg.InitialStep
	sample := 1 // next sample index: cfg.Start + sample*cfg.SampleInterval
	for t < cfg.Stop {
		nextSample := cfg.Start + float64(sample)*cfg.SampleInterval
		limit := math.Min(nextSample, cfg.Stop)
		if h > cfg.MaxStep {
			h = cfg.MaxStep
		}
		if t+h > limit {
			h = limit - t
		}

		// One Cash-Karp attempt at step size h.
		sys.derivative(b, k[0])
		for stageIdx := 1; stageIdx < 6; stageIdx++ {
			for i := 0; i < s; i++ {
				acc := b[i]
				for m := 0; m < stageIdx; m++ {
					acc += h * rkA[stageIdx][m] * k[m][i]
				}
				stage[i] = acc
			}
			sys.derivative(stage, k[stageIdx])
		}

		errRatio := 0.0
		finite := true
		for i := 0; i < s; i++ {
			sum5, sum4 := 0.0, 0.0
			for m := 0; m < 6; m++ {
				sum5 += rk5[m] * k[m][i]
				sum4 += rk4[m] * k[m][i]
			}
			next[i] = b[i] + h*sum5
			if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
				finite = false
				break
			}
			scale := cfg.AbsTol + cfg.RelTol*math.Max(math.Abs(b[i]), math.Abs(next[i]))
			if e := math.Abs(h*(sum5-sum4)) / scale; e > errRatio {
				errRatio = e
			}
		}

		if !finite || errRatio > 1 {
			// Reject: shrink and retry.
			factor := 0.1
			if finite {
				factor = math.Max(0.1, 0.9*math.Pow(errRatio, -0.25))
			}
			h *= factor
			if h < cfg.MinStep {
				return nil, fmt.Errorf("dynamics: step size %v below floor %v at t=%v: %w",
					h, cfg.MinStep, t, ErrIntegrationDiverged)
			}
			continue
		}

		// Accept.
		t += h
		copy(b, next)
		sys.clampExtinctions(b, t, cfg)

		if t >= nextSample-1e-9*cfg.SampleInterval {
			rec.append(nextSample, b)
			sample++
		}

		if errRatio > 0 {
			h *= math.Min(5, 0.9*math.Pow(errRatio, -0.2))
		} else {
			h *= 5
		}
		if h < cfg.MinStep {
			h = cfg.MinStep
		}
	}

	rec.Extinctions = make([]Extinction, len(sys.log))
	copy(rec.Extinctions, sys.log)
	rec.Graph = sys.graph.Clone()
	return rec, nil
}

// clampExtinctions pins every species at or below the threshold to
// exactly zero, logs first crossings, and triggers rewiring for each
// newly extinct resource. Clamping keeps solver noise from driving
// biomass negative or oscillating around zero.
func (sys *System) clampExtinctions(b []float64, t float64, cfg SimConfig) {
	var newly []int
	for i := range b {
		if sys.extinct[i] {
			b[i] = 0
			continue
		}
		if b[i] <= cfg.ExtinctionThreshold {
			b[i] = 0
			sys.extinct[i] = true
			entry := Extinction{Species: i, Time: t, Phase: cfg.Phase}
			sys.log = append(sys.log, entry)
			newly = append(newly, i)
			slog.Debug("species extinct", "event", entry)
		}
	}
	if len(newly) == 0 {
		return
	}
	if sys.rewirer != nil {
		env := &RewireEnv{Alive: sys.alive(), Masses: sys.masses, Cannibal: sys.cannibal}
		for _, lost := range newly {
			for _, consumer := range sys.graph.PredatorsOf(lost) {
				if sys.extinct[consumer] {
					continue
				}
				sys.rewirer.Rewire(sys.graph, consumer, lost, env)
				slog.Debug("diet rewired", "consumer", consumer, "lost", lost)
			}
		}
	}
	if pw, ok := sys.response.(preyWeighted); ok {
		pw.RefreshWeights(sys.alive())
	}
}

// UniformBiomass draws S initial biomasses from U(0, 1).
func UniformBiomass(s int, rng *rand.Rand) []float64 {
	b := make([]float64, s)
	for i := range b {
		b[i] = rng.Float64()
	}
	return b
}
