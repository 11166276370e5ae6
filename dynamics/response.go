// Package dynamics integrates consumer-resource biomass dynamics over a
// trophic interaction graph: a configurable functional response feeds an
// adaptive Runge-Kutta loop that clamps extinctions and, optionally,
// rewires consumer diets when a resource dies out.
package dynamics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/trophic/network"
	"github.com/pthm-cable/trophic/rates"
)

var (
	// ErrInvalidParameter reports a malformed simulation input.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrIntegrationDiverged reports a step size collapsed below the floor.
	ErrIntegrationDiverged = errors.New("integration diverged")
)

// Response computes per-species consumption gains and losses for the
// current biomass vector. Implementations zero both output slices before
// accumulating. A zero-biomass species must contribute zero to every sum
// it would otherwise appear in; consumption rates are never NaN or Inf.
type Response interface {
	Flows(b []float64, gains, losses []float64)
}

// preyWeighted is implemented by responses whose preference weights
// depend on the set of living prey. The integrator refreshes them after
// extinctions and rewiring events.
type preyWeighted interface {
	RefreshWeights(alive []bool)
}

// powh is b^h with the 0^h = 0 edge guarded for h > 0, and the common
// exponents special-cased off math.Pow.
func powh(b, h float64) float64 {
	if b <= 0 {
		return 0
	}
	switch h {
	case 1:
		return b
	case 2:
		return b * b
	}
	return math.Pow(b, h)
}

// EfficiencyMatrix builds assimilation efficiencies e[i][j]: herbivore
// efficiency when resource j is a producer, carnivore efficiency
// otherwise. Typical values are 0.45 and 0.85.
func EfficiencyMatrix(g *network.Graph, herbivore, carnivore float64) *mat.Dense {
	s := g.Size()
	producers := g.Producers()
	e := mat.NewDense(s, s, nil)
	for i := 0; i < s; i++ {
		for j := 0; j < s; j++ {
			if producers[j] {
				e.Set(i, j, herbivore)
			} else {
				e.Set(i, j, carnivore)
			}
		}
	}
	return e
}

// Classical is the attack-rate / handling-time functional response:
//
//	FR[i][j] = ar[i][j]*B_j^h / (1 + c*B_i + Σ_k ht[i][k]*ar[i][k]*B_k^h)
//
// with gains e[i][j]*B_i*FR[i][j] for the consumer and losses
// B_i*FR[i][j] for the resource. h is the Hill exponent (1 = Type II,
// 2 = Type III) and c the predator interference strength.
type Classical struct {
	graph        *network.Graph
	attack       *mat.Dense
	handling     *mat.Dense
	efficiency   *mat.Dense
	hill         float64
	interference float64
}

// NewClassical builds the classical response over the given graph handle.
// The graph is shared with the integrator so rewiring takes effect
// immediately; attack and handling matrices cover all pairs, so new links
// need no rescaling.
func NewClassical(g *network.Graph, t *rates.Tables, efficiency *mat.Dense, hill, interference float64) *Classical {
	return &Classical{
		graph:        g,
		attack:       t.Attack,
		handling:     t.Handling,
		efficiency:   efficiency,
		hill:         hill,
		interference: interference,
	}
}

// Flows implements Response.
func (c *Classical) Flows(b []float64, gains, losses []float64) {
	for i := range gains {
		gains[i] = 0
		losses[i] = 0
	}
	s := c.graph.Size()
	for i := 0; i < s; i++ {
		if b[i] <= 0 {
			continue
		}
		prey := c.graph.PreyOf(i)
		if len(prey) == 0 {
			continue
		}
		denom := 1 + c.interference*b[i]
		for _, k := range prey {
			denom += c.handling.At(i, k) * c.attack.At(i, k) * powh(b[k], c.hill)
		}
		if denom <= 0 {
			continue
		}
		for _, j := range prey {
			fr := c.attack.At(i, j) * powh(b[j], c.hill) / denom
			gains[i] += c.efficiency.At(i, j) * b[i] * fr
			losses[j] += b[i] * fr
		}
	}
}

// Bioenergetic is the maximum-consumption / half-saturation functional
// response of the Yodzis-Innes bioenergetic model:
//
//	FR[i][j] = w[i][j]*B_j^h / (B0^h + c*B_i*B0^h + Σ_k w[i][k]*B_k^h)
//
// with gains B_i*x_i*y_i*FR[i][j] and losses on resource j of
// B_i*x_i*y_i*FR[i][j]/e[i][j]. The preference weights w default to
// uniform over the consumer's living prey and are refreshed whenever the
// living prey set changes.
type Bioenergetic struct {
	graph          *network.Graph
	metabolism     []float64
	maxConsumption float64 // y
	efficiency     *mat.Dense
	halfSat        float64 // B0
	hill           float64
	interference   float64
	weights        *mat.Dense
}

// NewBioenergetic builds the bioenergetic response with uniform diet
// preferences over each consumer's full prey set.
func NewBioenergetic(g *network.Graph, t *rates.Tables, efficiency *mat.Dense, maxConsumption, halfSat, hill, interference float64) *Bioenergetic {
	r := &Bioenergetic{
		graph:          g,
		metabolism:     t.Metabolism,
		maxConsumption: maxConsumption,
		efficiency:     efficiency,
		halfSat:        halfSat,
		hill:           hill,
		interference:   interference,
		weights:        mat.NewDense(g.Size(), g.Size(), nil),
	}
	alive := make([]bool, g.Size())
	for i := range alive {
		alive[i] = true
	}
	r.RefreshWeights(alive)
	return r
}

// RefreshWeights recomputes w[i][j] = 1/(number of living prey of i) for
// living prey, 0 elsewhere.
func (r *Bioenergetic) RefreshWeights(alive []bool) {
	s := r.graph.Size()
	for i := 0; i < s; i++ {
		living := 0
		for j := 0; j < s; j++ {
			if r.graph.Has(i, j) && alive[j] {
				living++
			}
		}
		for j := 0; j < s; j++ {
			if r.graph.Has(i, j) && alive[j] && living > 0 {
				r.weights.Set(i, j, 1/float64(living))
			} else {
				r.weights.Set(i, j, 0)
			}
		}
	}
}

// Flows implements Response.
func (r *Bioenergetic) Flows(b []float64, gains, losses []float64) {
	for i := range gains {
		gains[i] = 0
		losses[i] = 0
	}
	s := r.graph.Size()
	b0h := powh(r.halfSat, r.hill)
	for i := 0; i < s; i++ {
		if b[i] <= 0 {
			continue
		}
		prey := r.graph.PreyOf(i)
		if len(prey) == 0 {
			continue
		}
		denom := b0h + r.interference*b[i]*b0h
		for _, k := range prey {
			denom += r.weights.At(i, k) * powh(b[k], r.hill)
		}
		if denom <= 0 {
			continue
		}
		scale := b[i] * r.metabolism[i] * r.maxConsumption
		for _, j := range prey {
			fr := r.weights.At(i, j) * powh(b[j], r.hill) / denom
			gains[i] += scale * fr
			if e := r.efficiency.At(i, j); e > 0 {
				losses[j] += scale * fr / e
			}
		}
	}
}
