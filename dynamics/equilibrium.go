package dynamics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Equilibrium searches for a biomass vector near b0 where the dynamics
// are stationary, by minimising the squared derivative norm in
// log-biomass space with Nelder-Mead. Harvesting experiments use it to
// start from (approximately) settled communities instead of paying for a
// long burn-in. Extinct species stay pinned at zero.
//
// maxEvals bounds the search; 0 picks a default budget. The best point
// found is returned even when the optimiser stops on its budget rather
// than on convergence.
func Equilibrium(sys *System, b0 []float64, maxEvals int) ([]float64, error) {
	s := sys.graph.Size()
	if len(b0) != s {
		return nil, fmt.Errorf("dynamics: initial biomass length %d != %d species: %w", len(b0), s, ErrInvalidParameter)
	}
	if maxEvals <= 0 {
		maxEvals = 2000 * s
	}

	if pw, ok := sys.response.(preyWeighted); ok {
		pw.RefreshWeights(sys.alive())
	}

	// Optimise only over living species, in log space so the search can
	// cross orders of magnitude without going negative.
	var liveIdx []int
	for i := 0; i < s; i++ {
		if !sys.extinct[i] {
			liveIdx = append(liveIdx, i)
		}
	}
	if len(liveIdx) == 0 {
		out := make([]float64, s)
		return out, nil
	}

	x0 := make([]float64, len(liveIdx))
	for n, i := range liveIdx {
		x0[n] = math.Log(math.Max(b0[i], 1e-12))
	}

	b := make([]float64, s)
	db := make([]float64, s)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			for i := range b {
				b[i] = 0
			}
			for n, i := range liveIdx {
				b[i] = math.Exp(x[n])
			}
			sys.derivative(b, db)
			sum := 0.0
			for _, i := range liveIdx {
				sum += db[i] * db[i]
			}
			return sum
		},
	}

	settings := &optimize.Settings{FuncEvaluations: maxEvals}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if result == nil {
		return nil, fmt.Errorf("dynamics: equilibrium search failed: %w", err)
	}

	out := make([]float64, s)
	for n, i := range liveIdx {
		out[i] = math.Exp(result.X[n])
	}
	return out, nil
}
