package network

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Niche generates a food web with the niche model: each species gets a
// uniform niche value n, a beta-distributed feeding range r = x*n with
// E[x] = 2C, and a feeding centre drawn from U(r/2, n). Species j is eaten
// by i when n_j falls inside i's feeding interval. The species with the
// smallest niche value gets range 0 so the web always has a producer.
//
// Realised connectance only approximates the request; use NicheExact when
// a tolerance matters.
func Niche(s int, connectance float64, rng *rand.Rand) (*Graph, error) {
	if s < 1 {
		return nil, fmt.Errorf("niche: species count %d: %w", s, ErrInvalidParameter)
	}
	if connectance <= 0 || connectance >= 1 {
		return nil, fmt.Errorf("niche: connectance %v outside (0,1): %w", connectance, ErrInvalidParameter)
	}
	if connectance >= 0.5 {
		// The beta shape 1/(2C)-1 must stay positive.
		return nil, fmt.Errorf("niche: connectance %v >= 0.5 infeasible for the niche model: %w", connectance, ErrInvalidParameter)
	}

	width := distuv.Beta{Alpha: 1, Beta: 1/(2*connectance) - 1, Src: rng}

	n := make([]float64, s)
	lowest := 0
	for i := range n {
		n[i] = rng.Float64()
		if n[i] < n[lowest] {
			lowest = i
		}
	}

	g := NewGraph(s)
	for i := 0; i < s; i++ {
		if i == lowest {
			continue // forced basal species
		}
		r := width.Rand() * n[i]
		c := r/2 + rng.Float64()*(n[i]-r/2)
		lo, hi := c-r/2, c+r/2
		for j := 0; j < s; j++ {
			if n[j] >= lo && n[j] <= hi {
				g.Set(i, j)
			}
		}
	}
	return g, nil
}

// NicheExact regenerates niche webs until the realised connectance falls
// within tol of the request, up to maxRetries attempts. Exhausting the
// budget yields ErrGenerationTimeout rather than looping forever.
func NicheExact(s int, connectance, tol float64, maxRetries int, rng *rand.Rand) (*Graph, error) {
	if tol <= 0 {
		return nil, fmt.Errorf("niche: tolerance %v must be positive: %w", tol, ErrInvalidParameter)
	}
	if maxRetries < 1 {
		return nil, fmt.Errorf("niche: retry budget %d must be positive: %w", maxRetries, ErrInvalidParameter)
	}
	for attempt := 0; attempt < maxRetries; attempt++ {
		g, err := Niche(s, connectance, rng)
		if err != nil {
			return nil, err
		}
		if math.Abs(g.Connectance()-connectance) <= tol {
			return g, nil
		}
	}
	return nil, fmt.Errorf("niche: connectance %v±%v not met in %d attempts: %w",
		connectance, tol, maxRetries, ErrGenerationTimeout)
}
