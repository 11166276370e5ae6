package network

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ADBMParams holds the allometric diet-breadth model coefficients.
// Attack rates, handling times, energy contents and prey densities all
// scale with body mass; a consumer's diet is the profitability-ranked
// prey prefix that maximises its net energy intake rate.
type ADBMParams struct {
	S           int
	MaxAttempts int // resample budget for the realism constraints

	// Body masses: log-normal with Mu ~ U(MuMin, MuMax) and
	// Sigma ~ U(SigmaMin, SigmaMax), redrawn each attempt.
	MuMin, MuMax       float64
	SigmaMin, SigmaMax float64

	E      float64 // energy content per unit resource mass
	A      float64 // attack rate coefficient
	Ai, Aj float64 // attack exponents (consumer, resource)
	N      float64 // prey density coefficient
	Ni     float64 // prey density mass exponent
	B      float64 // ratio-method handling threshold
	H      float64 // handling time coefficient

	MaxConnectance float64 // realism: realised connectance must stay below
	MaxBodyMass    float64 // realism: largest mass allowed
}

// DefaultADBMParams returns the coefficient set used when the caller has
// no opinion. Values follow the ratio handling-time parameterisation.
func DefaultADBMParams(s int) ADBMParams {
	return ADBMParams{
		S:              s,
		MaxAttempts:    1000,
		MuMin:          0,
		MuMax:          8,
		SigmaMin:       1,
		SigmaMax:       4,
		E:              1,
		A:              0.01,
		Ai:             -0.8,
		Aj:             0.25,
		N:              1,
		Ni:             -0.75,
		B:              0.4,
		H:              1,
		MaxConnectance: 0.5,
		MaxBodyMass:    2e8,
	}
}

// ADBMResult is a generated web together with the mass vector and the
// log-normal parameters that produced it.
type ADBMResult struct {
	Graph  *Graph
	Masses []float64
	Mu     float64
	Sigma  float64
}

// ADBM generates a food web with the allometric diet-breadth model.
// Whole parameter sets (mass distribution plus the resulting web) are
// resampled until three realism constraints hold simultaneously:
// connectance below p.MaxConnectance, at least one producer, and maximum
// body mass at most p.MaxBodyMass. The resample budget is bounded;
// exhausting it yields ErrGenerationTimeout.
func ADBM(p ADBMParams, rng *rand.Rand) (*ADBMResult, error) {
	if p.S < 1 {
		return nil, fmt.Errorf("adbm: species count %d: %w", p.S, ErrInvalidParameter)
	}
	if p.MaxAttempts < 1 {
		return nil, fmt.Errorf("adbm: resample budget %d must be positive: %w", p.MaxAttempts, ErrInvalidParameter)
	}
	if p.MuMax < p.MuMin || p.SigmaMax < p.SigmaMin || p.SigmaMin <= 0 {
		return nil, fmt.Errorf("adbm: malformed mass distribution ranges: %w", ErrInvalidParameter)
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		mu := p.MuMin + rng.Float64()*(p.MuMax-p.MuMin)
		sigma := p.SigmaMin + rng.Float64()*(p.SigmaMax-p.SigmaMin)
		ln := distuv.LogNormal{Mu: mu, Sigma: sigma, Src: rng}

		masses := make([]float64, p.S)
		maxMass := 0.0
		for i := range masses {
			masses[i] = ln.Rand()
			if masses[i] > maxMass {
				maxMass = masses[i]
			}
		}
		if maxMass > p.MaxBodyMass {
			continue
		}

		g := NewGraph(p.S)
		for i := 0; i < p.S; i++ {
			for _, j := range ADBMDiet(p, masses, i, nil) {
				g.Set(i, j)
			}
		}

		if g.Connectance() >= p.MaxConnectance {
			continue
		}
		producers := 0
		for i := 0; i < p.S; i++ {
			if g.IsProducer(i) {
				producers++
			}
		}
		if producers == 0 {
			continue
		}

		return &ADBMResult{Graph: g, Masses: masses, Mu: mu, Sigma: sigma}, nil
	}
	return nil, fmt.Errorf("adbm: realism constraints not met in %d attempts: %w",
		p.MaxAttempts, ErrGenerationTimeout)
}

// ADBMDiet computes consumer i's optimal feeding set over the candidate
// prey. eligible nil means every species is a candidate; otherwise only
// indices with eligible[j] true are considered (the rewiring engine
// restricts candidates to survivors this way). The consumer itself is
// always a candidate when eligible, so cannibalism can emerge from the
// mass structure alone.
//
// Prey are ranked by profitability E_j/h_ij (descending); the diet is the
// prefix whose cumulative intake rate sum(λE)/(1+sum(λh)) is maximal,
// with ties at the maximum resolved by taking the longest such prefix.
// Prey whose handling time is infinite under the ratio method are never
// included: infinite handling means zero feasible intake.
func ADBMDiet(p ADBMParams, masses []float64, i int, eligible []bool) []int {
	type cand struct {
		j      int
		profit float64 // E_j / h_ij
		energy float64 // λ_ij * E_j
		handle float64 // λ_ij * h_ij
	}
	var cands []cand
	for j := range masses {
		if eligible != nil && !eligible[j] {
			continue
		}
		ratio := masses[j] / masses[i]
		if ratio >= p.B {
			continue // infinite handling time under the ratio method
		}
		h := p.H / (p.B - ratio)
		energy := p.E * masses[j]
		density := p.N * math.Pow(masses[j], p.Ni)
		lambda := p.A * math.Pow(masses[i], p.Ai) * math.Pow(masses[j], p.Aj) * density
		cands = append(cands, cand{
			j:      j,
			profit: energy / h,
			energy: lambda * energy,
			handle: lambda * h,
		})
	}
	if len(cands) == 0 {
		return nil
	}

	sort.Slice(cands, func(a, b int) bool {
		if cands[a].profit != cands[b].profit {
			return cands[a].profit > cands[b].profit
		}
		return cands[a].j < cands[b].j
	})

	bestRate := math.Inf(-1)
	bestK := 0
	sumE, sumH := 0.0, 0.0
	for k, c := range cands {
		sumE += c.energy
		sumH += c.handle
		rate := sumE / (1 + sumH)
		if rate >= bestRate {
			bestRate = rate
			bestK = k + 1
		}
	}

	diet := make([]int, bestK)
	for k := 0; k < bestK; k++ {
		diet[k] = cands[k].j
	}
	sort.Ints(diet)
	return diet
}
