// Package rates derives body-mass- and temperature-scaled biological
// rates for a food web via Boltzmann-Arrhenius scaling:
//
//	rate = q0 * mass^β * exp(E * (T0 - T) / (k * T * T0))
//
// Attack rate and handling time depend jointly on consumer and resource
// mass and come back as S×S matrices (row = consumer). Growth and
// carrying capacity apply to producers only; metabolism to consumers
// only unless explicitly overridden. Everything here is a deterministic
// function of the mass vector and temperature.
package rates

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParameter reports a malformed scaling input.
var ErrInvalidParameter = errors.New("invalid parameter")

const (
	// T0 is the reference temperature in Kelvin.
	T0 = 293.15
	// Boltzmann is the Boltzmann constant in eV/K.
	Boltzmann = 8.617e-5
)

// Allometric constants per rate: intercept, mass exponents, activation energy.
var (
	growthQ0     = math.Exp(-15.68)
	growthBeta   = -0.25
	growthE      = -0.84
	metabQ0      = math.Exp(-16.54)
	metabBeta    = -0.31
	metabE       = -0.69
	attackQ0     = math.Exp(-13.1)
	attackBetaR  = 0.25
	attackBetaC  = -0.8
	attackE      = -0.38
	handleQ0     = math.Exp(9.66)
	handleBetaR  = -0.45
	handleBetaC  = 0.47
	handleE      = 0.26
	capacityBeta = 0.28
	capacityE    = 0.71
)

// Tables holds the scaled rate set for one community.
type Tables struct {
	Growth     []float64 // r, nonzero for producers only
	Metabolism []float64 // x, zero for producers unless overridden
	Attack     *mat.Dense
	Handling   *mat.Dense
	Capacity   []float64 // K, producers only
}

// Options tunes Scale beyond the fixed allometric constants.
type Options struct {
	K0                 float64 // carrying capacity intercept (required > 0)
	ProducerMetabolism bool    // give producers a metabolic rate too
}

// arrhenius is the temperature correction factor for activation energy e.
func arrhenius(e, tempK float64) float64 {
	return math.Exp(e * (T0 - tempK) / (Boltzmann * tempK * T0))
}

// Scale computes the full rate table for the given masses and temperature.
func Scale(masses []float64, tempK float64, producers []bool, opts Options) (*Tables, error) {
	s := len(masses)
	if s == 0 {
		return nil, fmt.Errorf("rates: empty mass vector: %w", ErrInvalidParameter)
	}
	if len(producers) != s {
		return nil, fmt.Errorf("rates: producer flags length %d != %d: %w", len(producers), s, ErrInvalidParameter)
	}
	if tempK <= 0 {
		return nil, fmt.Errorf("rates: temperature %vK: %w", tempK, ErrInvalidParameter)
	}
	if opts.K0 <= 0 {
		return nil, fmt.Errorf("rates: carrying capacity intercept %v: %w", opts.K0, ErrInvalidParameter)
	}
	for i, m := range masses {
		if m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			return nil, fmt.Errorf("rates: body mass %v for species %d: %w", m, i, ErrInvalidParameter)
		}
	}

	t := &Tables{
		Growth:     make([]float64, s),
		Metabolism: make([]float64, s),
		Attack:     mat.NewDense(s, s, nil),
		Handling:   mat.NewDense(s, s, nil),
		Capacity:   make([]float64, s),
	}

	growthArr := arrhenius(growthE, tempK)
	metabArr := arrhenius(metabE, tempK)
	attackArr := arrhenius(attackE, tempK)
	handleArr := arrhenius(handleE, tempK)
	capArr := arrhenius(capacityE, tempK)

	for i, m := range masses {
		if producers[i] {
			t.Growth[i] = growthQ0 * math.Pow(m, growthBeta) * growthArr
			t.Capacity[i] = opts.K0 * math.Pow(m, capacityBeta) * capArr
			if opts.ProducerMetabolism {
				t.Metabolism[i] = metabQ0 * math.Pow(m, metabBeta) * metabArr
			}
		} else {
			t.Metabolism[i] = metabQ0 * math.Pow(m, metabBeta) * metabArr
		}
	}

	for i, mc := range masses { // consumer
		ci := math.Pow(mc, attackBetaC)
		hi := math.Pow(mc, handleBetaC)
		for j, mr := range masses { // resource
			t.Attack.Set(i, j, attackQ0*math.Pow(mr, attackBetaR)*ci*attackArr)
			t.Handling.Set(i, j, handleQ0*math.Pow(mr, handleBetaR)*hi*handleArr)
		}
	}
	return t, nil
}

// MassesFromZ assigns body masses from trophic levels with a
// consumer:resource mass ratio Z: M_i = Z^(level_i - 1), optionally
// jittered by a log-normal factor with the given sigma. jitterSigma 0
// disables the jitter; rng may be nil in that case.
func MassesFromZ(z float64, levels []float64, jitterSigma float64, rng *rand.Rand) ([]float64, error) {
	if z <= 0 {
		return nil, fmt.Errorf("rates: mass ratio Z %v: %w", z, ErrInvalidParameter)
	}
	if jitterSigma < 0 {
		return nil, fmt.Errorf("rates: jitter sigma %v: %w", jitterSigma, ErrInvalidParameter)
	}
	if jitterSigma > 0 && rng == nil {
		return nil, fmt.Errorf("rates: jitter requested without an rng: %w", ErrInvalidParameter)
	}
	var jitter distuv.LogNormal
	if jitterSigma > 0 {
		jitter = distuv.LogNormal{Mu: 0, Sigma: jitterSigma, Src: rng}
	}
	masses := make([]float64, len(levels))
	for i, tl := range levels {
		masses[i] = math.Pow(z, tl-1)
		if jitterSigma > 0 {
			masses[i] *= jitter.Rand()
		}
	}
	return masses, nil
}
