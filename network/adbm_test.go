package network

import (
	"errors"
	"math/rand"
	"testing"
)

func TestADBMRealismConstraints(t *testing.T) {
	p := DefaultADBMParams(15)
	res, err := ADBM(p, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("ADBM: %v", err)
	}

	if got := res.Graph.Connectance(); got >= p.MaxConnectance {
		t.Errorf("connectance %v, want < %v", got, p.MaxConnectance)
	}
	producers := 0
	for i := 0; i < res.Graph.Size(); i++ {
		if res.Graph.IsProducer(i) {
			producers++
		}
	}
	if producers == 0 {
		t.Error("web has no producer")
	}
	for i, m := range res.Masses {
		if m <= 0 {
			t.Errorf("species %d: mass %v not positive", i, m)
		}
		if m > p.MaxBodyMass {
			t.Errorf("species %d: mass %v exceeds cap %v", i, m, p.MaxBodyMass)
		}
	}
}

func TestADBMDeterminism(t *testing.T) {
	p := DefaultADBMParams(12)
	a, err := ADBM(p, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("ADBM: %v", err)
	}
	b, err := ADBM(p, rand.New(rand.NewSource(11)))
	if err != nil {
		t.Fatalf("ADBM: %v", err)
	}
	if a.Mu != b.Mu || a.Sigma != b.Sigma {
		t.Fatalf("seed 11 not reproducible: params differ (%v,%v) vs (%v,%v)", a.Mu, a.Sigma, b.Mu, b.Sigma)
	}
	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			if a.Graph.Has(i, j) != b.Graph.Has(i, j) {
				t.Fatalf("seed 11 not reproducible: matrices differ at (%d,%d)", i, j)
			}
		}
	}
}

func TestADBMBoundedFailure(t *testing.T) {
	p := DefaultADBMParams(10)
	p.MaxBodyMass = 1e-30 // unreachable: every draw fails the mass cap
	p.MaxAttempts = 50
	_, err := ADBM(p, rand.New(rand.NewSource(5)))
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Errorf("error = %v, want ErrGenerationTimeout", err)
	}
}

func TestADBMInvalidParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	p := DefaultADBMParams(0)
	if _, err := ADBM(p, rng); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("S=0: error = %v, want ErrInvalidParameter", err)
	}

	p = DefaultADBMParams(10)
	p.MaxAttempts = 0
	if _, err := ADBM(p, rng); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("zero budget: error = %v, want ErrInvalidParameter", err)
	}
}

func TestADBMDietRatioThreshold(t *testing.T) {
	// With B=0.4, only prey below 40% of the consumer's mass are
	// feasible; everything else has infinite handling time.
	p := DefaultADBMParams(4)
	masses := []float64{100, 50, 10, 1}

	diet := ADBMDiet(p, masses, 0, nil)
	for _, j := range diet {
		if masses[j]/masses[0] >= p.B {
			t.Errorf("diet includes species %d with mass ratio %v >= %v", j, masses[j]/masses[0], p.B)
		}
	}
	if len(diet) == 0 {
		t.Error("consumer with feasible prey has empty diet")
	}

	// The smallest species can eat nobody.
	if diet := ADBMDiet(p, masses, 3, nil); len(diet) != 0 {
		t.Errorf("smallest species diet = %v, want empty", diet)
	}
}

func TestADBMDietEligibleMask(t *testing.T) {
	p := DefaultADBMParams(4)
	masses := []float64{100, 50, 10, 1}
	eligible := []bool{true, true, false, true}

	for _, j := range ADBMDiet(p, masses, 0, eligible) {
		if j == 2 {
			t.Error("diet includes ineligible species 2")
		}
	}
}
