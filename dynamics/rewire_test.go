package dynamics

import (
	"testing"

	"github.com/pthm-cable/trophic/network"
	"github.com/pthm-cable/trophic/rates"
)

// rewireWeb builds a 5-species web for the overlap rules:
//
//	0 eats 1, 2
//	3 eats 1, 4
//	4 is a producer, 1 and 2 are producers
//
// When 2 dies, consumer 0's remaining diet is {1}; species 3 also eats 1,
// so 3 is the overlap candidate for 0.
func rewireWeb(t *testing.T) *network.Graph {
	t.Helper()
	g, err := network.FromAdjacency([][]int{
		{0, 1, 1, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 1, 0, 0, 1},
		{0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromAdjacency: %v", err)
	}
	return g
}

func rewireEnv(alive []bool, masses []float64) *RewireEnv {
	return &RewireEnv{Alive: alive, Masses: masses, Cannibal: make([]bool, len(alive))}
}

func TestDietOverlapAddsOneLivingLink(t *testing.T) {
	g := rewireWeb(t)
	alive := []bool{true, true, false, true, true}
	env := rewireEnv(alive, []float64{10, 1, 1, 8, 1})

	DietOverlap{}.Rewire(g, 0, 2, env)

	if g.Has(0, 2) {
		t.Error("link to the extinct resource survived rewiring")
	}
	if !g.Has(0, 3) {
		t.Error("consumer did not gain the overlap candidate")
	}
	// Exactly one new edge: diet is now {1, 3}.
	if got := g.OutDegree(0); got != 2 {
		t.Errorf("out-degree = %d, want 2", got)
	}
}

func TestDietOverlapNoCandidate(t *testing.T) {
	// 0's only living prey after the loss is 1; nobody else eats 1, so
	// the diet simply shrinks.
	g, err := network.FromAdjacency([][]int{
		{0, 1, 1},
		{0, 0, 0},
		{0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromAdjacency: %v", err)
	}
	env := rewireEnv([]bool{true, true, false}, []float64{10, 1, 1})

	DietOverlap{}.Rewire(g, 0, 2, env)

	if got := g.OutDegree(0); got != 1 {
		t.Errorf("out-degree = %d, want 1 (diet shrinks)", got)
	}
}

func TestDietOverlapTieBreakByMass(t *testing.T) {
	// Candidates 3 and 4 both share prey 1 with consumer 0. Species 4's
	// mass is closer to the lost resource's, so it wins the tie.
	g, err := network.FromAdjacency([][]int{
		{0, 1, 1, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0},
		{0, 1, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromAdjacency: %v", err)
	}
	env := rewireEnv([]bool{true, true, false, true, true}, []float64{10, 1, 2, 9, 2.5})

	DietOverlap{}.Rewire(g, 0, 2, env)

	if !g.Has(0, 4) {
		t.Error("mass tie-break did not pick the closest candidate")
	}
	if g.Has(0, 3) {
		t.Error("tie loser gained a link")
	}
}

func TestDietSimilarityPrefersSharedProfile(t *testing.T) {
	// Species 4 shares the lost resource's predator set exactly; species
	// 3's profile is disjoint from it.
	g, err := network.FromAdjacency([][]int{
		{0, 1, 1, 0, 1},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromAdjacency: %v", err)
	}
	// Candidate pool after 1 dies: 3 and 4 are unlinked... 4 is linked,
	// so only 3 qualifies; give it a shared predator via 0 eating it.
	env := rewireEnv([]bool{true, false, true, true, true}, []float64{10, 1, 1, 1.2, 1})

	DietSimilarity{}.Rewire(g, 0, 1, env)

	if g.Has(0, 1) {
		t.Error("link to the extinct resource survived rewiring")
	}
	// Species 3 interacts with nobody, so its similarity to species 1
	// is zero and no link may be added toward it.
	if g.Has(0, 3) {
		t.Error("zero-similarity candidate gained a link")
	}
}

func TestDietSimilarityPicksMostSimilar(t *testing.T) {
	// Both 2 and 3 are consumed by predator 4 like the lost species 1
	// was; 3 additionally shares prey 5 with species 1, so its profile
	// is more similar.
	g, err := network.FromAdjacency([][]int{
		{0, 1, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 1},
		{0, 1, 1, 1, 0, 0},
		{0, 0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromAdjacency: %v", err)
	}
	env := rewireEnv([]bool{true, false, true, true, true, true},
		[]float64{10, 1, 1, 1, 20, 0.1})

	DietSimilarity{}.Rewire(g, 0, 1, env)

	if !g.Has(0, 3) {
		t.Errorf("consumer diet = %v, want the most similar survivor 3", g.PreyOf(0))
	}
}

func TestADBMRewireUsesOnlySurvivors(t *testing.T) {
	p := network.DefaultADBMParams(4)
	masses := []float64{100, 30, 10, 1}
	g := network.NewGraph(4)
	g.Set(0, 2)
	g.Set(0, 3)

	env := &RewireEnv{
		Alive:    []bool{true, true, false, true},
		Masses:   masses,
		Cannibal: make([]bool, 4),
	}
	ADBMRewire{Params: p}.Rewire(g, 0, 2, env)

	if g.Has(0, 2) {
		t.Error("recomputed diet includes the extinct species")
	}
	if g.Has(0, 0) {
		t.Error("recomputed diet includes self without structural cannibalism")
	}
	for _, j := range g.PreyOf(0) {
		if !env.Alive[j] {
			t.Errorf("diet includes dead species %d", j)
		}
	}
}

// Scenario: a forced primary extinction under the DO rule inside a full
// simulation run. The consumer of the dead resource must end up with
// exactly one new edge toward a living species and none toward the dead
// one.
func TestRunRewiringScenario(t *testing.T) {
	g := rewireWeb(t)
	masses := []float64{100, 1, 1, 80, 1}
	tbl, err := rates.Scale(masses, rates.T0, g.Producers(), rates.Options{K0: 10})
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	eff := EfficiencyMatrix(g, 0.45, 0.85)
	sys, err := NewSystem(g, tbl, masses, NewClassical(g, tbl, eff, 2, 0), DietOverlap{})
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}

	// Species 2 enters already dead: a simulated primary extinction.
	rec, err := sys.Run([]float64{0.5, 0.5, 0, 0.5, 0.5}, SimConfig{
		Stop:                10,
		SampleInterval:      1,
		ExtinctionThreshold: 1e-6,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	final := rec.Graph
	if final.Has(0, 2) {
		t.Error("final web still links consumer 0 to the extinct species")
	}
	if !final.Has(0, 3) {
		t.Error("consumer 0 did not rewire to its overlap candidate")
	}
	if len(rec.Extinctions) == 0 || rec.Extinctions[0].Species != 2 {
		t.Errorf("extinction log = %v, want species 2 first", rec.Extinctions)
	}
}
