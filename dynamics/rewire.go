package dynamics

import (
	"math"

	"github.com/pthm-cable/trophic/network"
)

// RewireEnv carries the run state a rewiring rule may consult: which
// species still live, their body masses, and which consumers could
// structurally self-consume at run start. Rules never add a link toward
// a dead species and never create a self-link for a consumer that had no
// cannibalism to begin with.
type RewireEnv struct {
	Alive    []bool
	Masses   []float64
	Cannibal []bool
}

// Rewirer recomputes one consumer's diet after resource lost went
// extinct. Implementations mutate the graph row of the consumer only.
type Rewirer interface {
	Rewire(g *network.Graph, consumer, lost int, env *RewireEnv)
}

// eligible reports whether k may become new prey of consumer i.
func (env *RewireEnv) eligible(g *network.Graph, i, k int) bool {
	if !env.Alive[k] || g.Has(i, k) {
		return false
	}
	if k == i && !env.Cannibal[i] {
		return false
	}
	return true
}

// livingPrey returns the living prey set of i as a membership mask.
func livingPrey(g *network.Graph, i int, alive []bool) []bool {
	mask := make([]bool, g.Size())
	for _, j := range g.PreyOf(i) {
		if alive[j] {
			mask[j] = true
		}
	}
	return mask
}

// DietOverlap adds at most one replacement link: the candidate sharing
// the most living prey with the consumer's remaining diet, ties broken
// by the smallest body-mass difference from the lost resource. With no
// overlapping candidate the diet simply shrinks.
type DietOverlap struct{}

// Rewire implements Rewirer.
func (DietOverlap) Rewire(g *network.Graph, consumer, lost int, env *RewireEnv) {
	g.Unset(consumer, lost)
	remaining := livingPrey(g, consumer, env.Alive)

	best, bestOverlap := -1, 0
	bestMassDiff := math.Inf(1)
	for k := 0; k < g.Size(); k++ {
		if !env.eligible(g, consumer, k) {
			continue
		}
		overlap := 0
		for _, p := range g.PreyOf(k) {
			if remaining[p] {
				overlap++
			}
		}
		if overlap < 1 {
			continue
		}
		massDiff := math.Abs(env.Masses[k] - env.Masses[lost])
		if overlap > bestOverlap || (overlap == bestOverlap && massDiff < bestMassDiff) {
			best, bestOverlap, bestMassDiff = k, overlap, massDiff
		}
	}
	if best >= 0 {
		g.Set(consumer, best)
	}
}

// DietSimilarity adds at most one replacement link: the living candidate
// whose full interaction profile (prey plus predators, over the whole
// community) is most similar to the lost resource's profile, measured by
// Jaccard similarity. Ties break by smallest body-mass difference.
type DietSimilarity struct{}

// Rewire implements Rewirer.
func (DietSimilarity) Rewire(g *network.Graph, consumer, lost int, env *RewireEnv) {
	g.Unset(consumer, lost)

	lostProfile := interactionProfile(g, lost, env.Alive)
	best := -1
	bestSim := 0.0
	bestMassDiff := math.Inf(1)
	for k := 0; k < g.Size(); k++ {
		if !env.eligible(g, consumer, k) {
			continue
		}
		sim := jaccard(interactionProfile(g, k, env.Alive), lostProfile)
		if sim <= 0 {
			continue
		}
		massDiff := math.Abs(env.Masses[k] - env.Masses[lost])
		if sim > bestSim || (sim == bestSim && massDiff < bestMassDiff) {
			best, bestSim, bestMassDiff = k, sim, massDiff
		}
	}
	if best >= 0 {
		g.Set(consumer, best)
	}
}

// interactionProfile is the membership mask of species interacting with
// i in either direction, restricted to the living community.
func interactionProfile(g *network.Graph, i int, alive []bool) []bool {
	mask := make([]bool, g.Size())
	for _, j := range g.PreyOf(i) {
		if alive[j] {
			mask[j] = true
		}
	}
	for _, j := range g.PredatorsOf(i) {
		if alive[j] {
			mask[j] = true
		}
	}
	return mask
}

func jaccard(a, b []bool) float64 {
	inter, union := 0, 0
	for i := range a {
		switch {
		case a[i] && b[i]:
			inter++
			union++
		case a[i] || b[i]:
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ADBMRewire recomputes the consumer's whole feeding set with the
// allometric diet-breadth profitability ranking restricted to survivors.
// Unlike the overlap rules it can both add and drop links as the optimal
// profitable prefix shifts.
type ADBMRewire struct {
	Params network.ADBMParams
}

// Rewire implements Rewirer.
func (r ADBMRewire) Rewire(g *network.Graph, consumer, lost int, env *RewireEnv) {
	s := g.Size()
	candidates := make([]bool, s)
	for k := 0; k < s; k++ {
		candidates[k] = env.Alive[k]
	}
	candidates[consumer] = env.Alive[consumer] && env.Cannibal[consumer]

	diet := network.ADBMDiet(r.Params, env.Masses, consumer, candidates)
	for j := 0; j < s; j++ {
		g.Unset(consumer, j)
	}
	for _, j := range diet {
		g.Set(consumer, j)
	}
}
