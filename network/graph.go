// Package network generates and manipulates directed trophic interaction
// graphs: who eats whom. Row i, column j set means species i consumes
// species j. Producers are species with no outgoing edges.
package network

import "errors"

var (
	// ErrInvalidParameter reports a malformed generation parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrGenerationTimeout reports an exhausted retry budget.
	ErrGenerationTimeout = errors.New("generation retry budget exhausted")
)

// Graph is a dense S×S binary adjacency matrix over species 0..S-1.
type Graph struct {
	s   int
	adj []bool // row-major; adj[i*s+j] means i consumes j
}

// NewGraph returns an empty graph over s species.
func NewGraph(s int) *Graph {
	return &Graph{s: s, adj: make([]bool, s*s)}
}

// Size returns the species count S.
func (g *Graph) Size() int { return g.s }

// Has reports whether consumer i eats resource j.
func (g *Graph) Has(i, j int) bool { return g.adj[i*g.s+j] }

// Set adds the link i eats j.
func (g *Graph) Set(i, j int) { g.adj[i*g.s+j] = true }

// Unset removes the link i eats j.
func (g *Graph) Unset(i, j int) { g.adj[i*g.s+j] = false }

// OutDegree returns the number of resources consumer i feeds on.
func (g *Graph) OutDegree(i int) int {
	n := 0
	for j := 0; j < g.s; j++ {
		if g.adj[i*g.s+j] {
			n++
		}
	}
	return n
}

// IsProducer reports whether species i has no outgoing edges.
func (g *Graph) IsProducer(i int) bool { return g.OutDegree(i) == 0 }

// Producers returns the producer flags for all species.
func (g *Graph) Producers() []bool {
	out := make([]bool, g.s)
	for i := range out {
		out[i] = g.IsProducer(i)
	}
	return out
}

// PreyOf returns the resource indices of consumer i in ascending order.
func (g *Graph) PreyOf(i int) []int {
	var prey []int
	for j := 0; j < g.s; j++ {
		if g.adj[i*g.s+j] {
			prey = append(prey, j)
		}
	}
	return prey
}

// PredatorsOf returns the consumer indices feeding on resource j.
func (g *Graph) PredatorsOf(j int) []int {
	var preds []int
	for i := 0; i < g.s; i++ {
		if g.adj[i*g.s+j] {
			preds = append(preds, i)
		}
	}
	return preds
}

// Links returns the total number of edges.
func (g *Graph) Links() int {
	n := 0
	for _, v := range g.adj {
		if v {
			n++
		}
	}
	return n
}

// Connectance returns L/S^2.
func (g *Graph) Connectance() float64 {
	return float64(g.Links()) / float64(g.s*g.s)
}

// Clone returns a deep copy. Each simulation run owns its own copy so
// rewiring never aliases across runs.
func (g *Graph) Clone() *Graph {
	adj := make([]bool, len(g.adj))
	copy(adj, g.adj)
	return &Graph{s: g.s, adj: adj}
}

// FromAdjacency builds a graph from a dense 0/1 matrix (row = consumer).
func FromAdjacency(a [][]int) (*Graph, error) {
	s := len(a)
	if s == 0 {
		return nil, errors.New("empty adjacency matrix")
	}
	g := NewGraph(s)
	for i, row := range a {
		if len(row) != s {
			return nil, errors.New("adjacency matrix is not square")
		}
		for j, v := range row {
			if v != 0 {
				g.Set(i, j)
			}
		}
	}
	return g, nil
}
