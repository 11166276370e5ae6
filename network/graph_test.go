package network

import "testing"

func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := FromAdjacency([][]int{
		{0, 1, 0, 0},
		{0, 0, 1, 1},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("FromAdjacency: %v", err)
	}
	return g
}

func TestGraphBasics(t *testing.T) {
	g := chainGraph(t)

	if got := g.Size(); got != 4 {
		t.Errorf("Size() = %d, want 4", got)
	}
	if got := g.Links(); got != 3 {
		t.Errorf("Links() = %d, want 3", got)
	}
	if got := g.Connectance(); got != 3.0/16 {
		t.Errorf("Connectance() = %v, want %v", got, 3.0/16)
	}

	tests := []struct {
		name     string
		species  int
		producer bool
		outDeg   int
	}{
		{"top consumer", 0, false, 1},
		{"intermediate", 1, false, 2},
		{"producer 2", 2, true, 0},
		{"producer 3", 3, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.IsProducer(tt.species); got != tt.producer {
				t.Errorf("IsProducer(%d) = %v, want %v", tt.species, got, tt.producer)
			}
			if got := g.OutDegree(tt.species); got != tt.outDeg {
				t.Errorf("OutDegree(%d) = %d, want %d", tt.species, got, tt.outDeg)
			}
		})
	}
}

func TestGraphPreyPredators(t *testing.T) {
	g := chainGraph(t)

	prey := g.PreyOf(1)
	if len(prey) != 2 || prey[0] != 2 || prey[1] != 3 {
		t.Errorf("PreyOf(1) = %v, want [2 3]", prey)
	}
	preds := g.PredatorsOf(2)
	if len(preds) != 1 || preds[0] != 1 {
		t.Errorf("PredatorsOf(2) = %v, want [1]", preds)
	}
}

func TestGraphCloneIndependence(t *testing.T) {
	g := chainGraph(t)
	c := g.Clone()

	c.Set(3, 2)
	if g.Has(3, 2) {
		t.Error("mutating the clone leaked into the original")
	}
	c.Unset(0, 1)
	if !g.Has(0, 1) {
		t.Error("unsetting on the clone leaked into the original")
	}
}

func TestFromAdjacencyErrors(t *testing.T) {
	if _, err := FromAdjacency(nil); err == nil {
		t.Error("empty matrix should fail")
	}
	if _, err := FromAdjacency([][]int{{0, 1}, {0}}); err == nil {
		t.Error("ragged matrix should fail")
	}
}
