package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TrophicLevels computes prey-averaged trophic levels: producers sit at
// level 1 and each consumer sits one above the mean level of its prey.
// That is the solution of (I - Q) t = 1 with Q[i][j] = A[i][j]/outdeg(i).
// Fails when the linear system is singular, which only happens for webs
// whose consumers feed exclusively inside a cycle.
func TrophicLevels(g *Graph) ([]float64, error) {
	s := g.Size()
	m := mat.NewDense(s, s, nil)
	for i := 0; i < s; i++ {
		m.Set(i, i, 1)
		deg := g.OutDegree(i)
		if deg == 0 {
			continue
		}
		w := 1 / float64(deg)
		for j := 0; j < s; j++ {
			if g.Has(i, j) {
				m.Set(i, j, m.At(i, j)-w)
			}
		}
	}

	ones := mat.NewVecDense(s, nil)
	for i := 0; i < s; i++ {
		ones.SetVec(i, 1)
	}
	var levels mat.VecDense
	if err := levels.SolveVec(m, ones); err != nil {
		return nil, fmt.Errorf("trophic levels: singular web structure: %w", err)
	}

	out := make([]float64, s)
	for i := 0; i < s; i++ {
		out[i] = levels.AtVec(i)
	}
	return out, nil
}
