package dynamics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Harvest returns a copy of b with every species whose body mass lies
// above the community median scaled by fraction. The input is never
// mutated; the caller feeds the result into the next simulation phase.
func Harvest(b, masses []float64, fraction float64) ([]float64, error) {
	if len(b) != len(masses) {
		return nil, fmt.Errorf("dynamics: biomass length %d != mass length %d: %w", len(b), len(masses), ErrInvalidParameter)
	}
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("dynamics: harvest fraction %v outside [0,1]: %w", fraction, ErrInvalidParameter)
	}

	sorted := make([]float64, len(masses))
	copy(sorted, masses)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	out := make([]float64, len(b))
	for i := range b {
		out[i] = b[i]
		if masses[i] > median {
			out[i] *= fraction
		}
	}
	return out, nil
}
