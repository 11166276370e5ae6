package dynamics

import (
	"log/slog"

	"github.com/pthm-cable/trophic/network"
)

// Extinction is a single append-only extinction log entry, written once
// at the first threshold crossing and never overwritten.
type Extinction struct {
	Species int     `csv:"species"`
	Time    float64 `csv:"time"`
	Phase   int     `csv:"phase"`
}

// LogValue implements slog.LogValuer for structured logging.
func (e Extinction) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("species", e.Species),
		slog.Float64("time", e.Time),
		slog.Int("phase", e.Phase),
	)
}

// Record is the ordered trajectory of one Run call: biomass snapshots at
// multiples of the sampling interval, the extinction log accumulated so
// far, and the final topology.
type Record struct {
	Times       []float64
	States      [][]float64 // States[k][i] = biomass of species i at Times[k]
	Extinctions []Extinction
	Graph       *network.Graph // final topology, cloned at run end
}

// Len returns the number of recorded samples.
func (r *Record) Len() int { return len(r.Times) }

// Species returns the species count S.
func (r *Record) Species() int {
	if len(r.States) == 0 {
		return 0
	}
	return len(r.States[0])
}

// Final returns the last recorded biomass state.
func (r *Record) Final() []float64 {
	return r.States[len(r.States)-1]
}

func (r *Record) append(t float64, b []float64) {
	snap := make([]float64, len(b))
	copy(snap, b)
	r.Times = append(r.Times, t)
	r.States = append(r.States, snap)
}
