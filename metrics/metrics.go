// Package metrics computes summary statistics over the trailing window
// of a recorded biomass trajectory. All functions are pure; they read a
// dynamics.Record and never mutate it.
package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/trophic/dynamics"
)

// ErrEmptyWindow reports a window larger than the recorded history.
var ErrEmptyWindow = errors.New("window exceeds recorded samples")

// window returns the last n sample states, failing when fewer exist.
func window(rec *dynamics.Record, n int) ([][]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("metrics: window size %d: %w", n, ErrEmptyWindow)
	}
	if n > rec.Len() {
		return nil, fmt.Errorf("metrics: window %d > %d recorded samples: %w", n, rec.Len(), ErrEmptyWindow)
	}
	return rec.States[rec.Len()-n:], nil
}

// TotalBiomass is the mean over the window of the community biomass sum.
func TotalBiomass(rec *dynamics.Record, n int) (float64, error) {
	states, err := window(rec, n)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, b := range states {
		total += floats.Sum(b)
	}
	return total / float64(n), nil
}

// Richness is the mean count of species with biomass above the
// extinction threshold across the window.
func Richness(rec *dynamics.Record, n int, threshold float64) (float64, error) {
	states, err := window(rec, n)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, b := range states {
		for _, v := range b {
			if v > threshold {
				total++
			}
		}
	}
	return float64(total) / float64(n), nil
}

// Persistence is mean richness divided by the initial species count.
func Persistence(rec *dynamics.Record, n int, threshold float64) (float64, error) {
	richness, err := Richness(rec, n, threshold)
	if err != nil {
		return 0, err
	}
	return richness / float64(rec.Species()), nil
}

// PopulationStability is the negative mean coefficient of variation of
// biomass across the window, averaged over species alive in the final
// sample. 0 means perfectly stable; more negative means noisier.
func PopulationStability(rec *dynamics.Record, n int, threshold float64) (float64, error) {
	states, err := window(rec, n)
	if err != nil {
		return 0, err
	}
	final := states[len(states)-1]
	series := make([]float64, n)
	sumCV := 0.0
	alive := 0
	for i, v := range final {
		if v <= threshold {
			continue
		}
		for k, b := range states {
			series[k] = b[i]
		}
		mean, std := stat.MeanStdDev(series, nil)
		if mean <= 0 {
			continue
		}
		if math.IsNaN(std) { // single-sample window
			std = 0
		}
		sumCV += std / mean
		alive++
	}
	if alive == 0 {
		return 0, nil
	}
	return -sumCV / float64(alive), nil
}

// Evenness is the normalised Shannon entropy of the biomass distribution
// over surviving species in the final sample of the window: 1 when all
// survivors hold equal biomass, approaching 0 under dominance. A window
// with at most one survivor scores 0.
func Evenness(rec *dynamics.Record, n int, threshold float64) (float64, error) {
	states, err := window(rec, n)
	if err != nil {
		return 0, err
	}
	final := states[len(states)-1]
	var survivors []float64
	total := 0.0
	for _, v := range final {
		if v > threshold {
			survivors = append(survivors, v)
			total += v
		}
	}
	if len(survivors) < 2 || total <= 0 {
		return 0, nil
	}
	entropy := 0.0
	for _, v := range survivors {
		p := v / total
		entropy -= p * math.Log(p)
	}
	return entropy / math.Log(float64(len(survivors))), nil
}

// Summary bundles the five window metrics for one run.
type Summary struct {
	Replicate    int     `csv:"replicate"`
	Window       int     `csv:"window"`
	TotalBiomass float64 `csv:"total_biomass"`
	Richness     float64 `csv:"richness"`
	Persistence  float64 `csv:"persistence"`
	Stability    float64 `csv:"stability"`
	Evenness     float64 `csv:"evenness"`
	Extinctions  int     `csv:"extinctions"`
}

// Summarize computes every window metric in one pass over the record.
func Summarize(rec *dynamics.Record, n int, threshold float64) (Summary, error) {
	s := Summary{Window: n, Extinctions: len(rec.Extinctions)}
	var err error
	if s.TotalBiomass, err = TotalBiomass(rec, n); err != nil {
		return Summary{}, err
	}
	if s.Richness, err = Richness(rec, n, threshold); err != nil {
		return Summary{}, err
	}
	if s.Persistence, err = Persistence(rec, n, threshold); err != nil {
		return Summary{}, err
	}
	if s.Stability, err = PopulationStability(rec, n, threshold); err != nil {
		return Summary{}, err
	}
	if s.Evenness, err = Evenness(rec, n, threshold); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("replicate", s.Replicate),
		slog.Int("window", s.Window),
		slog.Float64("total_biomass", s.TotalBiomass),
		slog.Float64("richness", s.Richness),
		slog.Float64("persistence", s.Persistence),
		slog.Float64("stability", s.Stability),
		slog.Float64("evenness", s.Evenness),
		slog.Int("extinctions", s.Extinctions),
	)
}
