package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/trophic/dynamics"
)

// TrajectoryRow is one (replicate, time, species) biomass observation in
// long format, ready for downstream plotting tools.
type TrajectoryRow struct {
	Replicate int     `csv:"replicate"`
	Time      float64 `csv:"time"`
	Species   int     `csv:"species"`
	Biomass   float64 `csv:"biomass"`
}

// ExtinctionRow is one extinction log entry tagged with its replicate.
type ExtinctionRow struct {
	Replicate int     `csv:"replicate"`
	Species   int     `csv:"species"`
	Time      float64 `csv:"time"`
	Phase     int     `csv:"phase"`
}

// OutputManager persists run results as CSV files. The simulation core
// never writes files itself; the runner hands finished records here.
// Returns from New are nil-safe: a nil manager swallows every write, so
// output can be disabled by passing an empty directory.
type OutputManager struct {
	dir             string
	trajectoryFile  *os.File
	extinctionsFile *os.File
	summaryFile     *os.File

	trajectoryHeaderWritten  bool
	extinctionsHeaderWritten bool
	summaryHeaderWritten     bool
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "trajectory.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating trajectory.csv: %w", err)
	}
	om.trajectoryFile = f

	f, err = os.Create(filepath.Join(dir, "extinctions.csv"))
	if err != nil {
		om.trajectoryFile.Close()
		return nil, fmt.Errorf("creating extinctions.csv: %w", err)
	}
	om.extinctionsFile = f

	f, err = os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		om.trajectoryFile.Close()
		om.extinctionsFile.Close()
		return nil, fmt.Errorf("creating summary.csv: %w", err)
	}
	om.summaryFile = f

	return om, nil
}

// Dir returns the output directory.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// WriteRecord appends one run's trajectory and extinction log.
func (om *OutputManager) WriteRecord(replicate int, rec *dynamics.Record) error {
	if om == nil {
		return nil
	}

	rows := make([]TrajectoryRow, 0, rec.Len()*rec.Species())
	for k, t := range rec.Times {
		for i, b := range rec.States[k] {
			rows = append(rows, TrajectoryRow{Replicate: replicate, Time: t, Species: i, Biomass: b})
		}
	}
	if err := om.writeCSV(om.trajectoryFile, rows, &om.trajectoryHeaderWritten); err != nil {
		return fmt.Errorf("writing trajectory: %w", err)
	}

	ext := make([]ExtinctionRow, len(rec.Extinctions))
	for k, e := range rec.Extinctions {
		ext[k] = ExtinctionRow{Replicate: replicate, Species: e.Species, Time: e.Time, Phase: e.Phase}
	}
	if len(ext) > 0 {
		if err := om.writeCSV(om.extinctionsFile, ext, &om.extinctionsHeaderWritten); err != nil {
			return fmt.Errorf("writing extinctions: %w", err)
		}
	}
	return nil
}

// WriteSummary appends one run's window metrics.
func (om *OutputManager) WriteSummary(s Summary) error {
	if om == nil {
		return nil
	}
	if err := om.writeCSV(om.summaryFile, []Summary{s}, &om.summaryHeaderWritten); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// writeCSV marshals records, emitting the header only on the first write
// to each file.
func (om *OutputManager) writeCSV(f *os.File, records any, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Close flushes and closes every output file.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, f := range []*os.File{om.trajectoryFile, om.extinctionsFile, om.summaryFile} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
