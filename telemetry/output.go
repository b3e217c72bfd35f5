package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	"github.com/edipowladeo/enxame/config"
)

// NewRunID returns a fresh identifier used to tag every record of a run.
func NewRunID() string {
	return uuid.NewString()
}

// AssignmentRecord is one row of assignment.csv: start point Index is
// matched to end point Target.
type AssignmentRecord struct {
	RunID  string  `csv:"run_id"`
	Index  int     `csv:"index"`
	Target int     `csv:"target"`
	StartX float64 `csv:"start_x"`
	StartY float64 `csv:"start_y"`
	StartZ float64 `csv:"start_z"`
	EndX   float64 `csv:"end_x"`
	EndY   float64 `csv:"end_y"`
	EndZ   float64 `csv:"end_z"`
	Cost   float64 `csv:"cost"` // squared distance
}

// csvFile writes the header with the first batch of records only.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func writeCSV[T any](cf *csvFile, records []T) error {
	if !cf.headerWritten {
		if err := gocsv.Marshal(records, cf.f); err != nil {
			return err
		}
		cf.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, cf.f)
}

// OutputManager handles structured run output with CSV logging.
// A nil *OutputManager is valid and discards everything.
type OutputManager struct {
	dir   string
	runID string

	telemetry  csvFile
	perf       csvFile
	bookmarks  csvFile
	assignment csvFile
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir, runID string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, runID: runID}
	files := []struct {
		name string
		dst  *csvFile
	}{
		{"telemetry.csv", &om.telemetry},
		{"perf.csv", &om.perf},
		{"bookmarks.csv", &om.bookmarks},
		{"assignment.csv", &om.assignment},
	}
	for _, file := range files {
		f, err := os.Create(filepath.Join(dir, file.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", file.name, err)
		}
		file.dst.f = f
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(&om.telemetry, []WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int64) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(&om.perf, []PerfStatsCSV{stats.ToCSV(om.runID, windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteBookmark writes a bookmark record to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(&om.bookmarks, []Bookmark{b}); err != nil {
		return fmt.Errorf("writing bookmark: %w", err)
	}
	return nil
}

// WriteAssignment appends a solved correspondence to assignment.csv.
func (om *OutputManager) WriteAssignment(records []AssignmentRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if err := writeCSV(&om.assignment, records); err != nil {
		return fmt.Errorf("writing assignment: %w", err)
	}
	return nil
}

// WriteSnapshot saves snap under the snapshots subdirectory.
func (om *OutputManager) WriteSnapshot(snap *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(snap, filepath.Join(om.dir, "snapshots"))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// RunID returns the identifier written into every record.
func (om *OutputManager) RunID() string {
	if om == nil {
		return ""
	}
	return om.runID
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, cf := range []*csvFile{&om.telemetry, &om.perf, &om.bookmarks, &om.assignment} {
		if cf.f == nil {
			continue
		}
		if err := cf.f.Close(); err != nil {
			errs = append(errs, err)
		}
		cf.f = nil
	}
	return errors.Join(errs...)
}
