package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/phylo"
)

// OutputManager handles structured experiment output. summary.csv and
// perf.csv collect one row per replicate; every replicate also gets its own
// tree files. Safe for concurrent use by batch workers.
type OutputManager struct {
	dir          string
	speciesStats bool
	plots        bool

	mu          sync.Mutex
	summaryFile *os.File
	perfFile    *os.File

	summaryHeaderWritten bool
	perfHeaderWritten    bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, oc config.OutputConfig) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{
		dir:          dir,
		speciesStats: oc.SpeciesStats,
		plots:        oc.Plots,
	}

	f, err := os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating summary.csv: %w", err)
	}
	om.summaryFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.summaryFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteSummaries appends rows to summary.csv.
func (om *OutputManager) WriteSummaries(rows ...RunSummary) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()

	if !om.summaryHeaderWritten {
		if err := gocsv.Marshal(rows, om.summaryFile); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		om.summaryHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, om.summaryFile); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// WritePerf appends a replicate's timing breakdown to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, run int) error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()

	records := []PerfStatsCSV{stats.ToCSV(run)}
	if !om.perfHeaderWritten {
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// RunArtifacts is everything one replicate leaves behind.
type RunArtifacts struct {
	Label     string // file prefix, e.g. "run_0007"
	Tree      *phylo.Tree
	Steps     []StepStats
	Bookmarks []Bookmark
	EndTime   float64
	Step      float64
}

// WriteRun writes the per-replicate files: the tree-state dump, the Newick
// tree, a Graphviz graph, the step series and bookmarks, plus per-species
// statistics and the lineages-through-time plot when enabled.
func (om *OutputManager) WriteRun(a RunArtifacts) error {
	if om == nil {
		return nil
	}

	records := a.Tree.Records()
	if err := writeCSV(om.path(a.Label, "persist.csv"), &records); err != nil {
		return err
	}
	if err := os.WriteFile(om.path(a.Label, "phylo.tre"), []byte(a.Tree.Newick()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing newick: %w", err)
	}
	if err := om.writeDot(a); err != nil {
		return err
	}
	if len(a.Steps) > 0 {
		if err := writeCSV(om.path(a.Label, "steps.csv"), &a.Steps); err != nil {
			return err
		}
	}
	if len(a.Bookmarks) > 0 {
		if err := writeCSV(om.path(a.Label, "bookmarks.csv"), &a.Bookmarks); err != nil {
			return err
		}
	}

	if om.speciesStats {
		rows := a.Tree.SpeciesStats()
		if len(rows) > 0 {
			if err := writeCSV(om.path(a.Label, "species.csv"), &rows); err != nil {
				return err
			}
		}
	}

	if om.plots {
		ltt := a.Tree.LineagesThroughTime(0, a.EndTime, a.Step)
		if len(ltt) >= 2 {
			f, err := os.Create(om.path(a.Label, "ltt.png"))
			if err != nil {
				return fmt.Errorf("creating plot: %w", err)
			}
			err = PlotLineages(f, a.Label, ltt)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (om *OutputManager) writeDot(a RunArtifacts) error {
	f, err := os.Create(om.path(a.Label, "phylo.dot"))
	if err != nil {
		return fmt.Errorf("creating dot file: %w", err)
	}
	err = a.Tree.WriteDot(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing dot file: %w", err)
	}
	return nil
}

func (om *OutputManager) path(label, name string) string {
	return filepath.Join(om.dir, label+"_"+name)
}

func writeCSV(path string, rows any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	om.mu.Lock()
	defer om.mu.Unlock()

	var firstErr error

	if om.summaryFile != nil {
		if err := om.summaryFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if om.perfFile != nil {
		if err := om.perfFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
