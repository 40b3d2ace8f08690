package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/salamanders/config"
	"github.com/pthm-cable/salamanders/phylo"
)

func testTree(t *testing.T) *phylo.Tree {
	t.Helper()
	tree, err := phylo.FromNodes([]phylo.Record{
		{ID: 0, Emergence: 0, LastChild: 2, Parent: phylo.NoParent, FoundingTrait: 15},
		{ID: 1, Emergence: 2, LastChild: 10, Parent: 0, FoundingTrait: 14, Genome: 7},
		{ID: 2, Emergence: 2, LastChild: 10, Parent: 0, FoundingTrait: 13, Genome: 9},
	})
	if err != nil {
		t.Fatalf("FromNodes: %v", err)
	}
	return tree
}

func TestNewOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("", config.OutputConfig{})
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if om != nil {
		t.Fatal("expected nil manager for empty dir")
	}

	// Every method is a no-op on nil.
	if err := om.WriteSummaries(RunSummary{Run: 1}); err != nil {
		t.Errorf("WriteSummaries on nil: %v", err)
	}
	if err := om.WriteRun(RunArtifacts{}); err != nil {
		t.Errorf("WriteRun on nil: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestOutputManager_SummaryHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, config.OutputConfig{})
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WriteSummaries(RunSummary{Run: 0, Status: StatusOK}); err != nil {
		t.Fatalf("WriteSummaries: %v", err)
	}
	if err := om.WriteSummaries(RunSummary{Run: 1, Status: StatusOK}, RunSummary{Run: 2, Status: StatusFailed}); err != nil {
		t.Fatalf("WriteSummaries: %v", err)
	}
	if err := om.WritePerf(PerfStats{}, 0); err != nil {
		t.Fatalf("WritePerf: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "summary.csv"))
	if err != nil {
		t.Fatalf("reading summary: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("summary has %d lines, want 4:\n%s", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "run,run_id,seed") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if strings.Count(string(data), "run_id") != 1 {
		t.Error("header written more than once")
	}

	perf, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatalf("reading perf: %v", err)
	}
	if !strings.HasPrefix(string(perf), "run,avg_step_us") {
		t.Errorf("unexpected perf header in %q", perf)
	}
}

func TestOutputManager_WriteRun(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, config.OutputConfig{SpeciesStats: true, Plots: true})
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	defer om.Close()

	err = om.WriteRun(RunArtifacts{
		Label: "run_0003",
		Tree:  testTree(t),
		Steps: []StepStats{
			{Step: 1, Time: 0.5, Alive: 10, Species: 1, Nodes: 1},
			{Step: 2, Time: 1.0, Alive: 12, Species: 1, Nodes: 1},
		},
		Bookmarks: []Bookmark{{Type: BookmarkFirstSpeciation, Step: 4, Time: 2}},
		EndTime:   10,
		Step:      0.5,
	})
	if err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	for _, name := range []string{"persist.csv", "phylo.tre", "phylo.dot", "steps.csv", "bookmarks.csv", "ltt.png"} {
		if _, err := os.Stat(filepath.Join(dir, "run_0003_"+name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	tre, err := os.ReadFile(filepath.Join(dir, "run_0003_phylo.tre"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(tre)); got != "(S1:8,S2:8):2;" {
		t.Errorf("newick = %q", got)
	}

	persist, err := os.ReadFile(filepath.Join(dir, "run_0003_persist.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(strings.TrimSpace(string(persist)), "\n"); lines != 3 {
		t.Errorf("persist has %d data lines, want 3", lines)
	}

	png, err := os.ReadFile(filepath.Join(dir, "run_0003_ltt.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("ltt plot is not a PNG")
	}
}

func TestPlotLineages_TooFewPoints(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotLineages(&buf, "x", []phylo.LTTPoint{{Time: 0, Living: 1}}); err == nil {
		t.Error("expected error for a single point")
	}
}
