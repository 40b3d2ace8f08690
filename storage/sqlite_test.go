package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/pthm-cable/salamanders/phylo"
	"github.com/pthm-cable/salamanders/telemetry"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	sum := telemetry.RunSummary{
		Run:          2,
		RunID:        uuid.NewString(),
		Seed:         1<<63 + 5,
		MutationProb: 0.001,
		TempDriftSD:  0.01,
		SimThresh:    0.96,
		NSpecies:     3,
		FitScore:     1.25,
		AvgOptTemp:   21.5,
		NAlive:       900,
		NLowlands:    40,
		EndTime:      65,
		AvgElevation: 0.8,
		NNodes:       3,
		Status:       telemetry.StatusOK,
	}
	nodes := []phylo.Record{
		{ID: 0, Emergence: 0, LastChild: 65, Parent: phylo.NoParent, FoundingTrait: 33.5},
		{ID: 1, Emergence: 12, LastChild: 65, Parent: 0, FoundingTrait: 30, Genome: ^uint64(0)},
		{ID: 2, Emergence: 30, LastChild: 40, Parent: 1, FoundingTrait: 28, Genome: 0x8000000000000001},
	}

	if err := store.SaveRun(ctx, sum, nodes); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0] != sum {
		t.Fatalf("unexpected runs loaded: %+v", runs)
	}

	loaded, ok, err := store.LoadNodes(ctx, sum.RunID)
	if err != nil {
		t.Fatalf("load nodes: %v", err)
	}
	if !ok || len(loaded) != len(nodes) {
		t.Fatalf("loaded %d nodes (ok=%v), want %d", len(loaded), ok, len(nodes))
	}
	for i := range nodes {
		if loaded[i] != nodes[i] {
			t.Errorf("node %d = %+v, want %+v", i, loaded[i], nodes[i])
		}
	}

	tree, ok, err := store.LoadTree(ctx, sum.RunID)
	if err != nil || !ok {
		t.Fatalf("load tree: ok=%v err=%v", ok, err)
	}
	if tree.Depth(2) != 2 {
		t.Errorf("Depth(2) = %d, want 2", tree.Depth(2))
	}
}

func TestSQLiteStoreResaveReplacesNodes(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sum := telemetry.RunSummary{RunID: "r1", Status: telemetry.StatusOK}

	if err := store.SaveRun(ctx, sum, []phylo.Record{
		{ID: 0, Parent: phylo.NoParent},
		{ID: 1, Parent: 0},
	}); err != nil {
		t.Fatalf("save run: %v", err)
	}
	sum.Status = telemetry.StatusFailed
	sum.Error = "runaway population"
	if err := store.SaveRun(ctx, sum, []phylo.Record{{ID: 0, Parent: phylo.NoParent}}); err != nil {
		t.Fatalf("resave run: %v", err)
	}

	nodes, _, err := store.LoadNodes(ctx, "r1")
	if err != nil {
		t.Fatalf("load nodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("got %d nodes after resave, want 1", len(nodes))
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != telemetry.StatusFailed || runs[0].Error != "runaway population" {
		t.Errorf("unexpected runs after resave: %+v", runs)
	}
}

func TestSQLiteStoreMissingRun(t *testing.T) {
	store := newStore(t)

	nodes, ok, err := store.LoadNodes(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load nodes: %v", err)
	}
	if ok || len(nodes) != 0 {
		t.Errorf("expected no nodes, got %d (ok=%v)", len(nodes), ok)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err := store.SaveRun(context.Background(), telemetry.RunSummary{RunID: "x"}, nil); err == nil {
		t.Fatal("expected error before Init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}
