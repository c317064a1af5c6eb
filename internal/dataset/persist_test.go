package dataset

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/imyousuf/srcgraph/internal/graph"
	"github.com/imyousuf/srcgraph/internal/table"
)

type failingStore struct{ graph.Store }

func (failingStore) Save(context.Context, *graph.HeteroGraph) error {
	return errors.New("disk full")
}

func assembleChain(t *testing.T, n int, s uint64) *Dataset {
	t.Helper()
	nodes, edges := chain(n)
	opts := DefaultOptions()
	opts.Seed = seed(s)
	ds, err := NewAssembler(quiet(opts)).AssembleTables(context.Background(), nodes, edges)
	if err != nil {
		t.Fatalf("AssembleTables: %v", err)
	}
	return ds
}

func TestManifestSeedFullRange(t *testing.T) {
	ds := assembleChain(t, 10, math.MaxUint64)
	out := filepath.Join(t.TempDir(), "out")
	if err := ds.Save(context.Background(), out, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m, err := ReadManifest(filepath.Join(out, ManifestFile))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Seed != "18446744073709551615" {
		t.Errorf("manifest seed = %q, want 18446744073709551615", m.Seed)
	}
	loaded, err := Load(context.Background(), out, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Seed != math.MaxUint64 {
		t.Errorf("loaded seed = %d, want %d", loaded.Seed, uint64(math.MaxUint64))
	}
}

func TestLoadBadManifestSeed(t *testing.T) {
	ds := assembleChain(t, 6, 1)
	out := filepath.Join(t.TempDir(), "out")
	if err := ds.Save(context.Background(), out, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	m := ds.Manifest()
	m.Seed = "-3"
	if err := WriteManifest(filepath.Join(out, ManifestFile), m); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), out, nil); err == nil {
		t.Fatal("expected error for a negative manifest seed")
	}
}

func TestSaveFailureWritesNothing(t *testing.T) {
	parent := t.TempDir()
	out := filepath.Join(parent, "out")
	ds := assembleChain(t, 10, 3)

	if err := ds.Save(context.Background(), out, failingStore{}); err == nil {
		t.Fatal("expected Save error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output dir exists after failed Save (stat err = %v)", err)
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("staging left behind: %v", entries)
	}
}

func TestSaveFailureKeepsPreviousDataset(t *testing.T) {
	parent := t.TempDir()
	out := filepath.Join(parent, "out")
	if err := assembleChain(t, 10, 3).Save(context.Background(), out, nil); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	if err := assembleChain(t, 30, 3).Save(context.Background(), out, failingStore{}); err == nil {
		t.Fatal("expected Save error")
	}
	loaded, err := Load(context.Background(), out, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Nodes) != 10 {
		t.Errorf("loaded %d nodes, want the first dataset's 10", len(loaded.Nodes))
	}
	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out" {
		t.Errorf("parent entries = %v, want only out", entries)
	}
}

func TestSaveReplacesHeldOut(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	ds := assembleChain(t, 10, 5)
	ds.HeldOut = []table.Edge{{ID: 100, Type: "next", Src: 0, Dst: 1}}
	if err := ds.Save(context.Background(), out, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, HeldOutEdgesFile)); err != nil {
		t.Fatalf("held-out edges not written: %v", err)
	}

	ds.HeldOut = nil
	if err := ds.Save(context.Background(), out, nil); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, HeldOutEdgesFile)); !os.IsNotExist(err) {
		t.Errorf("stale held-out edges kept (stat err = %v)", err)
	}
	for _, name := range []string{AssembledNodesFile, AssembledEdgesFile, ManifestFile} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
}
