package embedded

import (
	"context"
	"errors"
	"testing"

	"github.com/imyousuf/srcgraph/internal/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleGraph() *graph.HeteroGraph {
	g := graph.NewHeteroGraph()
	fn := &graph.NodeData{}
	fn.Append(0, 10, 0, true, false, false)
	fn.Append(1, 11, 1, false, true, false)
	name := &graph.NodeData{}
	name.Append(0, 20, 2, false, false, true)
	g.Nodes["FunctionDef"] = fn
	g.Nodes["Name"] = name
	g.Relations[graph.Relation{SrcType: "Name", EdgeType: "fname", DstType: "FunctionDef"}] = []graph.Pair{{Src: 0, Dst: 0}, {Src: 0, Dst: 1}}
	g.Relations[graph.Relation{SrcType: "FunctionDef", EdgeType: "next", DstType: "FunctionDef"}] = []graph.Pair{{Src: 0, Dst: 1}}
	return g
}

func TestSaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, sampleGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Relations) != 2 {
		t.Errorf("relations = %d, want 2", len(got.Relations))
	}
	fname := got.Relations[graph.Relation{SrcType: "Name", EdgeType: "fname", DstType: "FunctionDef"}]
	if len(fname) != 2 || fname[1].Dst != 1 {
		t.Errorf("fname pairs = %v", fname)
	}
	fn, ok := got.Nodes["FunctionDef"]
	if !ok {
		t.Fatal("FunctionDef node data missing")
	}
	if fn.Len() != 2 || fn.OriginalID[1] != 11 || !fn.ValMask[1] {
		t.Errorf("FunctionDef data = %+v", fn)
	}
}

func TestSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, sampleGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	small := graph.NewHeteroGraph()
	d := &graph.NodeData{}
	d.Append(0, 99, 0, true, false, false)
	small.Nodes["node_"] = d
	if err := s.Save(ctx, small); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Relations) != 0 || len(got.Nodes) != 1 {
		t.Errorf("after replace: %d relations, %d node types", len(got.Relations), len(got.Nodes))
	}
	if _, err := s.GlobalID(ctx, 10); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("GlobalID(10) err = %v, want ErrNotFound", err)
	}
}

func TestGlobalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tests := map[int64]int64{10: 0, 11: 1, 20: 2}
	for orig, want := range tests {
		got, err := s.GlobalID(ctx, orig)
		if err != nil {
			t.Fatalf("GlobalID(%d): %v", orig, err)
		}
		if got != want {
			t.Errorf("GlobalID(%d) = %d, want %d", orig, got, want)
		}
	}
	if _, err := s.GlobalID(ctx, 5); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("GlobalID(5) err = %v, want ErrNotFound", err)
	}
}

func TestRelationAndNodeType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, sampleGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pairs, err := s.Relation(ctx, graph.Relation{SrcType: "FunctionDef", EdgeType: "next", DstType: "FunctionDef"})
	if err != nil {
		t.Fatalf("Relation: %v", err)
	}
	if len(pairs) != 1 || pairs[0] != (graph.Pair{Src: 0, Dst: 1}) {
		t.Errorf("pairs = %v", pairs)
	}
	if _, err := s.Relation(ctx, graph.Relation{SrcType: "a", EdgeType: "b", DstType: "c"}); !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("missing relation err = %v, want ErrNotFound", err)
	}

	d, err := s.NodeType(ctx, "Name")
	if err != nil {
		t.Fatalf("NodeType: %v", err)
	}
	if d.Len() != 1 || !d.TestMask[0] {
		t.Errorf("Name data = %+v", d)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if empty.NodeCount != 0 || empty.EdgeCount != 0 {
		t.Errorf("empty stats = %+v", empty)
	}

	if err := s.Save(ctx, sampleGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", stats.NodeCount)
	}
	if stats.EdgeCount != 3 {
		t.Errorf("EdgeCount = %d, want 3", stats.EdgeCount)
	}
	if stats.NodesByType["FunctionDef"] != 2 {
		t.Errorf("NodesByType[FunctionDef] = %d, want 2", stats.NodesByType["FunctionDef"])
	}
	if stats.EdgesByRelation["Name|fname|FunctionDef"] != 2 {
		t.Errorf("EdgesByRelation = %v", stats.EdgesByRelation)
	}
}
