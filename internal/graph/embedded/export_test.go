package embedded

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/imyousuf/srcgraph/internal/graph"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()

	src := newTestStore(t)
	if err := src.Save(ctx, sampleGraph()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var buf bytes.Buffer
	if err := src.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("Export produced empty output")
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 4 {
		t.Errorf("exported %d lines, want 4", lines)
	}

	dst := newTestStore(t)
	if err := dst.Import(ctx, &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}

	want := sampleGraph()
	got, err := dst.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for rel, pairs := range want.Relations {
		if len(got.Relations[rel]) != len(pairs) {
			t.Errorf("relation %s: %d pairs, want %d", rel, len(got.Relations[rel]), len(pairs))
		}
	}
	for ntype, d := range want.Nodes {
		g, ok := got.Nodes[ntype]
		if !ok {
			t.Errorf("node type %s missing after import", ntype)
			continue
		}
		if g.Len() != d.Len() {
			t.Errorf("node type %s: %d nodes, want %d", ntype, g.Len(), d.Len())
		}
	}
	if gid, err := dst.GlobalID(ctx, 20); err != nil || gid != 2 {
		t.Errorf("GlobalID(20) = %d, %v; want 2", gid, err)
	}
}

func TestImportUnknownKind(t *testing.T) {
	s := newTestStore(t)
	err := s.Import(context.Background(), strings.NewReader(`{"kind":"edge"}`+"\n"))
	if err == nil {
		t.Fatal("expected error for unknown record kind")
	}
}

func TestParseRelation(t *testing.T) {
	rel := graph.Relation{SrcType: "Name", EdgeType: "local_mention", DstType: "mention"}
	got, err := graph.ParseRelation(rel.String())
	if err != nil {
		t.Fatalf("ParseRelation: %v", err)
	}
	if got != rel {
		t.Errorf("ParseRelation(%q) = %+v", rel.String(), got)
	}
	if _, err := graph.ParseRelation("a|b"); err == nil {
		t.Error("expected error for two-part relation")
	}
}
