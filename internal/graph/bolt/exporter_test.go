package bolt

import (
	"testing"

	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/table"
)

func TestNodeRows(t *testing.T) {
	nodes := []dataset.CorpusNode{
		{Node: table.Node{ID: 7, Type: "node_", Name: "x@f"}, TypeBackup: "mention", TypedID: 2, GlobalGraphID: 5, ValMask: true},
		{Node: table.Node{ID: 8, Type: "node_type", Name: "##node_type_mention"}, TypeBackup: "node_type"},
	}
	rows := NodeRows(nodes)
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0]["id"] != int64(7) {
		t.Errorf("id = %v, want 7", rows[0]["id"])
	}
	if rows[0]["type"] != "mention" {
		t.Errorf("type = %v, want mention", rows[0]["type"])
	}
	if rows[0]["split"] != "val" {
		t.Errorf("split = %v, want val", rows[0]["split"])
	}
	if rows[0]["global_id"] != int64(5) {
		t.Errorf("global_id = %v, want 5", rows[0]["global_id"])
	}
	if rows[1]["split"] != "" {
		t.Errorf("marker split = %v, want empty", rows[1]["split"])
	}
}

func TestEdgeRows(t *testing.T) {
	edges := []dataset.CorpusEdge{
		{Edge: table.Edge{ID: 3, Type: "edge_", Src: 1, Dst: 2}, TypeBackup: "call_func"},
	}
	rows := EdgeRows(edges)
	if rows[0]["type"] != "call_func" {
		t.Errorf("type = %v, want call_func", rows[0]["type"])
	}
	if rows[0]["src"] != int64(1) || rows[0]["dst"] != int64(2) {
		t.Errorf("endpoints = %v->%v, want 1->2", rows[0]["src"], rows[0]["dst"])
	}
}

func TestBatches(t *testing.T) {
	rows := make([]map[string]any, 7)
	got := Batches(rows, 3)
	if len(got) != 3 {
		t.Fatalf("batches = %d, want 3", len(got))
	}
	if len(got[2]) != 1 {
		t.Errorf("last batch = %d rows, want 1", len(got[2]))
	}
	if len(Batches(nil, 3)) != 0 {
		t.Error("empty input should produce no batches")
	}
	if len(Batches(rows, 0)) != 1 {
		t.Error("size 0 should fall back to the default batch size")
	}
}
