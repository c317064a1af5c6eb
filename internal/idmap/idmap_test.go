package idmap

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/imyousuf/srcgraph/internal/table"
)

func globalNodes() []table.Node {
	return []table.Node{
		{ID: 100, Type: "function", Name: "mod.f"},
		{ID: 101, Type: "mention", Name: "x@FunctionDef_0x0:7"},
		{ID: 102, Type: "Name", Name: "x"},
	}
}

func TestBuildAndApply(t *testing.T) {
	local := []table.Node{
		{ID: 0, Name: "x"},
		{ID: 1, Name: "x@FunctionDef_0x0:7"},
	}
	m, err := Build(local, globalNodes())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m[0] != 102 || m[1] != 101 {
		t.Fatalf("map = %v", m)
	}

	rows := &table.Rows{
		Header:  []string{"id", "src", "dst", "type"},
		Records: [][]string{{"5", "0", "1", "local_mention"}, {"6", "1", "", "x"}},
	}
	if err := m.Apply(rows, "src", "dst"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rows.Records[0][1] != "102" || rows.Records[0][2] != "101" {
		t.Errorf("row 0 = %v", rows.Records[0])
	}
	if rows.Records[1][2] != "" {
		t.Errorf("empty cell rewritten to %q", rows.Records[1][2])
	}
	if rows.Records[0][0] != "5" {
		t.Errorf("unlisted column id rewritten to %q", rows.Records[0][0])
	}
}

func TestBuildMissing(t *testing.T) {
	_, err := Build([]table.Node{{ID: 3, Name: "nowhere"}}, globalNodes())
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
	var missing *MissingIDError
	if !errors.As(err, &missing) || missing.ID != 3 || missing.Name != "nowhere" {
		t.Errorf("err = %#v", err)
	}
}

func TestApplyMissing(t *testing.T) {
	m := Map{0: 10}
	rows := &table.Rows{Header: []string{"src"}, Records: [][]string{{"0"}, {"4"}}}
	err := m.Apply(rows, "src")
	var missing *MissingIDError
	if !errors.As(err, &missing) || missing.ID != 4 || missing.Column != "src" {
		t.Errorf("err = %v, want missing id 4 in src", err)
	}
}

func TestApplyMissingColumn(t *testing.T) {
	rows := &table.Rows{Header: []string{"src"}}
	if err := (Map{}).Apply(rows, "dst"); !errors.Is(err, table.ErrColumn) {
		t.Errorf("err = %v, want ErrColumn", err)
	}
}

func TestApplyEdges(t *testing.T) {
	m := Map{0: 10, 1: 11}
	edges, err := m.ApplyEdges([]table.Edge{{ID: 0, Type: "next", Src: 0, Dst: 1, MentionedIn: table.Int64(2)}})
	if err != nil {
		t.Fatalf("ApplyEdges: %v", err)
	}
	if edges[0].Src != 10 || edges[0].Dst != 11 || *edges[0].MentionedIn != 2 {
		t.Errorf("edge = %+v", edges[0])
	}
	if _, err := m.ApplyEdges([]table.Edge{{Src: 0, Dst: 9}}); !errors.Is(err, ErrMissingID) {
		t.Errorf("err = %v, want ErrMissingID", err)
	}
}

func TestAppendTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.csv")
	first := &table.Rows{Header: []string{"src", "dst", "type"}, Records: [][]string{{"1", "2", "next"}}}
	if err := AppendTable(path, first); err != nil {
		t.Fatalf("AppendTable create: %v", err)
	}
	second := &table.Rows{Header: []string{"type", "src", "dst", "extra"}, Records: [][]string{{"prev", "2", "1", "z"}}}
	if err := AppendTable(path, second); err != nil {
		t.Fatalf("AppendTable append: %v", err)
	}
	got, err := table.ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows: %v", err)
	}
	if len(got.Header) != 3 || got.Header[0] != "src" {
		t.Fatalf("header = %v", got.Header)
	}
	if len(got.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(got.Records))
	}
	want := []string{"2", "1", "prev"}
	for i := range want {
		if got.Records[1][i] != want[i] {
			t.Errorf("record 1 = %v, want %v", got.Records[1], want)
		}
	}
}
