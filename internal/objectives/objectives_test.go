package objectives

import (
	"reflect"
	"testing"

	"github.com/imyousuf/srcgraph/internal/dataset"
	"github.com/imyousuf/srcgraph/internal/table"
)

type mask int

const (
	none mask = iota
	train
	val
	test
)

func node(id int64, typ, name string, in *int64, m mask) dataset.CorpusNode {
	return dataset.CorpusNode{
		Node:           table.Node{ID: id, Type: typ, Name: name, MentionedIn: in},
		TypeBackup:     typ,
		EmbeddableName: dataset.EmbeddableName(name),
		TrainMask:      m == train,
		ValMask:        m == val,
		TestMask:       m == test,
	}
}

func edge(id int64, typ string, src, dst int64, line *int64) dataset.CorpusEdge {
	return dataset.CorpusEdge{
		Edge:       table.Edge{ID: id, Type: typ, Src: src, Dst: dst, Line: line},
		TypeBackup: typ,
	}
}

// sample holds two functions: FunctionDef 10 mentions x, y and calls helper
// then run; FunctionDef 20 mentions x and calls run once.
func sample() *dataset.Dataset {
	fn1, fn2 := table.Int64(10), table.Int64(20)
	return &dataset.Dataset{
		Nodes: []dataset.CorpusNode{
			node(1, "function", "pkg.mod.run", nil, train),
			node(2, "function", "pkg.mod.helper", nil, train),
			node(10, "FunctionDef", "FunctionDef_0x1", nil, train),
			node(11, "mention", "x@FunctionDef_0x1", fn1, train),
			node(12, "mention", "x@FunctionDef_0x2", fn2, val),
			node(13, "mention", "y@FunctionDef_0x1", fn1, test),
			node(14, "mention", "x@FunctionDef_0x3", nil, none),
			node(20, "FunctionDef", "FunctionDef_0x2", nil, val),
			node(30, "Call", "Call_0x5", fn1, train),
			node(31, "Call", "Call_0x6", fn1, train),
			node(32, "Call", "Call_0x7", fn2, val),
			node(40, "mention", "helper@FunctionDef_0x1", fn1, none),
			node(50, "type_annotation", "typing.List[int]", nil, none),
			node(51, "type_annotation", "'Foo'", nil, none),
			node(52, "type_annotation", "<object at 0x7f>", nil, none),
		},
		Edges: []dataset.CorpusEdge{
			edge(0, "call_func", 1, 30, table.Int64(3)),
			edge(1, "local_mention", 2, 40, nil),
			edge(2, "call_func", 40, 31, table.Int64(1)),
			edge(3, "call_func", 1, 32, table.Int64(2)),
			edge(4, "annotation", 50, 11, nil),
			edge(5, "annotation", 51, 13, nil),
			edge(6, "annotation", 52, 12, nil),
			edge(7, "annotation", 50, 10, nil),
		},
	}
}

func TestFilterByFreq(t *testing.T) {
	var in []Target
	for label, n := range map[string]int{"a": 5, "b": 1, "c": 2} {
		for i := 0; i < n; i++ {
			in = append(in, Target{Src: int64(i), Dst: label})
		}
	}
	got := FilterByFreq(in, 2)
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	for _, tgt := range got {
		if tgt.Dst == "b" {
			t.Errorf("label b with one occurrence was kept")
		}
	}
}

func TestNodeNames(t *testing.T) {
	got := NodeNames(sample())
	want := []Target{{Src: 11, Dst: "x"}, {Src: 12, Dst: "x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NodeNames = %v, want %v", got, want)
	}
}

func TestVariableUse(t *testing.T) {
	ds := sample()
	ds.Nodes = append(ds.Nodes, node(60, "mention", "x@FunctionDef_0x1", table.Int64(10), train))
	got := VariableUse(ds)
	want := []Target{
		{Src: 10, Dst: "x"},
		{Src: 20, Dst: "x"},
		{Src: 10, Dst: "y"},
		{Src: 10, Dst: "helper"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VariableUse = %v, want %v", got, want)
	}
}

func TestAPICalls(t *testing.T) {
	got := APICalls(sample())
	want := []Target{{Src: 2, Dst: "pkg.mod.run"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("APICalls = %v, want %v", got, want)
	}
}

func TestTypeAnnotations(t *testing.T) {
	got := TypeAnnotations(sample())
	want := []Target{{Src: 11, Dst: "List"}, {Src: 13, Dst: "Foo"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TypeAnnotations = %v, want %v", got, want)
	}
}

func TestNormalizeAnnotation(t *testing.T) {
	tests := map[string]string{
		"typing.Optional[str]": "Optional",
		`"Foo"`:                "Foo",
		`"'a.B'"`:              "B",
		"int":                  "int",
		"":                     "",
	}
	for in, want := range tests {
		if got := NormalizeAnnotation(in); got != want {
			t.Errorf("NormalizeAnnotation(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNodeClasses(t *testing.T) {
	ds := &dataset.Dataset{
		Nodes: []dataset.CorpusNode{
			node(1, "Name", "a", nil, train),
			node(2, "Call", "Call_0x1", nil, val),
			node(3, "Name", "b", nil, none),
		},
		Edges: []dataset.CorpusEdge{
			edge(0, "call_func", 1, 2, nil),
			edge(1, "call_arg", 1, 3, nil),
		},
	}
	got := NodeClasses(ds)
	want := []Target{{Src: 2, Dst: "Call"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NodeClasses = %v, want %v", got, want)
	}
}

func TestExtract(t *testing.T) {
	got, ok := Extract(NodeClassesObjective, sample(), 1)
	if !ok {
		t.Fatal("Extract(node_classes) not ok")
	}
	if len(got) == 0 {
		t.Error("Extract(node_classes) returned no targets")
	}
	if _, ok := Extract("nope", sample(), 1); ok {
		t.Error("Extract of an unknown objective should not be ok")
	}
}

func TestDocstrings(t *testing.T) {
	bodies := []table.Body{
		{ID: 1, Docstring: "Compute the sum. Returns an integer. Raises on overflow. Never called twice."},
		{ID: 2, Docstring: "   "},
		{ID: 3, Docstring: "Load the data"},
	}
	got, err := Docstrings(bodies)
	if err != nil {
		t.Fatalf("Docstrings: %v", err)
	}
	want := []Target{
		{Src: 1, Dst: "Compute the sum. Returns an integer. Raises on overflow."},
		{Src: 3, Dst: "Load the data"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Docstrings = %v, want %v", got, want)
	}
}
