package astgraph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func generate(t *testing.T, src string) *Graph {
	t.Helper()
	g, err := Generate(context.Background(), src)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return g
}

func findEdge(g *Graph, src, dst, typ string) (Edge, bool) {
	for _, e := range g.Edges {
		if e.Src == src && e.Dst == dst && e.Type == typ {
			return e, true
		}
	}
	return Edge{}, false
}

func nodesOfKind(g *Graph, kind string) []SyntaxNode {
	var out []SyntaxNode
	for _, n := range g.Nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestAnnotationAndReturns(t *testing.T) {
	g := generate(t, "def f(x: int) -> int:\n    return x + 1\n")

	if g.Root != "FunctionDef_0x0" {
		t.Fatalf("Root = %q, want FunctionDef_0x0", g.Root)
	}
	mention := "x@" + g.Root

	ann, ok := findEdge(g, "int", mention, "annotation")
	if !ok {
		t.Fatalf("missing annotation edge int -> %s", mention)
	}
	wantSpan := Span{Line: 0, EndLine: 0, ColOffset: 9, EndColOffset: 12}
	if ann.Span == nil || *ann.Span != wantSpan {
		t.Errorf("annotation span = %+v, want %+v", ann.Span, wantSpan)
	}
	wantVar := Span{Line: 0, EndLine: 0, ColOffset: 6, EndColOffset: 12}
	if ann.VarSpan == nil || *ann.VarSpan != wantVar {
		t.Errorf("annotation var span = %+v, want %+v", ann.VarSpan, wantVar)
	}

	ret, ok := findEdge(g, "int", g.Root, "returns")
	if !ok {
		t.Fatalf("missing returns edge int -> %s", g.Root)
	}
	wantRet := Span{Line: 0, EndLine: 0, ColOffset: 17, EndColOffset: 20}
	if ret.Span == nil || *ret.Span != wantRet {
		t.Errorf("returns span = %+v, want %+v", ret.Span, wantRet)
	}

	if _, ok := findEdge(g, g.Root, "f", "fname"); !ok {
		t.Error("missing fname edge")
	}
}

func TestAnnotationKeepsSourceText(t *testing.T) {
	g := generate(t, "def f(x: 'Dict[str,  int]') -> \"Node\":\n    return x\n")
	if _, ok := findEdge(g, "'Dict[str,  int]'", "x@"+g.Root, "annotation"); !ok {
		t.Error("annotation text was not taken verbatim")
	}
	if _, ok := findEdge(g, `"Node"`, g.Root, "returns"); !ok {
		t.Error("quoted return annotation was not taken verbatim")
	}
}

func TestIfBranchDependencies(t *testing.T) {
	src := `def f(a):
    if a:
        b = 1
        c = 2
    else:
        d = 3
`
	g := generate(t, src)

	ifs := nodesOfKind(g, "If")
	if len(ifs) != 1 {
		t.Fatalf("got %d If nodes, want 1", len(ifs))
	}
	ifName := ifs[0].Name

	assigns := map[int]string{}
	for _, n := range nodesOfKind(g, "Assign") {
		assigns[n.Span.Line] = n.Name
	}
	for _, line := range []int{2, 3} {
		if _, ok := findEdge(g, assigns[line], ifName, "depends_on_True"); !ok {
			t.Errorf("line %d: missing depends_on_True to %s", line, ifName)
		}
		if _, ok := findEdge(g, assigns[line], ifName, "depends_on_False"); ok {
			t.Errorf("line %d: unexpected depends_on_False", line)
		}
	}
	if _, ok := findEdge(g, assigns[5], ifName, "depends_on_False"); !ok {
		t.Errorf("missing depends_on_False from else branch")
	}
	if _, ok := findEdge(g, assigns[2], assigns[3], "next"); !ok {
		t.Error("missing next edge between consecutive statements")
	}
	if _, ok := findEdge(g, assigns[3], assigns[2], "prev"); !ok {
		t.Error("missing prev edge between consecutive statements")
	}
	if _, ok := findEdge(g, ifName, g.Root, "depends_on_defined_in"); !ok {
		t.Error("if statement does not depend on its function")
	}
}

func TestElifNestsUnderFalse(t *testing.T) {
	src := `def f(a):
    if a:
        x = 1
    elif a > 1:
        y = 2
`
	g := generate(t, src)
	ifs := nodesOfKind(g, "If")
	if len(ifs) != 2 {
		t.Fatalf("got %d If nodes, want 2", len(ifs))
	}
	outer, inner := ifs[0].Name, ifs[1].Name
	if _, ok := findEdge(g, inner, outer, "depends_on_False"); !ok {
		t.Error("elif is not in the False branch of the outer if")
	}
	var y string
	for _, n := range nodesOfKind(g, "Assign") {
		if n.Span.Line == 4 {
			y = n.Name
		}
	}
	if _, ok := findEdge(g, y, inner, "depends_on_True"); !ok {
		t.Error("elif body does not depend on the elif")
	}
	if _, ok := findEdge(g, y, outer, "depends_on_False"); !ok {
		t.Error("elif body does not depend on the outer False branch")
	}
}

func TestMentions(t *testing.T) {
	g := generate(t, "def f(a):\n    return a\n")
	m := "a@" + g.Root
	if _, ok := findEdge(g, "a", m, "local_mention"); !ok {
		t.Error("missing local_mention edge")
	}
	if _, ok := findEdge(g, g.Root, m, "mention_scope"); !ok {
		t.Error("missing mention_scope edge")
	}
	n, ok := g.Node(m)
	if !ok || n.Kind != KindMention {
		t.Errorf("mention node = %+v, want kind %q", n, KindMention)
	}
}

func TestNestedFunctionScopesMentions(t *testing.T) {
	src := `def outer(a):
    def inner(b):
        return a + b
    return inner
`
	g := generate(t, src)
	defs := nodesOfKind(g, "FunctionDef")
	if len(defs) != 2 {
		t.Fatalf("got %d FunctionDef nodes, want 2", len(defs))
	}
	inner := defs[1].Name
	if _, ok := findEdge(g, inner, "a@"+inner, "mention_scope"); !ok {
		t.Error("reference inside nested def is not scoped to it")
	}
	if _, ok := g.Node("inner@" + g.Root); !ok {
		t.Error("reference after nested def is not scoped to outer")
	}
}

func TestOnlyFirstFunction(t *testing.T) {
	src := "def f():\n    pass\n\ndef g():\n    x = 1\n"
	g := generate(t, src)
	if n := len(nodesOfKind(g, "FunctionDef")); n != 1 {
		t.Errorf("got %d FunctionDef nodes, want 1", n)
	}
	if _, ok := g.Node("x"); ok {
		t.Error("second function was traversed")
	}
}

func TestSkipsAsyncTopLevel(t *testing.T) {
	src := "async def a():\n    pass\n\ndef b():\n    pass\n"
	g := generate(t, src)
	if _, ok := findEdge(g, g.Root, "b", "fname"); !ok {
		t.Error("expected the first non-async def to be compiled")
	}
}

func TestDecoratedFunction(t *testing.T) {
	src := "@cache\ndef f():\n    pass\n"
	g := generate(t, src)
	if _, ok := findEdge(g, "cache@"+g.Root, g.Root, "decorator_list"); !ok {
		t.Error("missing decorator_list edge")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"syntax", "def f(:\n    pass\n", ErrSyntax},
		{"no function", "x = 1\n", ErrNoFunction},
		{"class only", "class A:\n    pass\n", ErrNoFunction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(context.Background(), tt.src)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestControlFlow(t *testing.T) {
	src := `def f(x):
    for i in x:
        if i:
            break
        continue
    pass
`
	g := generate(t, src)
	for _, kind := range []string{"Break", "Continue", "Pass"} {
		found := false
		for _, e := range g.Edges {
			if e.Src == kind && e.Type == "control_flow" && strings.HasPrefix(e.Dst, "control_flow_0x") {
				found = true
			}
		}
		if !found {
			t.Errorf("missing control_flow edge for %s", kind)
		}
	}
	fors := nodesOfKind(g, "For")
	if len(fors) != 1 {
		t.Fatalf("got %d For nodes, want 1", len(fors))
	}
	if _, ok := findEdge(g, "x@"+g.Root, fors[0].Name, "iter"); !ok {
		t.Error("missing iter edge")
	}
	if _, ok := findEdge(g, "i@"+g.Root, fors[0].Name, "target"); !ok {
		t.Error("missing target edge")
	}
}

func TestCallEdges(t *testing.T) {
	g := generate(t, "def f():\n    g(1, k=2)\n")
	calls := nodesOfKind(g, "Call")
	if len(calls) != 1 {
		t.Fatalf("got %d Call nodes, want 1", len(calls))
	}
	call := calls[0].Name
	if _, ok := findEdge(g, "g@"+g.Root, call, "call_func"); !ok {
		t.Error("missing call_func edge")
	}
	if _, ok := findEdge(g, "1", call, "call_arg"); !ok {
		t.Error("missing call_arg edge")
	}
	kws := nodesOfKind(g, "keyword")
	if len(kws) != 1 {
		t.Fatalf("got %d keyword nodes, want 1", len(kws))
	}
	if _, ok := findEdge(g, kws[0].Name, call, "keywords"); !ok {
		t.Error("missing keywords edge")
	}
	if _, ok := findEdge(g, "k@keyword", kws[0].Name, "arg"); !ok {
		t.Error("missing keyword arg edge")
	}
	if _, ok := findEdge(g, call, g.Root, "depends_on_defined_in"); !ok {
		t.Error("call statement does not depend on its function")
	}
}

func TestWhileJointContext(t *testing.T) {
	src := `def f(n):
    while n > 0:
        n -= 1
`
	g := generate(t, src)
	loop := nodesOfKind(g, "While")[0].Name
	cond := nodesOfKind(g, "Compare")[0].Name
	aug := nodesOfKind(g, "AugAssign")[0].Name
	if _, ok := findEdge(g, aug, loop, "depends_on_while"); !ok {
		t.Error("missing depends_on_while")
	}
	if _, ok := findEdge(g, aug, cond, "depends_on_True"); !ok {
		t.Error("missing depends_on_True to the loop condition")
	}
	if _, ok := findEdge(g, "Sub", aug, "op"); !ok {
		t.Error("augmented operator not mapped to Sub")
	}
	if _, ok := findEdge(g, "Gt", cond, "ops"); !ok {
		t.Error("comparison operator not mapped to Gt")
	}
}

func TestTryContexts(t *testing.T) {
	src := `def f():
    try:
        a = 1
    except ValueError as e:
        b = 2
    finally:
        c = 3
`
	g := generate(t, src)
	try := nodesOfKind(g, "Try")[0].Name
	handler := nodesOfKind(g, "ExceptHandler")[0].Name
	assigns := map[int]string{}
	for _, n := range nodesOfKind(g, "Assign") {
		assigns[n.Span.Line] = n.Name
	}
	checks := []struct {
		src, dst, typ string
	}{
		{assigns[2], try, "depends_on_try"},
		{assigns[4], try, "depends_on_except"},
		{assigns[4], handler, "depends_on_handler"},
		{assigns[6], try, "depends_on_final"},
		{"ValueError@" + g.Root, handler, "type"},
	}
	for _, c := range checks {
		if _, ok := findEdge(g, c.src, c.dst, c.typ); !ok {
			t.Errorf("missing %s edge %s -> %s", c.typ, c.src, c.dst)
		}
	}
}

func TestFreshCounterPerGenerator(t *testing.T) {
	src := "def f(a, b):\n    return [x for x in a if x > b]\n"
	first := generate(t, src)
	second := generate(t, src)
	if len(first.Edges) != len(second.Edges) {
		t.Fatalf("edge count differs: %d vs %d", len(first.Edges), len(second.Edges))
	}
	for i := range first.Edges {
		if first.Edges[i].Src != second.Edges[i].Src || first.Edges[i].Dst != second.Edges[i].Dst {
			t.Fatalf("edge %d differs: %+v vs %+v", i, first.Edges[i], second.Edges[i])
		}
	}

	seen := map[string]bool{}
	for _, n := range first.Nodes {
		if !n.Synthetic {
			continue
		}
		if seen[n.Name] {
			t.Errorf("synthetic name %q allocated twice", n.Name)
		}
		seen[n.Name] = true
	}
}

func TestStringsAndFormatting(t *testing.T) {
	g := generate(t, "def f(name):\n    \"\"\"Doc.\"\"\"\n    return f\"hi {name}\"\n")
	if len(nodesOfKind(g, "Str")) != 1 {
		t.Error("docstring should be a Str node")
	}
	joined := nodesOfKind(g, "JoinedStr")
	if len(joined) != 1 {
		t.Fatalf("got %d JoinedStr nodes, want 1", len(joined))
	}
	fv := nodesOfKind(g, "FormattedValue")
	if len(fv) != 1 {
		t.Fatalf("got %d FormattedValue nodes, want 1", len(fv))
	}
	if _, ok := findEdge(g, "name@"+g.Root, fv[0].Name, "value"); !ok {
		t.Error("interpolated expression not linked")
	}
}

func TestNoDanglingEdges(t *testing.T) {
	src := `@decorator(1)
def f(self, a: int = 0, *args, key=None, **kwargs) -> Optional[int]:
    """Docstring."""
    total: int = 0
    x, y = a, 2
    values = {k: v for k, v in kwargs.items() if v}
    with open(self.path) as fh, lock:
        data = fh.read()[1:-1:2]
    lam = lambda q: q * 2
    if (n := len(args)) and not key or a is not None:
        total += n ** 2
    del values[a]
    assert total >= 0, "negative"
    try:
        raise ValueError("x") from None
    except (KeyError, ValueError):
        pass
    else:
        total = -total
    global counter
    import os.path as osp
    yield from args
    return {**kwargs, "a": a} if total else [*args, ...]
`
	g := generate(t, src)
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(g.Rows()) != len(g.Edges) {
		t.Errorf("Rows() = %d rows, want %d", len(g.Rows()), len(g.Edges))
	}
	for _, row := range g.Rows() {
		if len(row) != len(RowHeader) {
			t.Fatalf("row has %d cells, want %d", len(row), len(RowHeader))
		}
	}
}

func TestValidateRejectsDangling(t *testing.T) {
	g := &Graph{
		Nodes: []SyntaxNode{{Name: "a"}},
		Edges: []Edge{{Src: "a", Dst: "missing", Type: "next"}},
	}
	if err := g.Validate(); err == nil {
		t.Error("Validate accepted a dangling destination")
	}
}

func TestKindName(t *testing.T) {
	tests := map[string]string{
		"match_statement": "MatchStatement",
		"print_statement": "PrintStatement",
		"case":            "Case",
	}
	for in, want := range tests {
		if got := kindName(in); got != want {
			t.Errorf("kindName(%q) = %q, want %q", in, got, want)
		}
	}
}

func edgesInto(g *Graph, dst, typ string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Dst == dst && e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestMatchStatement(t *testing.T) {
	src := `def f(v):
    match v:
        case 1:
            return 0
        case _ if v:
            return 1
`
	g := generate(t, src)
	matches := nodesOfKind(g, "Match")
	if len(matches) != 1 {
		t.Fatalf("got %d Match nodes, want 1", len(matches))
	}
	match := matches[0].Name
	if _, ok := findEdge(g, "v@"+g.Root, match, "subject"); !ok {
		t.Error("missing subject edge")
	}

	cases := edgesInto(g, match, "cases")
	if len(cases) != 2 {
		t.Fatalf("got %d cases edges, want 2", len(cases))
	}
	first, second := cases[0].Src, cases[1].Src
	if _, ok := findEdge(g, "1", first, "pattern"); !ok {
		t.Error("missing pattern edge for case 1")
	}
	if _, ok := findEdge(g, "_", second, "pattern"); !ok {
		t.Error("missing wildcard pattern edge")
	}
	if _, ok := findEdge(g, "v@"+g.Root, second, "guard"); !ok {
		t.Error("missing guard edge")
	}

	for _, c := range []string{first, second} {
		deps := edgesInto(g, c, "depends_on_case")
		if len(deps) != 1 {
			t.Fatalf("case %s has %d dependent statements, want 1", c, len(deps))
		}
		if _, ok := findEdge(g, deps[0].Src, match, "depends_on_match"); !ok {
			t.Errorf("statement %s does not depend on the match", deps[0].Src)
		}
	}
}

func TestGenerateUncommonStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"inline case", "def f(v):\n  match v:\n    case 1: return 0"},
		{"class pattern", "def f(p):\n    match p:\n        case Point(x=0, y=y) | [y, *_]:\n            return y\n"},
		{"type alias", "def f():\n    type Alias = int\n    return Alias\n"},
		{"print chevron", "def f(x):\n    print >>x, \"a\"\n"},
		{"exec in", "def f(ns):\n    exec \"x = 1\" in ns\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Generate(context.Background(), tt.src); err != nil {
				t.Errorf("Generate: %v", err)
			}
		})
	}
}

func TestTypeAliasStatement(t *testing.T) {
	g := generate(t, "def f():\n    type Alias = int\n    return Alias\n")
	aliases := nodesOfKind(g, "TypeAlias")
	if len(aliases) != 1 {
		t.Fatalf("got %d TypeAlias nodes, want 1", len(aliases))
	}
	alias := aliases[0].Name
	if _, ok := findEdge(g, "Alias@"+g.Root, alias, "name"); !ok {
		t.Error("missing name edge")
	}
	if _, ok := findEdge(g, "int@"+g.Root, alias, "value"); !ok {
		t.Error("missing value edge")
	}
}

func TestGenericRuleNamesUnfieldedChildren(t *testing.T) {
	g := generate(t, "def f(ns):\n    exec \"x = 1\" in ns\n")
	stmts := nodesOfKind(g, "ExecStatement")
	if len(stmts) != 1 {
		t.Fatalf("got %d ExecStatement nodes, want 1", len(stmts))
	}
	if _, ok := findEdge(g, "ns@"+g.Root, stmts[0].Name, "identifier"); !ok {
		t.Error("unfielded child not linked under its node type")
	}
}

func TestSharedLiteralKind(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"annotation first", "def f(a) -> int:\n    return int(a)\n"},
		{"name first", "@int\ndef f(a) -> int:\n    pass\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := generate(t, tt.src)
			var kind string
			for _, n := range g.Nodes {
				if n.Name == "int" {
					kind = n.Kind
				}
			}
			if kind != KindName {
				t.Errorf("kind of int = %q, want %q", kind, KindName)
			}
			if _, ok := findEdge(g, "int", g.Root, "returns"); !ok {
				t.Error("missing returns edge")
			}
		})
	}
}
