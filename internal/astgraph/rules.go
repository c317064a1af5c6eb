package astgraph

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// rule handles one construct and returns the name other nodes use to refer
// to it. An empty name means the construct produced no operand.
type rule func(g *Generator, n *sitter.Node, sc scope) (string, error)

// rules is keyed by tree-sitter node type. Anything missing goes through
// genericRule.
var rules map[string]rule

func init() {
	rules = map[string]rule{
		// definitions
		"function_definition": func(g *Generator, n *sitter.Node, sc scope) (string, error) {
			return g.functionDef(n, nil, sc)
		},
		"class_definition": func(g *Generator, n *sitter.Node, sc scope) (string, error) {
			return g.classDef(n, nil, sc)
		},
		"decorated_definition": decoratedRule,

		// statements
		"expression_statement":    expressionStatementRule,
		"assignment":              assignRule,
		"augmented_assignment":    augAssignRule,
		"return_statement":        childrenRule("Return", "value"),
		"delete_statement":        childrenRule("Delete", "targets"),
		"raise_statement":         raiseRule,
		"assert_statement":        assertRule,
		"global_statement":        namesRule("Global"),
		"nonlocal_statement":      namesRule("Nonlocal"),
		"import_statement":        importRule("Import"),
		"import_from_statement":   importRule("ImportFrom"),
		"future_import_statement": importRule("ImportFrom"),
		"pass_statement":          controlFlowRule("Pass"),
		"break_statement":         controlFlowRule("Break"),
		"continue_statement":      controlFlowRule("Continue"),
		"if_statement":            ifRule,
		"for_statement":           forRule,
		"while_statement":         whileRule,
		"try_statement":           tryRule,
		"with_statement":          withRule,
		"match_statement":         matchRule,
		"case_pattern":            casePatternRule,
		"type_alias_statement":    typeAliasRule,

		// names and literals
		"identifier": func(g *Generator, n *sitter.Node, sc scope) (string, error) {
			return g.mention(g.text(n), sc), nil
		},
		"true":                constantRule("True"),
		"false":               constantRule("False"),
		"none":                constantRule("None"),
		"ellipsis":            constantRule("Ellipsis"),
		"integer":             numberRule,
		"float":               numberRule,
		"string":              stringRule,
		"concatenated_string": stringRule,
		"interpolation":       formattedValueRule,

		// expressions
		"attribute":                attributeRule,
		"subscript":                subscriptRule,
		"slice":                    sliceRule,
		"call":                     callRule,
		"keyword_argument":         keywordRule,
		"binary_operator":          binOpRule,
		"unary_operator":           unaryOpRule,
		"not_operator":             notRule,
		"boolean_operator":         boolOpRule,
		"comparison_operator":      compareRule,
		"conditional_expression":   ifExpRule,
		"lambda":                   lambdaRule,
		"named_expression":         namedExprRule,
		"await":                    childrenRule("Await", "value"),
		"yield":                    yieldRule,
		"list_splat":               childrenRule("Starred", "value"),
		"list_splat_pattern":       childrenRule("Starred", "value"),
		"dictionary_splat":         childrenRule("Starred", "value"),
		"dictionary_splat_pattern": childrenRule("Starred", "value"),
		"list":                     childrenRule("List", "elts"),
		"list_pattern":             childrenRule("List", "elts"),
		"tuple":                    childrenRule("Tuple", "elts"),
		"tuple_pattern":            childrenRule("Tuple", "elts"),
		"expression_list":          childrenRule("Tuple", "elts"),
		"pattern_list":             childrenRule("Tuple", "elts"),
		"set":                      childrenRule("Set", "elts"),
		"dictionary":               dictRule,
		"list_comprehension":       comprehensionRule("ListComp"),
		"set_comprehension":        comprehensionRule("SetComp"),
		"generator_expression":     comprehensionRule("GeneratorExp"),
		"dictionary_comprehension": comprehensionRule("DictComp"),
		"parenthesized_expression": transparentRule,
		"type":                     transparentRule,
	}
}

// --- tree helpers ---

func isExtra(n *sitter.Node) bool {
	return n.Type() == "comment" || n.Type() == "line_continuation"
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if !isExtra(child) {
			out = append(out, child)
		}
	}
	return out
}

func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	cur := sitter.NewTreeCursor(n)
	defer cur.Close()
	if !cur.GoToFirstChild() {
		return nil
	}
	for {
		if cur.CurrentFieldName() == field {
			out = append(out, cur.CurrentNode())
		}
		if !cur.GoToNextSibling() {
			break
		}
	}
	return out
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if child := n.NamedChild(i); child.Type() == typ {
			return child
		}
	}
	return nil
}

func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == tok {
			return true
		}
	}
	return false
}

// kindName turns a tree-sitter type such as match_statement into MatchStatement.
func kindName(typ string) string {
	parts := strings.Split(typ, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// --- generic fallback ---

var blockFields = map[string]bool{"body": true, "orelse": true, "finalbody": true}

// genericRule walks the construct's named children. Block-valued fields are
// parsed as statement lists under the construct; every other child becomes a
// child -> construct edge named after its field, or after its own node type
// when the grammar gives it no field.
func genericRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic(kindName(n.Type()), n)
	cur := sitter.NewTreeCursor(n)
	defer cur.Close()
	if !cur.GoToFirstChild() {
		return name, nil
	}
	for {
		child := cur.CurrentNode()
		field := cur.CurrentFieldName()
		if child.IsNamed() && !isExtra(child) {
			switch {
			case child.Type() == "block" || blockFields[field]:
				if err := g.block(child, sc.with(condition{name, "operand"})); err != nil {
					return "", err
				}
			default:
				if field == "" {
					field = child.Type()
				}
				if err := g.link(name, child, field, sc); err != nil {
					return "", err
				}
			}
		}
		if !cur.GoToNextSibling() {
			break
		}
	}
	return name, nil
}

// childrenRule builds a construct whose named children all occupy one field.
func childrenRule(kind, field string) rule {
	return func(g *Generator, n *sitter.Node, sc scope) (string, error) {
		name := g.synthetic(kind, n)
		for _, child := range namedChildren(n) {
			if err := g.link(name, child, field, sc); err != nil {
				return "", err
			}
		}
		return name, nil
	}
}

func transparentRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	children := namedChildren(n)
	if len(children) == 0 {
		return "", fmt.Errorf("%w for %s: empty", ErrNoRule, n.Type())
	}
	return g.operand(children[0], sc)
}

// --- definitions ---

func decoratedRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	def := n.ChildByFieldName("definition")
	if def == nil {
		return "", fmt.Errorf("%w for decorated_definition: missing definition", ErrNoRule)
	}
	if def.Type() == "class_definition" {
		return g.classDef(def, decoratorsOf(n), sc)
	}
	return g.functionDef(def, decoratorsOf(n), sc)
}

// functionDef opens a new mention scope for the parameters, decorators and
// body. The return annotation is taken verbatim from the source.
func (g *Generator) functionDef(n *sitter.Node, decorators []*sitter.Node, sc scope) (string, error) {
	kind := "FunctionDef"
	if isAsync(n) {
		kind = "AsyncFunctionDef"
	}
	name := g.synthetic(kind, n)
	inner := sc.enter(name)

	if err := g.arguments(name, n.ChildByFieldName("parameters"), inner); err != nil {
		return "", err
	}
	for _, d := range decorators {
		if err := g.link(name, d, "decorator_list", inner); err != nil {
			return "", err
		}
	}
	if rt := n.ChildByFieldName("return_type"); rt != nil {
		g.edge(g.annotation(rt), name, "returns", spanOf(rt), nil)
	}
	if id := n.ChildByFieldName("name"); id != nil {
		g.edge(name, g.literal(g.text(id), KindName), "fname", nil, nil)
	}

	if err := g.block(n.ChildByFieldName("body"), inner.with(condition{name, "defined_in"})); err != nil {
		return "", err
	}
	return name, nil
}

func (g *Generator) arguments(fn string, params *sitter.Node, sc scope) error {
	if params == nil {
		return nil
	}
	args := g.synthetic("arguments", params)
	for _, p := range namedChildren(params) {
		field, name := g.parameter(p, sc)
		if name == "" {
			continue
		}
		g.edge(name, args, field, spanOf(p), nil)
	}
	g.edge(args, fn, "args", nil, nil)
	return nil
}

// parameter returns the arguments field a parameter belongs to and its arg
// node. Separators and unpacking patterns yield an empty name.
func (g *Generator) parameter(p *sitter.Node, sc scope) (string, string) {
	switch p.Type() {
	case "identifier":
		return "args", g.arg(p, p, nil, sc)
	case "typed_parameter":
		typ := p.ChildByFieldName("type")
		if p.NamedChildCount() == 0 {
			return "", ""
		}
		target := p.NamedChild(0)
		switch target.Type() {
		case "identifier":
			return "args", g.arg(target, p, typ, sc)
		case "list_splat_pattern":
			if id := firstOfType(target, "identifier"); id != nil {
				return "vararg", g.arg(id, p, typ, sc)
			}
		case "dictionary_splat_pattern":
			if id := firstOfType(target, "identifier"); id != nil {
				return "kwarg", g.arg(id, p, typ, sc)
			}
		}
	case "default_parameter", "typed_default_parameter":
		id := p.ChildByFieldName("name")
		if id != nil && id.Type() == "identifier" {
			return "args", g.arg(id, p, p.ChildByFieldName("type"), sc)
		}
	case "list_splat_pattern":
		if id := firstOfType(p, "identifier"); id != nil {
			return "vararg", g.arg(id, p, nil, sc)
		}
	case "dictionary_splat_pattern":
		if id := firstOfType(p, "identifier"); id != nil {
			return "kwarg", g.arg(id, p, nil, sc)
		}
	}
	return "", ""
}

// arg emits the parameter mention and, when annotated, an annotation edge
// from the literal annotation text to the mention.
func (g *Generator) arg(id, param, typ *sitter.Node, sc scope) string {
	name := g.synthetic("arg", param)
	m := g.mention(g.text(id), sc)
	g.edge(m, name, "arg", nil, nil)
	if typ != nil {
		g.edge(g.annotation(typ), m, "annotation", spanOf(typ), spanOf(param))
	}
	return name
}

func (g *Generator) classDef(n *sitter.Node, decorators []*sitter.Node, sc scope) (string, error) {
	name := g.synthetic("ClassDef", n)
	if id := n.ChildByFieldName("name"); id != nil {
		g.edge(g.literal(g.text(id), KindName), name, "name", nil, nil)
	}
	if sup := n.ChildByFieldName("superclasses"); sup != nil {
		for _, base := range namedChildren(sup) {
			field := "bases"
			if base.Type() == "keyword_argument" {
				field = "keywords"
			}
			if err := g.link(name, base, field, sc); err != nil {
				return "", err
			}
		}
	}
	for _, d := range decorators {
		if err := g.link(name, d, "decorator_list", sc); err != nil {
			return "", err
		}
	}
	if err := g.block(n.ChildByFieldName("body"), sc.with(condition{name, "True"})); err != nil {
		return "", err
	}
	return name, nil
}

// --- statements ---

func expressionStatementRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	children := namedChildren(n)
	switch len(children) {
	case 0:
		return "", nil
	case 1:
		return g.operand(children[0], sc)
	}
	name := g.synthetic("Tuple", n)
	for _, child := range children {
		if err := g.link(name, child, "elts", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

// assignRule flattens chained assignments (a = b = v) into one node with
// several targets.
func assignRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	if typ := n.ChildByFieldName("type"); typ != nil {
		return annAssign(g, n, typ, sc)
	}
	targets := []*sitter.Node{n.ChildByFieldName("left")}
	value := n.ChildByFieldName("right")
	for value != nil && value.Type() == "assignment" && value.ChildByFieldName("type") == nil {
		targets = append(targets, value.ChildByFieldName("left"))
		value = value.ChildByFieldName("right")
	}

	name := g.synthetic("Assign", n)
	if err := g.link(name, value, "value", sc); err != nil {
		return "", err
	}
	for _, t := range targets {
		if err := g.link(name, t, "targets", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

func annAssign(g *Generator, n, typ *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("AnnAssign", n)
	if err := g.link(name, n.ChildByFieldName("left"), "target", sc); err != nil {
		return "", err
	}
	if err := g.link(name, n.ChildByFieldName("right"), "value", sc); err != nil {
		return "", err
	}
	g.edge(g.annotation(typ), name, "annotation", spanOf(typ), spanOf(n))
	return name, nil
}

func augAssignRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("AugAssign", n)
	if err := g.link(name, n.ChildByFieldName("left"), "target", sc); err != nil {
		return "", err
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		g.edge(g.literal(augmentedOp(op.Type()), KindOp), name, "op", nil, nil)
	}
	if err := g.link(name, n.ChildByFieldName("right"), "value", sc); err != nil {
		return "", err
	}
	return name, nil
}

func raiseRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Raise", n)
	cause := n.ChildByFieldName("cause")
	for _, child := range namedChildren(n) {
		field := "exc"
		if cause != nil && child.StartByte() == cause.StartByte() {
			field = "cause"
		}
		if err := g.link(name, child, field, sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

func assertRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Assert", n)
	for i, child := range namedChildren(n) {
		field := "test"
		if i > 0 {
			field = "msg"
		}
		if err := g.link(name, child, field, sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

func namesRule(kind string) rule {
	return func(g *Generator, n *sitter.Node, sc scope) (string, error) {
		name := g.synthetic(kind, n)
		for _, id := range namedChildren(n) {
			g.edge(g.literal(g.text(id), KindName), name, "names", nil, nil)
		}
		return name, nil
	}
}

// importRule emits one alias node per imported name. Module resolution is
// left to the symbol index.
func importRule(kind string) rule {
	return func(g *Generator, n *sitter.Node, sc scope) (string, error) {
		name := g.synthetic(kind, n)
		module := n.ChildByFieldName("module_name")
		for _, child := range namedChildren(n) {
			if module != nil && child.StartByte() == module.StartByte() {
				continue
			}
			alias := g.synthetic("alias", child)
			g.edge(alias, name, "names", spanOf(child), nil)
		}
		return name, nil
	}
}

// controlFlowRule never recurses: the statement kind is the only operand.
func controlFlowRule(kind string) rule {
	return func(g *Generator, n *sitter.Node, sc scope) (string, error) {
		name := g.synthetic("control_flow", n)
		g.edge(g.literal(kind, KindControlFlow), name, "control_flow", nil, nil)
		return name, nil
	}
}

func ifRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("If", n)
	if err := g.link(name, n.ChildByFieldName("condition"), "test", sc); err != nil {
		return "", err
	}
	if err := g.block(n.ChildByFieldName("consequence"), sc.with(condition{name, "True"})); err != nil {
		return "", err
	}
	if err := g.orElse(name, fieldChildren(n, "alternative"), sc); err != nil {
		return "", err
	}
	return name, nil
}

// orElse parses an if's alternatives. An elif becomes a nested If that is
// the only statement of the enclosing False branch.
func (g *Generator) orElse(parent string, alts []*sitter.Node, sc scope) error {
	if len(alts) == 0 {
		return nil
	}
	inner := sc.with(condition{parent, "False"})
	alt := alts[0]
	switch alt.Type() {
	case "else_clause":
		return g.block(alt.ChildByFieldName("body"), inner)
	case "elif_clause":
		nested := g.synthetic("If", alt)
		if err := g.link(nested, alt.ChildByFieldName("condition"), "test", inner); err != nil {
			return err
		}
		if err := g.block(alt.ChildByFieldName("consequence"), inner.with(condition{nested, "True"})); err != nil {
			return err
		}
		if err := g.orElse(nested, alts[1:], inner); err != nil {
			return err
		}
		var last string
		g.sequence(&last, nested, inner)
		return nil
	}
	return fmt.Errorf("%w for if alternative %s", ErrNoRule, alt.Type())
}

func forRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	kind := "For"
	if isAsync(n) {
		kind = "AsyncFor"
	}
	name := g.synthetic(kind, n)
	if err := g.link(name, n.ChildByFieldName("left"), "target", sc); err != nil {
		return "", err
	}
	if err := g.link(name, n.ChildByFieldName("right"), "iter", sc); err != nil {
		return "", err
	}
	if err := g.block(n.ChildByFieldName("body"), sc.with(condition{name, "for"})); err != nil {
		return "", err
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if err := g.block(alt.ChildByFieldName("body"), sc.with(condition{name, "orelse"})); err != nil {
			return "", err
		}
	}
	return name, nil
}

// whileRule makes the body depend jointly on the loop and on its condition.
func whileRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("While", n)
	test := n.ChildByFieldName("condition")
	if test == nil {
		return "", fmt.Errorf("%w for while_statement: missing condition", ErrNoRule)
	}
	cond, err := g.operand(test, sc)
	if err != nil {
		return "", err
	}
	g.edge(cond, name, "test", spanOf(test), nil)

	body := sc.with(condition{name, "while"}, condition{cond, "True"})
	if err := g.block(n.ChildByFieldName("body"), body); err != nil {
		return "", err
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if err := g.block(alt.ChildByFieldName("body"), sc.with(condition{name, "orelse"})); err != nil {
			return "", err
		}
	}
	return name, nil
}

func tryRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Try", n)
	if err := g.block(n.ChildByFieldName("body"), sc.with(condition{name, "try"})); err != nil {
		return "", err
	}

	var final, orelse *sitter.Node
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "except_clause", "except_group_clause":
			handler, body, err := g.exceptHandler(child, sc)
			if err != nil {
				return "", err
			}
			ctx := sc.with(condition{name, "except"}, condition{handler, "handler"})
			if err := g.block(body, ctx); err != nil {
				return "", err
			}
		case "finally_clause":
			final = child
		case "else_clause":
			orelse = child
		}
	}
	if final != nil {
		if err := g.block(firstOfType(final, "block"), sc.with(condition{name, "final"})); err != nil {
			return "", err
		}
	}
	if orelse != nil {
		if err := g.block(orelse.ChildByFieldName("body"), sc.with(condition{name, "else"})); err != nil {
			return "", err
		}
	}
	return name, nil
}

// exceptHandler links the caught exception type. The bound name is not
// parsed.
func (g *Generator) exceptHandler(n *sitter.Node, sc scope) (string, *sitter.Node, error) {
	name := g.synthetic("ExceptHandler", n)
	var body *sitter.Node
	typed := false
	for _, child := range namedChildren(n) {
		if child.Type() == "block" {
			body = child
			continue
		}
		if typed {
			continue
		}
		typed = true
		expr := child
		if child.Type() == "as_pattern" && child.NamedChildCount() > 0 {
			expr = child.NamedChild(0)
		}
		if err := g.link(name, expr, "type", sc); err != nil {
			return "", nil, err
		}
	}
	return name, body, nil
}

// matchRule links the subjects and one match_case per case clause. A case
// body depends on the match and on its own case.
func matchRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Match", n)
	for _, subject := range fieldChildren(n, "subject") {
		if err := g.link(name, subject, "subject", sc); err != nil {
			return "", err
		}
	}
	clauses := namedChildren(n)
	if body := n.ChildByFieldName("body"); body != nil {
		clauses = namedChildren(body)
	}
	for _, c := range clauses {
		if c.Type() != "case_clause" {
			continue
		}
		mc, err := g.matchCase(c, sc)
		if err != nil {
			return "", err
		}
		g.edge(mc, name, "cases", spanOf(c), nil)
		body := c.ChildByFieldName("consequence")
		if body == nil {
			body = firstOfType(c, "block")
		}
		if err := g.block(body, sc.with(condition{name, "match"}, condition{mc, "case"})); err != nil {
			return "", err
		}
	}
	return name, nil
}

// matchCase links the patterns and the guard of one case clause. The body is
// parsed by the caller.
func (g *Generator) matchCase(n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("match_case", n)
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "block":
		case "if_clause":
			for _, test := range namedChildren(child) {
				if err := g.link(name, test, "guard", sc); err != nil {
					return "", err
				}
			}
		default:
			if err := g.link(name, child, "pattern", sc); err != nil {
				return "", err
			}
		}
	}
	return name, nil
}

// casePatternRule resolves a case pattern to its sub-pattern. The bare
// wildcard has none and becomes the name _.
func casePatternRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	children := namedChildren(n)
	if len(children) == 0 {
		return g.literal(g.text(n), KindName), nil
	}
	return g.operand(children[0], sc)
}

func typeAliasRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("TypeAlias", n)
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	if left == nil || right == nil {
		var types []*sitter.Node
		for _, child := range namedChildren(n) {
			if child.Type() == "type" {
				types = append(types, child)
			}
		}
		if len(types) < 2 {
			return "", fmt.Errorf("%w for type_alias_statement: want name and value", ErrNoRule)
		}
		left, right = types[0], types[1]
	}
	if err := g.link(name, left, "name", sc); err != nil {
		return "", err
	}
	if err := g.link(name, right, "value", sc); err != nil {
		return "", err
	}
	return name, nil
}

func withRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	kind := "With"
	if isAsync(n) {
		kind = "AsyncWith"
	}
	name := g.synthetic(kind, n)
	if clause := firstOfType(n, "with_clause"); clause != nil {
		for _, wi := range namedChildren(clause) {
			if wi.Type() != "with_item" {
				continue
			}
			item, err := g.withItem(wi, sc)
			if err != nil {
				return "", err
			}
			g.edge(item, name, "items", nil, nil)
		}
	}
	if err := g.block(n.ChildByFieldName("body"), sc.with(condition{name, "with"})); err != nil {
		return "", err
	}
	return name, nil
}

func (g *Generator) withItem(n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("withitem", n)
	value := n.ChildByFieldName("value")
	if value == nil {
		return name, nil
	}
	if value.Type() != "as_pattern" {
		return name, g.link(name, value, "context_expr", sc)
	}
	if value.NamedChildCount() > 0 {
		if err := g.link(name, value.NamedChild(0), "context_expr", sc); err != nil {
			return "", err
		}
	}
	if alias := value.ChildByFieldName("alias"); alias != nil {
		target := alias
		if alias.Type() == "as_pattern_target" && alias.NamedChildCount() > 0 {
			target = alias.NamedChild(0)
		}
		if err := g.link(name, target, "optional_vars", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

// --- literals ---

func constantRule(value string) rule {
	return func(g *Generator, n *sitter.Node, sc scope) (string, error) {
		return g.literal(value, KindConstant), nil
	}
}

func numberRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	return g.literal(g.text(n), KindConstant), nil
}

// stringRule makes plain strings opaque Str nodes; f-strings become a
// JoinedStr over their interpolations.
func stringRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	var parts []*sitter.Node
	collect := func(s *sitter.Node) {
		for _, child := range namedChildren(s) {
			if child.Type() == "interpolation" {
				parts = append(parts, child)
			}
		}
	}
	if n.Type() == "concatenated_string" {
		for _, s := range namedChildren(n) {
			collect(s)
		}
	} else {
		collect(n)
	}

	if len(parts) == 0 {
		return g.synthetic("Str", n), nil
	}
	name := g.synthetic("JoinedStr", n)
	for _, p := range parts {
		if err := g.link(name, p, "values", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

func formattedValueRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("FormattedValue", n)
	expr := n.ChildByFieldName("expression")
	if expr == nil {
		if children := namedChildren(n); len(children) > 0 {
			expr = children[0]
		}
	}
	if err := g.link(name, expr, "value", sc); err != nil {
		return "", err
	}
	return name, nil
}

// --- expressions ---

func attributeRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Attribute", n)
	if err := g.link(name, n.ChildByFieldName("object"), "value", sc); err != nil {
		return "", err
	}
	if attr := n.ChildByFieldName("attribute"); attr != nil {
		g.edge(g.literal(g.text(attr), KindName), name, "attr", nil, nil)
	}
	return name, nil
}

func subscriptRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Subscript", n)
	if err := g.link(name, n.ChildByFieldName("value"), "value", sc); err != nil {
		return "", err
	}
	for _, s := range fieldChildren(n, "subscript") {
		if err := g.link(name, s, "slice", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

// sliceRule assigns operands to lower/upper/step by the colons preceding them.
func sliceRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Slice", n)
	fields := []string{"lower", "upper", "step"}
	pos := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() {
			if child.Type() == ":" {
				pos++
			}
			continue
		}
		if isExtra(child) || pos >= len(fields) {
			continue
		}
		if err := g.link(name, child, fields[pos], sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

func callRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Call", n)
	if err := g.link(name, n.ChildByFieldName("function"), "call_func", sc); err != nil {
		return "", err
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return name, nil
	}
	if args.Type() == "generator_expression" {
		return name, g.link(name, args, "call_arg", sc)
	}
	for _, a := range namedChildren(args) {
		switch a.Type() {
		case "keyword_argument":
			if err := g.link(name, a, "keywords", sc); err != nil {
				return "", err
			}
		case "dictionary_splat":
			kw := g.synthetic("keyword", a)
			if children := namedChildren(a); len(children) > 0 {
				if err := g.link(kw, children[0], "value", sc); err != nil {
					return "", err
				}
			}
			g.edge(kw, name, "keywords", spanOf(a), nil)
		default:
			if err := g.link(name, a, "call_arg", sc); err != nil {
				return "", err
			}
		}
	}
	return name, nil
}

// keywordRule suffixes the keyword so it never collides with a variable name.
func keywordRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("keyword", n)
	if id := n.ChildByFieldName("name"); id != nil {
		g.edge(g.literal(g.text(id)+"@keyword", KindName), name, "arg", nil, nil)
	}
	if err := g.link(name, n.ChildByFieldName("value"), "value", sc); err != nil {
		return "", err
	}
	return name, nil
}

func binOpRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("BinOp", n)
	if err := g.link(name, n.ChildByFieldName("left"), "left", sc); err != nil {
		return "", err
	}
	if err := g.link(name, n.ChildByFieldName("right"), "right", sc); err != nil {
		return "", err
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		g.edge(g.literal(opName(binaryOps, op.Type()), KindOp), name, "op", nil, nil)
	}
	return name, nil
}

func unaryOpRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("UnaryOp", n)
	if err := g.link(name, n.ChildByFieldName("argument"), "operand", sc); err != nil {
		return "", err
	}
	if op := n.ChildByFieldName("operator"); op != nil {
		g.edge(g.literal(opName(unaryOps, op.Type()), KindOp), name, "op", nil, nil)
	}
	return name, nil
}

func notRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("UnaryOp", n)
	if err := g.link(name, n.ChildByFieldName("argument"), "operand", sc); err != nil {
		return "", err
	}
	g.edge(g.literal(opName(unaryOps, "not"), KindOp), name, "op", nil, nil)
	return name, nil
}

// boolOpRule flattens left-nested chains of the same operator into one
// BoolOp with several values.
func boolOpRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	tok := ""
	if op := n.ChildByFieldName("operator"); op != nil {
		tok = op.Type()
	}
	var values []*sitter.Node
	var flatten func(*sitter.Node)
	flatten = func(m *sitter.Node) {
		op := m.ChildByFieldName("operator")
		if m.Type() != "boolean_operator" || op == nil || op.Type() != tok {
			values = append(values, m)
			return
		}
		flatten(m.ChildByFieldName("left"))
		flatten(m.ChildByFieldName("right"))
	}
	flatten(n.ChildByFieldName("left"))
	flatten(n.ChildByFieldName("right"))

	name := g.synthetic("BoolOp", n)
	for _, v := range values {
		if err := g.link(name, v, "values", sc); err != nil {
			return "", err
		}
	}
	g.edge(g.literal(opName(boolOps, tok), KindOp), name, "op", nil, nil)
	return name, nil
}

func compareRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	var operands []*sitter.Node
	var ops []string
	cur := sitter.NewTreeCursor(n)
	defer cur.Close()
	if cur.GoToFirstChild() {
		for {
			child := cur.CurrentNode()
			switch {
			case cur.CurrentFieldName() == "operators":
				ops = append(ops, opName(compareOps, child.Type()))
			case child.IsNamed() && !isExtra(child):
				operands = append(operands, child)
			}
			if !cur.GoToNextSibling() {
				break
			}
		}
	}
	if len(operands) == 0 {
		return "", fmt.Errorf("%w for comparison_operator: no operands", ErrNoRule)
	}

	name := g.synthetic("Compare", n)
	if err := g.link(name, operands[0], "left", sc); err != nil {
		return "", err
	}
	for _, op := range ops {
		g.edge(g.literal(op, KindOp), name, "ops", nil, nil)
	}
	for _, c := range operands[1:] {
		if err := g.link(name, c, "comparators", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

// ifExpRule handles `body if test else orelse`.
func ifExpRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	children := namedChildren(n)
	if len(children) != 3 {
		return "", fmt.Errorf("%w for conditional_expression: %d operands", ErrNoRule, len(children))
	}
	name := g.synthetic("IfExp", n)
	if err := g.link(name, children[1], "test", sc); err != nil {
		return "", err
	}
	if err := g.link(name, children[0], "body", sc); err != nil {
		return "", err
	}
	if err := g.link(name, children[2], "orelse", sc); err != nil {
		return "", err
	}
	return name, nil
}

// lambdaRule links only the body; lambda parameters resolve as mentions of
// the enclosing function.
func lambdaRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Lambda", n)
	if err := g.link(name, n.ChildByFieldName("body"), "lambda", sc); err != nil {
		return "", err
	}
	return name, nil
}

func namedExprRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("NamedExpr", n)
	if err := g.link(name, n.ChildByFieldName("name"), "target", sc); err != nil {
		return "", err
	}
	if err := g.link(name, n.ChildByFieldName("value"), "value", sc); err != nil {
		return "", err
	}
	return name, nil
}

func yieldRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	kind := "Yield"
	if hasToken(n, "from") {
		kind = "YieldFrom"
	}
	return childrenRule(kind, "value")(g, n, sc)
}

func dictRule(g *Generator, n *sitter.Node, sc scope) (string, error) {
	name := g.synthetic("Dict", n)
	entries := namedChildren(n)
	for _, e := range entries {
		if e.Type() == "pair" {
			if err := g.link(name, e.ChildByFieldName("key"), "keys", sc); err != nil {
				return "", err
			}
		} else {
			g.edge(g.literal("None", KindConstant), name, "keys", nil, nil)
		}
	}
	for _, e := range entries {
		value := e.ChildByFieldName("value")
		if e.Type() != "pair" {
			if children := namedChildren(e); len(children) > 0 {
				value = children[0]
			}
		}
		if err := g.link(name, value, "values", sc); err != nil {
			return "", err
		}
	}
	return name, nil
}

// comprehensionRule builds one comprehension node per for clause; if clauses
// attach to the closest preceding for.
func comprehensionRule(kind string) rule {
	return func(g *Generator, n *sitter.Node, sc scope) (string, error) {
		name := g.synthetic(kind, n)
		body := n.ChildByFieldName("body")
		if body != nil && body.Type() == "pair" {
			if err := g.link(name, body.ChildByFieldName("key"), "key", sc); err != nil {
				return "", err
			}
			if err := g.link(name, body.ChildByFieldName("value"), "value", sc); err != nil {
				return "", err
			}
		} else if err := g.link(name, body, "elt", sc); err != nil {
			return "", err
		}

		var gens []string
		for _, clause := range namedChildren(n) {
			switch clause.Type() {
			case "for_in_clause":
				comp := g.synthetic("comprehension", clause)
				if err := g.link(comp, clause.ChildByFieldName("left"), "target", sc); err != nil {
					return "", err
				}
				if err := g.link(comp, clause.ChildByFieldName("right"), "iter", sc); err != nil {
					return "", err
				}
				gens = append(gens, comp)
			case "if_clause":
				if len(gens) == 0 {
					continue
				}
				for _, cond := range namedChildren(clause) {
					if err := g.link(gens[len(gens)-1], cond, "ifs", sc); err != nil {
						return "", err
					}
				}
			}
		}
		for _, comp := range gens {
			g.edge(comp, name, "generators", nil, nil)
		}
		return name, nil
	}
}
