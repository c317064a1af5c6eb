package python

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/imyousuf/srcgraph/internal/parser"
)

// Symbol kinds, named after the symbol index's semantic types.
const (
	KindModule = "module"
	KindClass  = "class"
	KindFunc   = "function"
	KindMethod = "class_method"
)

// PythonParser splits Python source files into symbols and function bodies.
type PythonParser struct{}

// NewParser creates a new Python parser.
func NewParser() *PythonParser {
	return &PythonParser{}
}

func (p *PythonParser) Language() parser.Language {
	return parser.LangPython
}

func (p *PythonParser) Extensions() []string {
	return parser.FileExtensions[parser.LangPython]
}

func (p *PythonParser) ParseFile(filePath, module string, content []byte) (*parser.ParseResult, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(python.GetLanguage())

	tree, err := sitterParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	defer tree.Close()

	e := &extractor{
		module:  module,
		content: content,
		globals: make(map[string]string),
	}
	e.extract(tree.RootNode())

	return &parser.ParseResult{
		Symbols:  e.symbols,
		Bodies:   e.bodies,
		FilePath: filePath,
		Language: parser.LangPython,
	}, nil
}

type extractor struct {
	module  string
	content []byte
	symbols []parser.Symbol
	bodies  []parser.Body

	// module-level names resolvable from inside bodies, short -> qualified
	globals map[string]string
}

func (e *extractor) extract(root *sitter.Node) {
	e.symbols = append(e.symbols, parser.Symbol{Name: e.module, Kind: KindModule, Line: 1})

	for i := 0; i < int(root.NamedChildCount()); i++ {
		def := definition(root.NamedChild(i))
		if def == nil {
			continue
		}
		if name := e.nameOf(def); name != "" {
			e.globals[name] = e.module + "." + name
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		def := definition(child)
		if def == nil {
			continue
		}
		switch def.Type() {
		case "class_definition":
			e.extractClass(def, e.module)
		case "function_definition":
			e.extractFunction(def, child, e.module, KindFunc)
		}
	}
}

// definition unwraps decorators and returns the class or function node, or
// nil for any other statement.
func definition(n *sitter.Node) *sitter.Node {
	switch n.Type() {
	case "class_definition", "function_definition":
		return n
	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return def
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if c.Type() == "class_definition" || c.Type() == "function_definition" {
				return c
			}
		}
	}
	return nil
}

func (e *extractor) nameOf(def *sitter.Node) string {
	if name := def.ChildByFieldName("name"); name != nil {
		return e.nodeText(name)
	}
	return ""
}

func (e *extractor) extractClass(node *sitter.Node, parent string) {
	name := e.nameOf(node)
	if name == "" {
		return
	}
	qualified := parent + "." + name
	e.symbols = append(e.symbols, parser.Symbol{
		Name:   qualified,
		Kind:   KindClass,
		Parent: parent,
		Line:   int(node.StartPoint().Row) + 1,
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		def := definition(child)
		if def == nil {
			continue
		}
		switch def.Type() {
		case "class_definition":
			e.extractClass(def, qualified)
		case "function_definition":
			e.extractFunction(def, child, qualified, KindMethod)
		}
	}
}

// extractFunction records the function symbol and its body. outer is the
// decorated_definition when decorators are present, so they stay part of the
// body source.
func (e *extractor) extractFunction(node, outer *sitter.Node, parent, kind string) {
	name := e.nameOf(node)
	if name == "" {
		return
	}
	qualified := parent + "." + name
	line := int(outer.StartPoint().Row) + 1
	e.symbols = append(e.symbols, parser.Symbol{
		Name:   qualified,
		Kind:   kind,
		Parent: parent,
		Line:   line,
	})

	docstring := ""
	if block := node.ChildByFieldName("body"); block != nil {
		docstring = e.extractDocstring(block)
	}

	b := parser.Body{
		Name:      qualified,
		Docstring: docstring,
		Line:      line,
		Indent:    int(outer.StartPoint().Column),
		Start:     outer.StartByte(),
		End:       outer.EndByte(),
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		b.Refs = append(b.Refs, parser.Ref{Start: nameNode.StartByte(), End: nameNode.EndByte(), Target: qualified})
	}
	e.collectRefs(outer, nameNodeStart(node), &b)
	sort.Slice(b.Refs, func(i, j int) bool { return b.Refs[i].Start < b.Refs[j].Start })
	e.bodies = append(e.bodies, b)
}

func nameNodeStart(def *sitter.Node) uint32 {
	if n := def.ChildByFieldName("name"); n != nil {
		return n.StartByte()
	}
	return ^uint32(0)
}

// collectRefs records identifiers that name module-level definitions.
// Attribute names and keyword argument names are not references.
func (e *extractor) collectRefs(n *sitter.Node, skip uint32, b *parser.Body) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "identifier" {
			e.collectRefs(child, skip, b)
			continue
		}
		if child.StartByte() == skip {
			continue
		}
		target, ok := e.globals[e.nodeText(child)]
		if !ok {
			continue
		}
		if !isReference(n, child) {
			continue
		}
		b.Refs = append(b.Refs, parser.Ref{Start: child.StartByte(), End: child.EndByte(), Target: target})
	}
}

func isReference(parent, ident *sitter.Node) bool {
	switch parent.Type() {
	case "attribute":
		return !isFieldChild(parent, "attribute", ident)
	case "keyword_argument", "function_definition", "class_definition",
		"default_parameter", "typed_default_parameter":
		return !isFieldChild(parent, "name", ident)
	case "parameters", "lambda_parameters", "typed_parameter":
		return false
	}
	return true
}

func isFieldChild(parent *sitter.Node, field string, child *sitter.Node) bool {
	f := parent.ChildByFieldName(field)
	return f != nil && f.StartByte() == child.StartByte()
}

func (e *extractor) extractDocstring(body *sitter.Node) string {
	if body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() == "expression_statement" && first.NamedChildCount() > 0 {
		expr := first.NamedChild(0)
		if expr.Type() == "string" {
			return cleanDocstring(e.nodeText(expr))
		}
	}
	return ""
}

func (e *extractor) nodeText(node *sitter.Node) string {
	return node.Content(e.content)
}

// ModuleName derives the dotted module path of a file relative to its root.
// Package initializers name the package itself.
func (p *PythonParser) ModuleName(relPath string) string {
	relPath = strings.TrimSuffix(filepath.ToSlash(relPath), ".py")
	if relPath == "__init__" {
		return ""
	}
	relPath = strings.TrimSuffix(relPath, "/__init__")
	return strings.ReplaceAll(relPath, "/", ".")
}

func cleanDocstring(raw string) string {
	s := raw
	for _, prefix := range []string{`"""`, `'''`, `r"""`, `r'''`, `"`, `'`} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			quote := strings.TrimPrefix(prefix, "r")
			s = strings.TrimSuffix(s, quote)
			break
		}
	}
	return strings.TrimSpace(s)
}
