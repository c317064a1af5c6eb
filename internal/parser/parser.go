package parser

import "strings"

// Language represents a supported programming language.
type Language string

const (
	LangPython Language = "python"
)

// FileExtensions maps each language to its recognized file extensions.
var FileExtensions = map[Language][]string{
	LangPython: {".py"},
}

// Symbol is a definition found while scanning a file: a module, class,
// function or method. Name is the dotted qualified name.
type Symbol struct {
	Name   string
	Kind   string
	Parent string // qualified name of the defining symbol, empty for modules
	Line   int
}

// Ref is a reference from inside a body to a module-level definition.
// Offsets are byte positions in the file.
type Ref struct {
	Start, End uint32
	Target     string // qualified name of the referenced symbol
}

// Body locates one function or method in its file. Decorators are included.
type Body struct {
	Name      string // qualified name of the function symbol
	Docstring string
	Line      int
	Indent    int // column of the first byte, stripped from every line
	Start     uint32
	End       uint32
	Refs      []Ref // ordered by Start
}

// Render returns the body source dedented to column zero. Each reference
// whose target resolve knows is replaced by the returned token.
func (b Body) Render(content []byte, resolve func(target string) (string, bool)) string {
	var sb strings.Builder
	pos := b.Start
	for _, r := range b.Refs {
		if r.Start < pos || r.End > b.End {
			continue
		}
		tok, ok := resolve(r.Target)
		if !ok {
			continue
		}
		sb.Write(content[pos:r.Start])
		sb.WriteString(tok)
		pos = r.End
	}
	sb.Write(content[pos:b.End])
	return Dedent(sb.String(), b.Indent)
}

// Dedent strips up to indent leading blanks from every line after the first.
func Dedent(src string, indent int) string {
	if indent == 0 {
		return src
	}
	lines := strings.Split(src, "\n")
	for i := 1; i < len(lines); i++ {
		line := lines[i]
		n := 0
		for n < indent && n < len(line) && (line[n] == ' ' || line[n] == '\t') {
			n++
		}
		lines[i] = line[n:]
	}
	return strings.Join(lines, "\n")
}

// ParseResult holds the symbols and bodies extracted from one file.
type ParseResult struct {
	Symbols  []Symbol
	Bodies   []Body
	FilePath string
	Language Language
}

// Parser defines the interface for language-specific source scanners.
type Parser interface {
	// Language returns which language this parser handles.
	Language() Language

	// Extensions returns the file extensions this parser can handle.
	Extensions() []string

	// ModuleName derives the dotted module path of a file from its path
	// relative to the scan root. An empty name means the file is skipped.
	ModuleName(relPath string) string

	// ParseFile scans the file content. module is the dotted module path
	// used to qualify symbol names.
	ParseFile(filePath, module string, content []byte) (*ParseResult, error)
}
