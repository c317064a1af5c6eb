package python

import (
	"strings"
	"testing"

	"github.com/imyousuf/srcgraph/internal/parser"
)

const testSource = `"""A test module for parsing."""

import os

MAX_RETRIES = 3

class Animal:
    """Base class for animals."""

    def __init__(self, name: str, age: int) -> None:
        self.name = name
        self.age = age

    @property
    def info(self) -> str:
        """Formatted info."""
        return f"{self.name}"

def create_animal(name: str, age: int) -> Animal:
    """Factory function. Builds one animal."""
    return Animal(name, age)

def _helper(x, create_animal=None):
    obj.create_animal = x
    return create_animal(x, age=_helper)
`

func parse(t *testing.T) *parser.ParseResult {
	t.Helper()
	result, err := NewParser().ParseFile("zoo/animals.py", "zoo.animals", []byte(testSource))
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	return result
}

func TestParseFileSymbols(t *testing.T) {
	result := parse(t)

	if result.FilePath != "zoo/animals.py" {
		t.Errorf("FilePath = %q, want %q", result.FilePath, "zoo/animals.py")
	}
	if result.Language != parser.LangPython {
		t.Errorf("Language = %q, want %q", result.Language, parser.LangPython)
	}

	want := []parser.Symbol{
		{Name: "zoo.animals", Kind: KindModule, Line: 1},
		{Name: "zoo.animals.Animal", Kind: KindClass, Parent: "zoo.animals", Line: 7},
		{Name: "zoo.animals.Animal.__init__", Kind: KindMethod, Parent: "zoo.animals.Animal", Line: 10},
		{Name: "zoo.animals.Animal.info", Kind: KindMethod, Parent: "zoo.animals.Animal", Line: 14},
		{Name: "zoo.animals.create_animal", Kind: KindFunc, Parent: "zoo.animals", Line: 19},
		{Name: "zoo.animals._helper", Kind: KindFunc, Parent: "zoo.animals", Line: 23},
	}
	if len(result.Symbols) != len(want) {
		t.Fatalf("got %d symbols, want %d: %+v", len(result.Symbols), len(want), result.Symbols)
	}
	for i := range want {
		if result.Symbols[i] != want[i] {
			t.Errorf("symbol %d = %+v, want %+v", i, result.Symbols[i], want[i])
		}
	}
}

func TestParseFileBodies(t *testing.T) {
	result := parse(t)
	if len(result.Bodies) != 4 {
		t.Fatalf("got %d bodies, want 4", len(result.Bodies))
	}
	content := []byte(testSource)
	plain := func(string) (string, bool) { return "", false }

	info := result.Bodies[1]
	if info.Docstring != "Formatted info." {
		t.Errorf("info docstring = %q", info.Docstring)
	}
	src := info.Render(content, plain)
	if !strings.HasPrefix(src, "@property\ndef info(self) -> str:\n    \"\"\"Formatted info.\"\"\"") {
		t.Errorf("info source not dedented:\n%s", src)
	}
}

func TestRenderReplacesReferences(t *testing.T) {
	result := parse(t)
	ids := map[string]string{
		"zoo.animals.Animal":        "srstrlnd_1",
		"zoo.animals.create_animal": "srstrlnd_4",
		"zoo.animals._helper":       "srstrlnd_5",
	}
	resolve := func(target string) (string, bool) {
		tok, ok := ids[target]
		return tok, ok
	}
	content := []byte(testSource)

	factory := result.Bodies[2].Render(content, resolve)
	if !strings.HasPrefix(factory, "def srstrlnd_4(name: str, age: int) -> srstrlnd_1:") {
		t.Errorf("factory header not rewritten:\n%s", factory)
	}
	if !strings.Contains(factory, "return srstrlnd_1(name, age)") {
		t.Errorf("factory call not rewritten:\n%s", factory)
	}

	helper := result.Bodies[3].Render(content, resolve)
	for _, want := range []string{
		"def srstrlnd_5(x, create_animal=None):",
		"obj.create_animal = x",
		"return srstrlnd_4(x, age=srstrlnd_5)",
	} {
		if !strings.Contains(helper, want) {
			t.Errorf("helper source missing %q:\n%s", want, helper)
		}
	}
}

func TestLanguageAndExtensions(t *testing.T) {
	p := NewParser()
	if p.Language() != parser.LangPython {
		t.Errorf("Language() = %q, want %q", p.Language(), parser.LangPython)
	}
	exts := p.Extensions()
	if len(exts) != 1 || exts[0] != ".py" {
		t.Errorf("Extensions() = %v, want [\".py\"]", exts)
	}
}

func TestModuleName(t *testing.T) {
	tests := map[string]string{
		"pkg/mod.py":          "pkg.mod",
		"pkg/sub/__init__.py": "pkg.sub",
		"top.py":              "top",
		"__init__.py":         "",
	}
	p := NewParser()
	for in, want := range tests {
		if got := p.ModuleName(in); got != want {
			t.Errorf("ModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDedent(t *testing.T) {
	got := parser.Dedent("def f():\n        x = 1\n\n        return x", 4)
	want := "def f():\n    x = 1\n\n    return x"
	if got != want {
		t.Errorf("Dedent = %q, want %q", got, want)
	}
}
