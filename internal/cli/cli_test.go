package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/imyousuf/srcgraph/internal/table"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "srcgraph version dev") {
		t.Errorf("output = %q", out)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" src, dst ,,mentioned_in ")
	want := []string{"src", "dst", "mentioned_in"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList = %v, want %v", got, want)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

func TestDetectSourceRoots(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"pkg/a.py", "tools/sub/b.py", "venv/lib/c.py", "docs/readme.md"} {
		path := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x = 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := detectSourceRoots(dir)
	want := []string{"pkg", "tools"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("roots = %v, want %v", got, want)
	}

	if err := os.WriteFile(filepath.Join(dir, "setup.py"), []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := detectSourceRoots(dir); !reflect.DeepEqual(got, []string{"."}) {
		t.Errorf("roots with top-level file = %v, want [.]", got)
	}
}

func TestMapIDsCmd(t *testing.T) {
	dir := t.TempDir()
	local := []table.Node{{ID: 0, Type: "mention", Name: "x@f"}, {ID: 1, Type: "Name", Name: "x"}}
	global := []table.Node{{ID: 10, Type: "Name", Name: "x"}, {ID: 11, Type: "mention", Name: "x@f"}}
	edges := []table.Edge{{ID: 0, Type: "local_mention", Src: 1, Dst: 0}}

	localPath := filepath.Join(dir, "local.csv")
	globalPath := filepath.Join(dir, "global.csv")
	edgesPath := filepath.Join(dir, "edges.csv")
	if err := table.WriteNodes(localPath, local); err != nil {
		t.Fatal(err)
	}
	if err := table.WriteNodes(globalPath, global); err != nil {
		t.Fatal(err)
	}
	if err := table.WriteEdges(edgesPath, edges); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "mapped.csv")
	if _, err := execute(t, "map-ids", "--local", localPath, "--global", globalPath,
		"--table", edgesPath, "--out", outPath); err != nil {
		t.Fatalf("map-ids: %v", err)
	}
	got, err := table.ReadEdges(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Src != 10 || got[0].Dst != 11 {
		t.Fatalf("mapped edges = %+v", got)
	}

	// Appending keeps the existing rows.
	if _, err := execute(t, "map-ids", "--local", localPath, "--global", globalPath,
		"--table", edgesPath, "--out", outPath, "--append"); err != nil {
		t.Fatalf("map-ids --append: %v", err)
	}
	got, err = table.ReadEdges(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("appended edges = %d, want 2", len(got))
	}
}

func TestMapIDsMissingFlags(t *testing.T) {
	if _, err := execute(t, "map-ids", "--local", "a.csv"); err == nil {
		t.Fatal("expected error without --global and --table")
	}
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.MkdirAll(filepath.Join(dir, "app"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app", "main.py"), []byte("def f():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".srcgraph.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "- app") {
		t.Errorf("config does not list detected root:\n%s", data)
	}

	if _, err := execute(t, "init"); err == nil {
		t.Error("second init should fail without --force")
	}
	if _, err := execute(t, "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestConfigView(t *testing.T) {
	t.Chdir(t.TempDir())
	out, err := execute(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"srcgraph Configuration", "Dataset", "bolt://localhost:7687"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMergeNamesNoData(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "id,type,serialized_name\n"},
		{"files only", "id,type,serialized_name\n1,262144,/src/a.py\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := filepath.Join(dir, "raw.csv")
			if err := os.WriteFile(in, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			outDir := filepath.Join(dir, "out")
			out, err := execute(t, "merge-names", in, "--out", outDir)
			if err != nil {
				t.Fatalf("merge-names: %v", err)
			}
			if !strings.Contains(out, "No symbol data") {
				t.Errorf("output = %q, want skip message", out)
			}
			if _, err := os.Stat(outDir); !os.IsNotExist(err) {
				t.Errorf("output dir exists after skip (stat err = %v)", err)
			}
		})
	}
}

func TestMergeNamesReadFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := execute(t, "merge-names", "missing.csv", "--out", "out"); err == nil {
		t.Fatal("expected error for a missing input file")
	}
}
