package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/imyousuf/srcgraph/internal/config"
	"github.com/imyousuf/srcgraph/internal/objectives"
	"github.com/imyousuf/srcgraph/internal/parser"
)

// skippedDirs are never offered as scan roots.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// detectSourceRoots walks rootDir (depth-limited to 2 levels) and returns the
// top-level directories holding Python files. "." is returned when Python
// files sit directly in rootDir or nothing is found.
func detectSourceRoots(rootDir string) []string {
	exts := make(map[string]bool)
	for _, ext := range parser.FileExtensions[parser.LangPython] {
		exts[ext] = true
	}

	found := make(map[string]bool)
	rootDepth := strings.Count(filepath.ToSlash(rootDir), "/")
	_ = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		depth := strings.Count(filepath.ToSlash(path), "/") - rootDepth
		if d.IsDir() {
			if path != rootDir && (depth > 2 || skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if !exts[filepath.Ext(path)] {
			return nil
		}
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return nil
		}
		top, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
		if !nested {
			top = "."
		}
		found[top] = true
		return nil
	})

	if len(found) == 0 || found["."] {
		return []string{"."}
	}
	roots := make([]string, 0, len(found))
	for r := range found {
		roots = append(roots, r)
	}
	sort.Strings(roots)
	return roots
}

// allObjectives lists every objective the targets command understands.
func allObjectives() []string {
	return append(objectives.Names(), objectives.DocstringsObjective)
}

// configForm builds the wizard shared by init --interactive and config edit.
// Answers are written back into cfg when the form completes and confirm is
// set.
func configForm(cfg *config.Config, action string, confirm *bool) (*huh.Form, func() error) {
	var (
		projectName  = cfg.Project.Name
		roots        = strings.Join(cfg.Scan.Roots, ", ")
		corpusDir    = cfg.Corpus.Dir
		outputDir    = cfg.Dataset.Output
		trainFrac    = strconv.FormatFloat(cfg.Dataset.TrainFrac, 'g', -1, 64)
		useNodeTypes = cfg.Dataset.UseNodeTypes
		useEdgeTypes = cfg.Dataset.UseEdgeTypes
		packageSplit = cfg.Dataset.PackageSplit
		selected     = append([]string(nil), cfg.Objectives.Enabled...)
	)

	enabled := make(map[string]bool, len(selected))
	for _, o := range selected {
		enabled[o] = true
	}
	objOptions := make([]huh.Option[string], 0, len(allObjectives()))
	for _, o := range allObjectives() {
		objOptions = append(objOptions, huh.NewOption(o, o).Selected(enabled[o]))
	}

	notEmpty := func(what string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s cannot be empty", what)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&projectName).
				Validate(notEmpty("project name")),
			huh.NewInput().
				Title("Scan roots").
				Description("Comma-separated directories holding Python sources").
				Value(&roots).
				Validate(notEmpty("scan roots")),
		).Title("Project Setup"),

		huh.NewGroup(
			huh.NewInput().
				Title("Corpus directory").
				Value(&corpusDir).
				Validate(notEmpty("corpus directory")),
			huh.NewInput().
				Title("Dataset directory").
				Value(&outputDir).
				Validate(notEmpty("dataset directory")),
			huh.NewInput().
				Title("Train fraction").
				Value(&trainFrac).
				Validate(func(s string) error {
					f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
					if err != nil || f <= 0 || f > 1 {
						return fmt.Errorf("train fraction must be in (0, 1]")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Use node types?").
				Description("Keep semantic node types instead of collapsing them").
				Value(&useNodeTypes).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Use edge types?").
				Value(&useEdgeTypes).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Split by package?").
				Description("Partition whole top-level packages instead of single nodes").
				Value(&packageSplit).
				Affirmative("Yes").
				Negative("No"),
		).Title("Dataset"),

		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Objectives").
				Options(objOptions...).
				Value(&selected),
		).Title("Objectives"),

		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(func() string {
					objStr := strings.Join(selected, ", ")
					if objStr == "" {
						objStr = "(none)"
					}
					return fmt.Sprintf(
						"Project:     %s\n"+
							"Roots:       %s\n"+
							"Corpus:      %s\n"+
							"Dataset:     %s (train %s)\n"+
							"Objectives:  %s",
						projectName, roots, corpusDir, outputDir, trainFrac, objStr,
					)
				}, &selected),
			huh.NewConfirm().
				Title(action+"?").
				Value(confirm).
				Affirmative(action).
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())

	apply := func() error {
		frac, err := strconv.ParseFloat(strings.TrimSpace(trainFrac), 64)
		if err != nil {
			return fmt.Errorf("parse train fraction: %w", err)
		}
		cfg.Project.Name = strings.TrimSpace(projectName)
		cfg.Scan.Roots = splitList(roots)
		cfg.Corpus.Dir = strings.TrimSpace(corpusDir)
		cfg.Dataset.Output = strings.TrimSpace(outputDir)
		cfg.Dataset.TrainFrac = frac
		cfg.Dataset.UseNodeTypes = useNodeTypes
		cfg.Dataset.UseEdgeTypes = useEdgeTypes
		cfg.Dataset.PackageSplit = packageSplit
		cfg.Objectives.Enabled = selected
		return cfg.Validate()
	}
	return form, apply
}

// runForm runs the wizard. done is false when the user cancelled.
func runForm(form *huh.Form, confirm *bool) (done bool, err error) {
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, err
	}
	return *confirm, nil
}
