package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/config"
)

// Style definitions for config view.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(18)
	valueStyle = lipgloss.NewStyle()
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit project configuration",
		Long: `View or edit srcgraph project configuration.

By default, displays the effective configuration (file, environment and
defaults merged). Use 'config edit' to edit it interactively.`,
		RunE: runConfigView,
	}

	cmd.AddCommand(newConfigEditCmd())

	return cmd
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)

	fmt.Fprintln(out, headerStyle.Render("srcgraph Configuration"))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 22)))
	fmt.Fprintln(out)

	printSection(out, "Project")
	printKV(out, "Name", orNone(cfg.Project.Name))
	printKV(out, "Config file", orNone(cfg.ConfigFile))
	fmt.Fprintln(out)

	printSection(out, "Scan")
	printKV(out, "Roots", strings.Join(cfg.Scan.Roots, ", "))
	for _, pattern := range cfg.Scan.Exclude {
		printKV(out, "Exclude", pattern)
	}
	fmt.Fprintln(out)

	printSection(out, "Corpus")
	printKV(out, "Directory", cfg.Corpus.Dir)
	if cfg.Corpus.SymbolDB != "" {
		printKV(out, "Symbol DB", cfg.Corpus.SymbolDB)
	}
	printKV(out, "Reverse edges", boolYesNo(cfg.Corpus.ReverseGlobalEdges))
	fmt.Fprintln(out)

	d := cfg.Dataset
	printSection(out, "Dataset")
	printKV(out, "Output", d.Output)
	printKV(out, "Train fraction", fmt.Sprint(d.TrainFrac))
	if d.Seed != nil {
		printKV(out, "Seed", fmt.Sprint(*d.Seed))
	} else {
		printKV(out, "Seed", "(random)")
	}
	printKV(out, "Node types", boolYesNo(d.UseNodeTypes))
	printKV(out, "Edge types", boolYesNo(d.UseEdgeTypes))
	printKV(out, "Self loops", boolYesNo(d.SelfLoops))
	printKV(out, "Global edges", boolYesNo(!d.NoGlobalEdges))
	printKV(out, "Remove reverse", boolYesNo(d.RemoveReverse))
	if len(d.FilterEdges) > 0 {
		printKV(out, "Filter edges", strings.Join(d.FilterEdges, ", "))
	}
	if len(d.CustomReverse) > 0 {
		printKV(out, "Custom reverse", strings.Join(d.CustomReverse, ", "))
	}
	switch {
	case d.PackageSplit:
		printKV(out, "Split", "by package")
	case d.PartitionFile != "":
		printKV(out, "Split", "from "+d.PartitionFile)
	default:
		printKV(out, "Split", "random")
	}
	if d.RestrictedIDPool != "" {
		printKV(out, "ID pool", d.RestrictedIDPool)
	}
	if d.HoldoutSize > 0 {
		printKV(out, "Holdout", fmt.Sprintf("%d (seed %d)", d.HoldoutSize, d.HoldoutSeed))
	}
	fmt.Fprintln(out)

	printSection(out, "Objectives")
	printKV(out, "Enabled", strings.Join(cfg.Objectives.Enabled, ", "))
	printKV(out, "Min count", fmt.Sprint(cfg.Objectives.MinCount))
	fmt.Fprintln(out)

	printSection(out, "Graph")
	printKV(out, "DB Path", cfg.ResolveDBPath(""))
	printKV(out, "Neo4j URI", cfg.Graph.Neo4jURI)
	printKV(out, "Neo4j user", cfg.Graph.Neo4jUser)
	if cfg.Graph.Neo4jPassword != "" {
		printKV(out, "Neo4j password", "(set)")
	}
	if cfg.Graph.Neo4jDatabase != "" {
		printKV(out, "Neo4j database", cfg.Graph.Neo4jDatabase)
	}
	printKV(out, "Batch size", fmt.Sprint(cfg.Graph.BatchSize))
	fmt.Fprintln(out)

	return nil
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit project configuration interactively",
		Long:  `Edit srcgraph project configuration using an interactive wizard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.ConfigFile == "" {
				return fmt.Errorf("no project config found; run 'srcgraph init' first")
			}

			out := cmd.OutOrStdout()
			var confirm bool
			form, apply := configForm(cfg, "Save", &confirm)
			done, err := runForm(form, &confirm)
			if err != nil {
				return fmt.Errorf("interactive config edit: %w", err)
			}
			if !done {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
			if err := apply(); err != nil {
				return err
			}

			if err := config.WriteConfig(cfg, cfg.ConfigFile); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(out, "Configuration saved to %s\n", cfg.ConfigFile)
			return nil
		},
	}
}
