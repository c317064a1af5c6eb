package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/srcgraph/internal/config"
)

func newInitCmd() *cobra.Command {
	var interactive bool
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .srcgraph.yaml in the current directory",
		Long: `Initialize a srcgraph project in the current directory.

Writes .srcgraph.yaml with the default pipeline settings. Scan roots are
detected from the directories holding Python files. With --interactive a
wizard asks for the project, dataset and objective settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			configPath := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", configPath)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load defaults: %w", err)
			}
			cfg.Project.Name = filepath.Base(cwd)
			cfg.Scan.Roots = detectSourceRoots(cwd)

			out := cmd.OutOrStdout()
			if interactive {
				var confirm bool
				form, apply := configForm(cfg, "Create", &confirm)
				done, err := runForm(form, &confirm)
				if err != nil {
					return fmt.Errorf("interactive init: %w", err)
				}
				if !done {
					fmt.Fprintln(out, "Cancelled.")
					return nil
				}
				if err := apply(); err != nil {
					return err
				}
			}

			if err := config.WriteConfig(cfg, configPath); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}
			fmt.Fprintf(out, "Created %s\n", configPath)

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Add to .gitignore:")
			fmt.Fprintf(out, "       %s/\n", cfg.Corpus.Dir)
			fmt.Fprintf(out, "       %s/\n", cfg.Dataset.Output)
			fmt.Fprintln(out, "  2. Run 'srcgraph scan' and 'srcgraph ast-edges' to extract the corpus")
			fmt.Fprintln(out, "  3. Run 'srcgraph build-corpus' and 'srcgraph assemble' to build the dataset")
			fmt.Fprintln(out, "  4. Run 'srcgraph targets' to extract objective tables")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "run the setup wizard")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
