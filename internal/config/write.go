package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const configHeader = "# srcgraph configuration\n# Environment overrides use the SRCGRAPH_ prefix, e.g. SRCGRAPH_DATASET_SEED.\n"

// WriteConfig serializes cfg to YAML at path, creating the parent directory.
// The Neo4j password is never written; set SRCGRAPH_GRAPH_NEO4J_PASSWORD
// instead.
func WriteConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
