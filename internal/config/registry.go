package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

const registryFileName = ".srcgraph.conf"

// DatasetEntry represents an assembled dataset in the global registry.
type DatasetEntry struct {
	Name      string    `yaml:"name"`
	Dir       string    `yaml:"dir"`
	Project   string    `yaml:"project,omitempty"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

type registryFile struct {
	Datasets []DatasetEntry `yaml:"datasets"`
}

// RegistryPath returns the path to the global dataset registry file (~/.srcgraph.conf).
func RegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, registryFileName)
}

// RegisterDataset adds or updates a dataset entry in the global registry.
// Entries are keyed by absolute directory. If name is empty, it defaults to
// filepath.Base(dir).
func RegisterDataset(name, dir, project string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve dataset dir: %w", err)
	}
	if name == "" {
		name = filepath.Base(absDir)
	}

	entries := ListDatasets()
	now := time.Now().UTC().Truncate(time.Second)

	found := false
	for i, entry := range entries {
		if entry.Dir == absDir {
			entries[i].Name = name
			entries[i].Project = project
			entries[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, DatasetEntry{
			Name:      name,
			Dir:       absDir,
			Project:   project,
			UpdatedAt: now,
		})
	}

	return writeRegistry(entries)
}

// LookupDataset resolves a dataset by registered name, falling back to
// treating ref as a directory path.
func LookupDataset(ref string) (*DatasetEntry, bool) {
	entries := ListDatasets()
	for _, entry := range entries {
		if entry.Name == ref {
			return &entry, true
		}
	}
	absRef, err := filepath.Abs(ref)
	if err != nil {
		absRef = ref
	}
	for _, entry := range entries {
		if entry.Dir == absRef {
			return &entry, true
		}
	}
	return nil, false
}

// ListDatasets returns all registered datasets from the global registry.
func ListDatasets() []DatasetEntry {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}

	data, err := os.ReadFile(regPath)
	if err != nil {
		return nil
	}

	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil
	}

	return reg.Datasets
}

func writeRegistry(entries []DatasetEntry) error {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}

	reg := registryFile{Datasets: entries}
	data, err := yaml.Marshal(&reg)
	if err != nil {
		return err
	}

	return os.WriteFile(regPath, data, 0644)
}
