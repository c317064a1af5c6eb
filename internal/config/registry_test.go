package config

import (
	"path/filepath"
	"testing"
)

func TestRegistryRoundTrip(t *testing.T) {
	// Use a temp dir as HOME so we don't modify the real registry.
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	regPath := RegistryPath()
	wantPath := filepath.Join(tmpHome, registryFileName)
	if regPath != wantPath {
		t.Errorf("RegistryPath() = %q, want %q", regPath, wantPath)
	}

	if entries := ListDatasets(); len(entries) != 0 {
		t.Errorf("ListDatasets() = %d entries, want 0", len(entries))
	}

	dir := filepath.Join(tmpHome, "work", "ds-small")
	if err := RegisterDataset("small", dir, "proj"); err != nil {
		t.Fatalf("RegisterDataset() error: %v", err)
	}
	if err := RegisterDataset("large", filepath.Join(tmpHome, "work", "ds-large"), "proj"); err != nil {
		t.Fatalf("RegisterDataset() error: %v", err)
	}

	entries := ListDatasets()
	if len(entries) != 2 {
		t.Fatalf("ListDatasets() = %d entries, want 2", len(entries))
	}
	if entries[0].Dir != dir {
		t.Errorf("Dir = %q, want %q", entries[0].Dir, dir)
	}
	if entries[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	// Same dir, new name updates in place.
	if err := RegisterDataset("small-v2", dir, "proj"); err != nil {
		t.Fatalf("RegisterDataset() update error: %v", err)
	}
	entries = ListDatasets()
	if len(entries) != 2 {
		t.Fatalf("ListDatasets() = %d entries after update, want 2", len(entries))
	}
	if entries[0].Name != "small-v2" {
		t.Errorf("updated Name = %q, want %q", entries[0].Name, "small-v2")
	}
}

func TestRegisterDatasetDefaultName(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	if err := RegisterDataset("", filepath.Join(tmpHome, "my-dataset"), ""); err != nil {
		t.Fatalf("RegisterDataset() error: %v", err)
	}
	entries := ListDatasets()
	if len(entries) != 1 {
		t.Fatalf("ListDatasets() = %d entries, want 1", len(entries))
	}
	if entries[0].Name != "my-dataset" {
		t.Errorf("Name = %q, want %q", entries[0].Name, "my-dataset")
	}
}

func TestLookupDataset(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir := filepath.Join(tmpHome, "ds")
	if err := RegisterDataset("main", dir, ""); err != nil {
		t.Fatalf("RegisterDataset() error: %v", err)
	}

	entry, ok := LookupDataset("main")
	if !ok {
		t.Fatal("LookupDataset() not found by name")
	}
	if entry.Dir != dir {
		t.Errorf("Dir = %q, want %q", entry.Dir, dir)
	}

	if _, ok := LookupDataset(dir); !ok {
		t.Error("LookupDataset() not found by directory")
	}

	if _, ok := LookupDataset("other"); ok {
		t.Error("LookupDataset() found an unregistered dataset")
	}
}
