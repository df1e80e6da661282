package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// OverrideManager writes rule documents into an override directory, where
// they take precedence over the built-in set once edited
type OverrideManager struct {
	overrideDir string
}

// NewOverrideManager creates a new OverrideManager for overrideDir
func NewOverrideManager(overrideDir string) *OverrideManager {
	return &OverrideManager{overrideDir: overrideDir}
}

// Export writes every document (file name → content) into the override
// directory and returns the written paths in name order. Existing files are
// left untouched unless force is set.
func (m *OverrideManager) Export(docs map[string][]byte, force bool) ([]string, error) {
	if err := os.MkdirAll(m.overrideDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create override directory %s: %w", m.overrideDir, err)
	}

	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	if !force {
		for _, name := range names {
			path := filepath.Join(m.overrideDir, name)
			if _, err := os.Stat(path); err == nil {
				return nil, fmt.Errorf("override %s already exists", path)
			}
		}
	}

	written := make([]string, 0, len(names))
	for _, name := range names {
		if filepath.Base(name) != name {
			return written, fmt.Errorf("invalid document name %q", name)
		}
		path := filepath.Join(m.overrideDir, name)
		if err := atomicWrite(path, docs[name]); err != nil {
			return written, fmt.Errorf("failed to write override %s: %w", path, err)
		}
		written = append(written, path)
	}

	return written, nil
}

// Existing lists the override files already present, by document name
func (m *OverrideManager) Existing(docs map[string][]byte) []string {
	var present []string
	for name := range docs {
		if _, err := os.Stat(filepath.Join(m.overrideDir, name)); err == nil {
			present = append(present, name)
		}
	}
	sort.Strings(present)
	return present
}
