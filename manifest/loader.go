package manifest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// LoadDir recursively loads every .hcl manifest below root and merges the
// results into one File.
func LoadDir(root string) (*File, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk manifest directory %s: %w", root, err)
	}
	if len(paths) == 0 {
		slog.Warn("No .hcl manifest files found in path.", "path", root)
	}

	merged := &File{}
	for _, path := range paths {
		f, err := Load(path)
		if err != nil {
			return nil, err
		}
		merged.Classes = append(merged.Classes, f.Classes...)
	}
	slog.Debug("Loaded manifest directory.", "path", root, "files", len(paths), "classes", len(merged.Classes))
	return merged, nil
}
