package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists retrieval statistics as a JSON object mapping
// source identifier to count. Saves are atomic: the mapping is written
// to a temporary file and renamed over the target, so a crash mid-save
// never leaves a truncated stats file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted mapping. A missing file yields an empty map.
func (f *FileStore) Load() (map[string]int, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int), nil
		}
		return nil, fmt.Errorf("reading stats file: %w", err)
	}

	stats := make(map[string]int)
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parsing stats file %s: %w", f.path, err)
	}
	for src, count := range stats {
		if count < 0 {
			return nil, fmt.Errorf("stats file %s: negative count %d for %q", f.path, count, src)
		}
	}
	return stats, nil
}

// Save writes the full mapping atomically.
func (f *FileStore) Save(stats map[string]int) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating stats directory: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stats-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp stats file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp stats file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp stats file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp stats file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing stats file: %w", err)
	}
	return nil
}
