package benchgen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the benchmark file name for combination size n.
func FileName(n int) string {
	return fmt.Sprintf("valid_queries_%d_features.json", n)
}

// WriteEntries persists the entries for size n under dir and returns the path.
func WriteEntries(dir string, n int, entries []Entry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode entries: %w", err)
	}
	path := filepath.Join(dir, FileName(n))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadEntries loads a benchmark file written by WriteEntries.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}
