package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Entry is a backup root found on disk.
type Entry struct {
	Root     string
	Manifest *Manifest
}

// List returns the backup roots under base, newest first. Roots without a
// readable manifest are still listed with a nil Manifest.
func List(base string) ([]Entry, error) {
	dirs, err := os.ReadDir(base)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", base, err)
	}

	var entries []Entry
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		root := filepath.Join(base, d.Name())
		e := Entry{Root: root}
		if m, err := ReadManifest(root); err == nil {
			e.Manifest = m
		}
		entries = append(entries, e)
	}

	// Root names are timestamps, so name order is time order.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Root > entries[j].Root })
	return entries, nil
}

// ReadManifest reads the manifest of a backup root.
func ReadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest in %s: %w", root, err)
	}
	return &m, nil
}
