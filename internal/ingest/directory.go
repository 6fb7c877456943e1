package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// CollectDir reads every regular file under root into batch items, in walk
// order. Files with unsupported extensions are still returned so the pipeline
// reports them as skipped. Unreadable entries are counted and the walk continues.
func CollectDir(root string, skipHidden bool) ([]Item, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		items []Item
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		stats.Scanned++
		if AllowedFile(path) {
			stats.Matched++
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.Failed++
			return nil
		}
		name, err := filepath.Rel(root, path)
		if err != nil {
			name = filepath.Base(path)
		}
		items = append(items, Item{Filename: name, Data: data})
		return nil
	})
	if err != nil {
		return items, stats, fmt.Errorf("walk: %w", err)
	}
	return items, stats, nil
}
