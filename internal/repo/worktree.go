package repo

import (
	"fmt"

	"clumsy/internal/errors"
	"clumsy/internal/storage"
)

// WriteFile writes content into the worktree. Nothing is staged.
func (r *Repository) WriteFile(path string, content []byte) error {
	if err := r.worktree.WriteBytes(path, content); err != nil {
		return errors.IO("write", path, err)
	}
	return nil
}

// ReadFile reads a file from the worktree.
func (r *Repository) ReadFile(path string) ([]byte, error) {
	data, err := r.worktree.ReadBytes(path)
	if err != nil {
		return nil, errors.IO("read", path, err)
	}
	return data, nil
}

// DumpEntry is one stored path and the size of what is stored there.
type DumpEntry struct {
	Area string // "store" or "worktree"
	Path string
	Size int
}

// Dump lists the contents of both backends. Backends that cannot enumerate
// their paths are skipped.
func (r *Repository) Dump() ([]DumpEntry, error) {
	var out []DumpEntry
	for _, area := range []struct {
		name    string
		backend storage.Backend
	}{
		{"store", r.store},
		{"worktree", r.worktree},
	} {
		lister, ok := area.backend.(storage.Lister)
		if !ok {
			continue
		}
		paths, err := lister.List("")
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", area.name, errors.IO("list", "", err))
		}
		for _, p := range paths {
			data, err := area.backend.ReadBytes(p)
			if err != nil {
				return nil, fmt.Errorf("dump %s: %w", area.name, errors.IO("read", p, err))
			}
			out = append(out, DumpEntry{Area: area.name, Path: p, Size: len(data)})
		}
	}
	return out, nil
}
