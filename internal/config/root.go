package config

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNoRoot is returned by FindRoot when no ancestor holds the marker.
var ErrNoRoot = errors.New("repository root not found")

// FindRoot walks up from startDir to the first directory containing marker.
func FindRoot(startDir, marker string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoRoot
		}
		dir = parent
	}
}

// Anchor resolves relative storage paths against root.
func (s *Storage) Anchor(root string) {
	if s.Path != "" && !filepath.IsAbs(s.Path) {
		s.Path = filepath.Join(root, s.Path)
	}
	if s.Worktree == "" {
		s.Worktree = "."
	}
	if !filepath.IsAbs(s.Worktree) {
		s.Worktree = filepath.Join(root, s.Worktree)
	}
}
