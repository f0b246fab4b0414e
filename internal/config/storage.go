package config

import (
	"fmt"

	"clumsy/internal/storage"
)

// Backends are the opened store and worktree for a configuration.
type Backends struct {
	Store    storage.Backend
	Worktree storage.Backend

	closers []func() error
}

// Close releases the underlying databases.
func (b *Backends) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens the backends described by s.
func (s Storage) Open() (*Backends, error) {
	b := &Backends{}

	switch s.Backend {
	case BackendMemory:
		b.Store = storage.NewMemoryBackend()
		b.Worktree = storage.NewMemoryBackend()
		return b.compress(s)

	case BackendDisk:
		store, err := storage.NewDiskBackend(s.Path)
		if err != nil {
			return nil, err
		}
		b.Store = store

	case BackendBadger:
		db, err := storage.OpenBadger(s.Path)
		if err != nil {
			return nil, fmt.Errorf("opening badger store: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.Store = storage.NewBadgerBackend(db, "clumsy")

	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}

	worktree := s.Worktree
	if worktree == "" {
		worktree = "."
	}
	wt, err := storage.NewDiskBackend(worktree)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Worktree = wt

	return b.compress(s)
}

func (b *Backends) compress(s Storage) (*Backends, error) {
	if !s.Compress {
		return b, nil
	}
	cb, err := storage.NewCompressedBackend(b.Store, storage.DefaultCompressionOptions())
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("creating compressed backend: %w", err)
	}
	b.Store = cb
	b.closers = append(b.closers, cb.Close)
	return b, nil
}
