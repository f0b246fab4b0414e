package storage

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// FSBackend stores each path as a file on an afero filesystem.
type FSBackend struct {
	fs afero.Fs
}

// NewFSBackend wraps an arbitrary afero filesystem.
func NewFSBackend(fs afero.Fs) *FSBackend {
	return &FSBackend{fs: fs}
}

// NewMemoryBackend returns a backend that lives only in process memory.
func NewMemoryBackend() *FSBackend {
	return NewFSBackend(afero.NewMemMapFs())
}

// NewDiskBackend returns a backend rooted at dir on the local disk.
func NewDiskBackend(dir string) (*FSBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating backend directory: %w", err)
	}
	return NewFSBackend(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// key maps a backend path to an absolute path inside the filesystem.
func key(p string) string {
	return path.Join("/", p)
}

func (b *FSBackend) ReadBytes(p string) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, key(p))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

func (b *FSBackend) WriteBytes(p string, data []byte) error {
	k := key(p)
	if err := b.fs.MkdirAll(path.Dir(k), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", p, err)
	}
	if err := afero.WriteFile(b.fs, k, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}

// List returns every stored path starting with prefix, sorted.
func (b *FSBackend) List(prefix string) ([]string, error) {
	var paths []string
	err := afero.Walk(b.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(p, "/")
		if strings.HasPrefix(rel, prefix) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}
	sort.Strings(paths)
	return paths, nil
}
