// Package index implements the staging area: an ordered path -> (hash, mode)
// mapping that the next commit's tree is built from.
package index

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"clumsy/internal/errors"
	"clumsy/internal/object"
	"clumsy/internal/storage"
)

// Path is where the index is persisted on the repository backend.
const Path = "index"

const version = 1

// Entry is the staged state of a single path.
type Entry struct {
	Path string      `json:"path"`
	Hash object.Hash `json:"hash"`
	Mode object.Mode `json:"mode"`
}

// Index keeps entries in first-staged order with unique paths.
type Index struct {
	entries []Entry
	pos     map[string]int
}

func New() *Index {
	return &Index{pos: make(map[string]int)}
}

// Stage maps path to (hash, mode). An existing entry is replaced in place,
// keeping its position; a new path is appended.
func (idx *Index) Stage(path string, hash object.Hash, mode object.Mode) {
	e := Entry{Path: path, Hash: hash, Mode: mode}
	if i, ok := idx.pos[path]; ok {
		idx.entries[i] = e
		return
	}
	idx.pos[path] = len(idx.entries)
	idx.entries = append(idx.entries, e)
}

// Entries returns a copy of the staged entries in tree order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

func (idx *Index) Lookup(path string) (Entry, bool) {
	i, ok := idx.pos[path]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[i], true
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

type indexFile struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// Load reads the persisted index. A repository that never saved one has an
// empty index.
func Load(b storage.Backend) (*Index, error) {
	data, err := b.ReadBytes(Path)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotExist) {
			return New(), nil
		}
		return nil, errors.IO("read", Path, err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Encoding("index", "%v", err)
	}
	if f.Version != version {
		return nil, errors.Encoding("index", "unsupported version %d", f.Version)
	}

	idx := New()
	for _, e := range f.Entries {
		if _, dup := idx.pos[e.Path]; dup {
			return nil, errors.Encoding("index", "duplicate path %q", e.Path)
		}
		if err := object.ValidateName(e.Path); err != nil {
			return nil, errors.Encoding("index", "entry %d: %v", len(idx.entries), err)
		}
		if e.Mode != object.ModeFile && e.Mode != object.ModeExecutable {
			return nil, errors.Encoding("index", "entry %q: missing mode", e.Path)
		}
		if !e.Hash.Valid() {
			return nil, errors.Encoding("index", "entry %q: invalid hash %q", e.Path, e.Hash)
		}
		idx.Stage(e.Path, e.Hash, e.Mode)
	}
	return idx, nil
}

// Save persists idx. Staging without saving is lost when the process exits.
func Save(b storage.Backend, idx *Index) error {
	data, err := json.MarshalIndent(indexFile{Version: version, Entries: idx.Entries()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if err := b.WriteBytes(Path, data); err != nil {
		return errors.IO("write", Path, err)
	}
	return nil
}
