// Package storage provides the byte-store capability the engine runs on.
// The engine only depends on Backend; the concrete medium is chosen at wiring time.
package storage

import (
	"io/fs"
)

// ErrNotExist is wrapped by ReadBytes when nothing is stored under a path.
var ErrNotExist = fs.ErrNotExist

// Backend reads and writes whole byte slices addressed by slash-separated paths.
type Backend interface {
	ReadBytes(path string) ([]byte, error)
	// WriteBytes overwrites any existing content at path.
	WriteBytes(path string, data []byte) error
}

// Lister is implemented by backends that can enumerate their paths.
type Lister interface {
	List(prefix string) ([]string, error)
}
