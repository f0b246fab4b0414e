package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend keeps every path as a key in a BadgerDB, namespaced by prefix.
type BadgerBackend struct {
	db     *badger.DB
	prefix string
}

func NewBadgerBackend(db *badger.DB, prefix string) *BadgerBackend {
	return &BadgerBackend{
		db:     db,
		prefix: prefix,
	}
}

// OpenBadger opens a database at dir. An empty dir opens an in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithNumVersionsToKeep(1).
			WithLogger(nil)
	} else {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		opts = badger.DefaultOptions(dir).
			WithNumVersionsToKeep(1).
			WithLoggingLevel(badger.WARNING)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func (s *BadgerBackend) makeKey(path string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, path))
}

func (s *BadgerBackend) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), fmt.Sprintf("%s:", s.prefix))
}

func (s *BadgerBackend) ReadBytes(path string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(path))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("reading %s: %w", path, ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (s *BadgerBackend) WriteBytes(path string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(path), data)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// List returns every stored path starting with prefix, in key order.
func (s *BadgerBackend) List(prefix string) ([]string, error) {
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		seek := s.makeKey(prefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = seek

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			paths = append(paths, s.stripPrefix(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}
	return paths, nil
}
