package object

import (
	stderrors "errors"
	"fmt"

	"clumsy/internal/errors"
	"clumsy/internal/storage"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Options configures Store behavior
type Options struct {
	CacheSize int // Number of raw objects to cache
	Logger    *zap.Logger
}

// Store is a write-once, content-addressed object store on top of a backend.
// Objects live at objects/ab/cdef... and are never rewritten once present.
type Store struct {
	backend storage.Backend
	cache   *lru.Cache[Hash, *RawObject]
	logger  *zap.Logger
}

func NewStore(backend storage.Backend, opts Options) (*Store, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	cache, err := lru.New[Hash, *RawObject](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	return &Store{
		backend: backend,
		cache:   cache,
		logger:  opts.Logger,
	}, nil
}

// Has reports whether an object is stored under h.
func (s *Store) Has(h Hash) (bool, error) {
	if s.cache.Contains(h) {
		return true, nil
	}
	_, err := s.backend.ReadBytes(h.path())
	if err == nil {
		return true, nil
	}
	if stderrors.Is(err, storage.ErrNotExist) {
		return false, nil
	}
	return false, errors.IO("read", h.path(), err)
}

// Write persists o under its own hash. Writing an object that already exists
// is a no-op. Trees and commits that would not decode back to o are rejected.
func (s *Store) Write(o Object) (Hash, error) {
	if err := validate(o); err != nil {
		return "", err
	}
	encoded := Encode(o)
	h := HashBytes(encoded)

	exists, err := s.Has(h)
	if err != nil {
		return "", err
	}
	if exists {
		s.logger.Debug("object already stored", zap.String("hash", h.String()))
		return h, nil
	}

	if err := s.backend.WriteBytes(h.path(), encoded); err != nil {
		return "", errors.IO("write", h.path(), err)
	}
	s.logger.Debug("object written",
		zap.String("hash", h.String()),
		zap.String("kind", string(o.Kind())),
		zap.Int("size", len(encoded)))

	raw, err := Parse(h, encoded)
	if err == nil {
		s.cache.Add(h, raw)
	}
	return h, nil
}

// Read loads the object stored under h and verifies its hash.
func (s *Store) Read(h Hash) (*RawObject, error) {
	if !h.Valid() {
		return nil, errors.Encoding("hash", "%q is not a valid object hash", h)
	}
	if raw, ok := s.cache.Get(h); ok {
		return raw, nil
	}

	data, err := s.backend.ReadBytes(h.path())
	if err != nil {
		if stderrors.Is(err, storage.ErrNotExist) {
			return nil, errors.ObjectNotFound(h.String())
		}
		return nil, errors.IO("read", h.path(), err)
	}

	if got := HashBytes(data); got != h {
		return nil, errors.Encoding("object "+h.String(), "content hash mismatch (got %s)", got)
	}

	raw, err := Parse(h, data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(h, raw)
	return raw, nil
}

// ReadObject reads and decodes the object stored under h.
func (s *Store) ReadObject(h Hash) (Object, error) {
	raw, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	o, err := s.readKind(h, KindBlob)
	if err != nil {
		return nil, err
	}
	return o.(*Blob), nil
}

func (s *Store) ReadTree(h Hash) (*Tree, error) {
	o, err := s.readKind(h, KindTree)
	if err != nil {
		return nil, err
	}
	return o.(*Tree), nil
}

func (s *Store) ReadCommit(h Hash) (*Commit, error) {
	o, err := s.readKind(h, KindCommit)
	if err != nil {
		return nil, err
	}
	return o.(*Commit), nil
}

func (s *Store) readKind(h Hash, want Kind) (Object, error) {
	o, err := s.ReadObject(h)
	if err != nil {
		return nil, err
	}
	if o.Kind() != want {
		return nil, errors.TypeMismatch(h.String(), string(want), string(o.Kind()))
	}
	return o, nil
}

func validate(o Object) error {
	switch o := o.(type) {
	case *Tree:
		if err := o.Validate(); err != nil {
			return errors.ValidationError("invalid tree: "+err.Error(), nil)
		}
	case *Commit:
		if err := o.Validate(); err != nil {
			return errors.ValidationError("invalid commit: "+err.Error(), nil)
		}
	}
	return nil
}
