// Package repo ties the object store, index and refs into one repository
// value and implements staging, committing, history and restore on it.
//
// A Repository is not safe for concurrent use; callers sharing one across
// goroutines must serialize access themselves.
package repo

import (
	stderrors "errors"
	"fmt"
	"time"

	"clumsy/internal/errors"
	"clumsy/internal/index"
	"clumsy/internal/object"
	"clumsy/internal/refs"
	"clumsy/internal/storage"

	"go.uber.org/zap"
)

// Options configures a Repository
type Options struct {
	// Store holds objects, the index and refs.
	Store storage.Backend
	// Worktree is where staged files are read from and restored files written to.
	Worktree storage.Backend
	// Identity signs commits made through Commit. When is ignored.
	Identity  object.Signature
	Branch    string
	CacheSize int
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Repository exclusively owns its object store, index and ref store.
type Repository struct {
	store    storage.Backend
	worktree storage.Backend
	objects  *object.Store
	index    *index.Index
	refs     *refs.Store

	identity object.Signature
	branch   string
	now      func() time.Time
	logger   *zap.Logger
}

// New opens the repository persisted on opts.Store, loading its index.
// A fresh backend yields an uninitialized repository; call Init before use.
func New(opts Options) (*Repository, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store backend is required")
	}
	if opts.Worktree == nil {
		return nil, fmt.Errorf("worktree backend is required")
	}
	if opts.Branch == "" {
		opts.Branch = refs.DefaultBranch
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	objects, err := object.NewStore(opts.Store, object.Options{
		CacheSize: opts.CacheSize,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing object store: %w", err)
	}

	idx, err := index.Load(opts.Store)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	return &Repository{
		store:    opts.Store,
		worktree: opts.Worktree,
		objects:  objects,
		index:    idx,
		refs:     refs.NewStore(opts.Store),
		identity: opts.Identity,
		branch:   opts.Branch,
		now:      opts.Clock,
		logger:   opts.Logger,
	}, nil
}

// Init points HEAD at the configured branch and persists an empty index.
// Re-initializing an existing repository leaves it untouched.
func (r *Repository) Init() error {
	ref, err := r.refs.CurrentRef()
	if err == nil {
		r.logger.Debug("repository already initialized", zap.String("ref", ref))
		return nil
	}
	if !stderrors.Is(err, errors.ErrRefNotFound) {
		return fmt.Errorf("init: %w", err)
	}

	if err := r.refs.Init(r.branch); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := index.Save(r.store, r.index); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	r.logger.Info("initialized repository", zap.String("branch", r.branch))
	return nil
}

// Objects exposes the object store for plumbing commands.
func (r *Repository) Objects() *object.Store {
	return r.objects
}

// Refs exposes the ref store for plumbing commands.
func (r *Repository) Refs() *refs.Store {
	return r.refs
}

// Index returns the staged entries in tree order.
func (r *Repository) Index() []index.Entry {
	return r.index.Entries()
}

// Head returns the current ref and the commit it points to. The hash is empty
// before the first commit.
func (r *Repository) Head() (string, object.Hash, error) {
	ref, h, err := r.refs.ResolveHead()
	if err != nil && ref != "" && stderrors.Is(err, errors.ErrRefNotFound) {
		return ref, "", nil
	}
	return ref, h, err
}
