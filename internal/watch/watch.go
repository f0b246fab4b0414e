// Package watch stages worktree files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clumsy/internal/object"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Stager is the part of a repository the watcher drives.
type Stager interface {
	StageFile(path string) (object.Hash, error)
}

// Event reports the outcome of staging one file.
type Event struct {
	Path string
	Hash object.Hash
	Err  error
}

// Watcher stages regular files created or written in the top level of
// root. StageFile is only ever called from the goroutine running Run.
type Watcher struct {
	root    string
	stager  Stager
	watcher *fsnotify.Watcher
	ignore  map[string]bool
	logger  *zap.Logger

	// OnEvent, when set, is called after each staging attempt.
	OnEvent func(Event)
}

func New(root string, stager Stager, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}

	return &Watcher{
		root:    root,
		stager:  stager,
		watcher: watcher,
		ignore: map[string]bool{
			".git":    true,
			".clumsy": true,
		},
		logger: logger,
	}, nil
}

// Run processes filesystem events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	name, err := filepath.Rel(w.root, event.Name)
	if err != nil || w.ShouldIgnore(name) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	h, err := w.stager.StageFile(name)
	if err != nil {
		w.logger.Warn("auto-stage failed", zap.String("path", name), zap.Error(err))
	} else {
		w.logger.Info("auto-staged", zap.String("path", name), zap.String("hash", h.Short()))
	}
	if w.OnEvent != nil {
		w.OnEvent(Event{Path: name, Hash: h, Err: err})
	}
}

// ShouldIgnore reports whether name is outside the flat worktree namespace
// or is an editor scratch file.
func (w *Watcher) ShouldIgnore(name string) bool {
	if name == "" || name == "." || strings.ContainsRune(name, filepath.Separator) {
		return true
	}
	if w.ignore[name] {
		return true
	}
	return strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, ".#")
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
