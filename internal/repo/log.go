package repo

import (
	stderrors "errors"
	"fmt"
	"iter"

	"clumsy/internal/errors"
	"clumsy/internal/object"
)

// LogEntry is one commit reached while walking history.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.Commit
}

// History walks the first-parent chain from the commit HEAD resolves to,
// newest first. Nothing is read until the sequence is ranged over, and each
// range starts again from the current HEAD. An unborn branch yields nothing.
//
// A commit reached twice ends the walk with an encoding error.
func (r *Repository) History() iter.Seq2[LogEntry, error] {
	return func(yield func(LogEntry, error) bool) {
		ref, err := r.refs.CurrentRef()
		if err != nil {
			yield(LogEntry{}, fmt.Errorf("log: %w", err))
			return
		}
		h, err := r.refs.Resolve(ref)
		if stderrors.Is(err, errors.ErrRefNotFound) {
			return
		}
		if err != nil {
			yield(LogEntry{}, fmt.Errorf("log: %w", err))
			return
		}
		r.walk(h, yield)
	}
}

// HistoryFrom is History starting at an explicit commit.
func (r *Repository) HistoryFrom(start object.Hash) iter.Seq2[LogEntry, error] {
	return func(yield func(LogEntry, error) bool) {
		r.walk(start, yield)
	}
}

func (r *Repository) walk(h object.Hash, yield func(LogEntry, error) bool) {
	seen := make(map[object.Hash]struct{})
	for h != "" {
		if _, ok := seen[h]; ok {
			yield(LogEntry{}, fmt.Errorf("log: %w",
				errors.Encoding("history", "commit %s reached twice", h.Short())))
			return
		}
		seen[h] = struct{}{}

		c, err := r.objects.ReadCommit(h)
		if err != nil {
			yield(LogEntry{}, fmt.Errorf("log: %w", err))
			return
		}
		if !yield(LogEntry{Hash: h, Commit: c}, nil) {
			return
		}
		h = c.Parent
	}
}

// Log collects History, newest first.
func (r *Repository) Log() ([]LogEntry, error) {
	var entries []LogEntry
	for e, err := range r.History() {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
