package repo

import (
	stderrors "errors"
	"fmt"

	"clumsy/internal/diff"
	"clumsy/internal/errors"
	"clumsy/internal/object"
	"clumsy/internal/storage"

	"go.uber.org/zap"
)

// Restore writes the content path had at commit back into the worktree.
// Every matching blob is read before anything is written, so a failure
// leaves the worktree untouched. A path absent from the commit's tree is a
// PathNotFound error.
func (r *Repository) Restore(commit object.Hash, path string) error {
	entries, err := r.entriesAt(commit, path)
	if err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}

	blobs := make([]*object.Blob, 0, len(entries))
	for _, e := range entries {
		blob, err := r.objects.ReadBlob(e.Hash)
		if err != nil {
			return fmt.Errorf("restore %s: %w", path, err)
		}
		blobs = append(blobs, blob)
	}

	for i, e := range entries {
		if err := r.worktree.WriteBytes(e.Name, blobs[i].Content); err != nil {
			return fmt.Errorf("restore %s: %w", path, errors.IO("write", e.Name, err))
		}
	}

	r.logger.Debug("restored file",
		zap.String("path", path),
		zap.String("commit", commit.String()))
	return nil
}

// ReadFileAt returns the content path had at commit.
func (r *Repository) ReadFileAt(commit object.Hash, path string) ([]byte, error) {
	entries, err := r.entriesAt(commit, path)
	if err != nil {
		return nil, err
	}
	blob, err := r.objects.ReadBlob(entries[0].Hash)
	if err != nil {
		return nil, err
	}
	return blob.Content, nil
}

func (r *Repository) entriesAt(commit object.Hash, path string) ([]object.TreeEntry, error) {
	tree, err := r.treeOf(commit)
	if err != nil {
		return nil, err
	}
	entries := tree.Find(path)
	if len(entries) == 0 {
		return nil, errors.PathNotFound(commit.String(), path)
	}
	return entries, nil
}

func (r *Repository) treeOf(commit object.Hash) (*object.Tree, error) {
	c, err := r.objects.ReadCommit(commit)
	if err != nil {
		return nil, err
	}
	return r.objects.ReadTree(c.Tree)
}

// LsTree lists the tree of commit.
func (r *Repository) LsTree(commit object.Hash) ([]object.TreeEntry, error) {
	tree, err := r.treeOf(commit)
	if err != nil {
		return nil, fmt.Errorf("ls-tree: %w", err)
	}
	return tree.Entries, nil
}

// CatFile reads and decodes any object.
func (r *Repository) CatFile(h object.Hash) (object.Object, error) {
	o, err := r.objects.ReadObject(h)
	if err != nil {
		return nil, fmt.Errorf("cat-file: %w", err)
	}
	return o, nil
}

// Diff compares path at commit with the worktree copy. A path missing on
// either side diffs as empty content.
func (r *Repository) Diff(commit object.Hash, path string, contextLines int) (*diff.Result, error) {
	before, err := r.ReadFileAt(commit, path)
	if err != nil && !stderrors.Is(err, errors.ErrPathNotFound) {
		return nil, fmt.Errorf("diff %s: %w", path, err)
	}

	after, err := r.worktree.ReadBytes(path)
	if err != nil && !stderrors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("diff %s: %w", path, errors.IO("read", path, err))
	}

	return diff.NewEngine(contextLines).Diff(before, after), nil
}
