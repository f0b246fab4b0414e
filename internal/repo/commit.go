package repo

import (
	stderrors "errors"
	"fmt"

	"clumsy/internal/errors"
	"clumsy/internal/index"
	"clumsy/internal/object"

	"go.uber.org/zap"
)

// BuildTree produces a tree whose entries are exactly the index entries, in
// index order. The referenced blobs are not written.
func BuildTree(idx *index.Index) *object.Tree {
	entries := idx.Entries()
	tree := &object.Tree{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, e := range entries {
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Mode: e.Mode,
			Name: e.Path,
			Hash: e.Hash,
		})
	}
	return tree
}

// BuildCommit assembles a commit. parent is empty for the first commit on a
// ref. Author and committer need a name and an email; their times are
// truncated to whole seconds.
func BuildCommit(tree, parent object.Hash, author, committer object.Signature, message string) (*object.Commit, error) {
	if !tree.Valid() {
		return nil, errors.ValidationError(fmt.Sprintf("invalid tree hash %q", tree), nil)
	}
	if parent != "" && !parent.Valid() {
		return nil, errors.ValidationError(fmt.Sprintf("invalid parent hash %q", parent), nil)
	}
	if err := object.ValidateSignature(author); err != nil {
		return nil, errors.ValidationError("invalid author: "+err.Error(), author)
	}
	if err := object.ValidateSignature(committer); err != nil {
		return nil, errors.ValidationError("invalid committer: "+err.Error(), committer)
	}

	return &object.Commit{
		Tree:      tree,
		Parent:    parent,
		Author:    author.Canonical(),
		Committer: committer.Canonical(),
		Message:   message,
	}, nil
}

// Commit snapshots the index as a new commit signed with the repository
// identity and advances the current ref to it.
func (r *Repository) Commit(message string) (object.Hash, error) {
	return r.CommitAs(message, r.identity, r.identity)
}

// CommitAs creates a new commit from the index:
//
//  1. Build the tree from the index and write it
//  2. Resolve the current ref to get the parent (absent before the first commit)
//  3. Build the commit and write it
//  4. Advance the current ref to the new commit
//
// The steps are not atomic. A failure leaves written objects in place and the
// ref where it was; retrying is safe.
func (r *Repository) CommitAs(message string, author, committer object.Signature) (object.Hash, error) {
	now := r.now()
	if author.When.IsZero() {
		author.When = now
	}
	if committer.When.IsZero() {
		committer.When = now
	}

	// 1. Tree.
	treeHash, err := r.objects.Write(BuildTree(r.index))
	if err != nil {
		return "", fmt.Errorf("commit: write tree: %w", err)
	}

	// 2. Parent.
	ref, err := r.refs.CurrentRef()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	parent, err := r.refs.Resolve(ref)
	if err != nil && !stderrors.Is(err, errors.ErrRefNotFound) {
		return "", fmt.Errorf("commit: resolve %s: %w", ref, err)
	}

	// 3. Commit object.
	commit, err := BuildCommit(treeHash, parent, author, committer, message)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	commitHash, err := r.objects.Write(commit)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}

	// 4. Advance.
	if err := r.refs.Advance(ref, commitHash); err != nil {
		return "", fmt.Errorf("commit: update ref %s: %w", ref, err)
	}

	r.logger.Info("created commit",
		zap.String("hash", commitHash.String()),
		zap.String("ref", ref),
		zap.String("parent", parent.String()),
		zap.Int("entries", r.index.Len()))
	return commitHash, nil
}
