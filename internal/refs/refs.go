// Package refs binds names to commit hashes. HEAD holds the name of the
// current branch ref ("ref: refs/heads/<branch>"); each ref holds a hash.
package refs

import (
	stderrors "errors"
	"fmt"
	"strings"

	"clumsy/internal/errors"
	"clumsy/internal/object"
	"clumsy/internal/storage"
)

const (
	Head          = "HEAD"
	DefaultBranch = "master"

	headPrefix = "ref: "
)

// BranchRef returns the full ref name of a branch.
func BranchRef(branch string) string {
	return "refs/heads/" + branch
}

type Store struct {
	backend storage.Backend
}

func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Init points HEAD at branch. The branch ref itself stays unset until the
// first commit advances it.
func (s *Store) Init(branch string) error {
	if strings.TrimSpace(branch) == "" || strings.ContainsAny(branch, " \n") {
		return errors.ValidationError(fmt.Sprintf("invalid branch name %q", branch), nil)
	}
	ref := BranchRef(branch)
	if err := s.backend.WriteBytes(Head, []byte(headPrefix+ref+"\n")); err != nil {
		return errors.IO("write", Head, err)
	}
	return nil
}

// CurrentRef returns the ref name HEAD indirects to.
func (s *Store) CurrentRef() (string, error) {
	data, err := s.backend.ReadBytes(Head)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotExist) {
			return "", errors.RefNotFound(Head)
		}
		return "", errors.IO("read", Head, err)
	}

	content := strings.TrimRight(string(data), "\n")
	ref, ok := strings.CutPrefix(content, headPrefix)
	if !ok || !strings.HasPrefix(ref, "refs/") {
		return "", errors.Encoding("HEAD", "invalid content %q", content)
	}
	return ref, nil
}

// Resolve returns the commit hash name points to. Short branch names are
// looked up under refs/heads/.
func (s *Store) Resolve(name string) (object.Hash, error) {
	ref := qualify(name)
	data, err := s.backend.ReadBytes(ref)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotExist) {
			return "", errors.RefNotFound(ref)
		}
		return "", errors.IO("read", ref, err)
	}

	h, err := object.ParseHash(strings.TrimRight(string(data), "\n"))
	if err != nil {
		return "", errors.Encoding("ref "+ref, "%v", err)
	}
	return h, nil
}

// ResolveHead returns the current ref and the hash it points to.
func (s *Store) ResolveHead() (string, object.Hash, error) {
	ref, err := s.CurrentRef()
	if err != nil {
		return "", "", err
	}
	h, err := s.Resolve(ref)
	if err != nil {
		return ref, "", err
	}
	return ref, h, nil
}

// Advance sets name to h unconditionally; the last write wins.
func (s *Store) Advance(name string, h object.Hash) error {
	if !h.Valid() {
		return errors.Encoding("hash", "%q is not a valid object hash", h)
	}
	ref := qualify(name)
	if err := s.backend.WriteBytes(ref, []byte(h.String()+"\n")); err != nil {
		return errors.IO("write", ref, err)
	}
	return nil
}

func qualify(name string) string {
	if strings.HasPrefix(name, "refs/") {
		return name
	}
	return BranchRef(name)
}
