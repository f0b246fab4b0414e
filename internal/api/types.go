package api

import (
	"time"

	"clumsy/internal/object"
	"clumsy/internal/repo"
)

type StageRequest struct {
	Path string      `json:"path"`
	Mode object.Mode `json:"mode,omitempty"`
}

type HashResponse struct {
	Hash object.Hash `json:"hash"`
}

type CommitRequest struct {
	Message string     `json:"message"`
	Author  *Signature `json:"author,omitempty"`
}

type RestoreRequest struct {
	Commit object.Hash `json:"commit"`
	Path   string      `json:"path"`
}

type HeadResponse struct {
	Ref  string      `json:"ref"`
	Hash object.Hash `json:"hash,omitempty"`
}

type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when,omitempty"`
}

type Commit struct {
	Hash      object.Hash `json:"hash"`
	Tree      object.Hash `json:"tree"`
	Parent    object.Hash `json:"parent,omitempty"`
	Author    Signature   `json:"author"`
	Committer Signature   `json:"committer"`
	Message   string      `json:"message"`
}

type TreeEntry struct {
	Mode object.Mode `json:"mode"`
	Name string      `json:"name"`
	Hash object.Hash `json:"hash"`
}

// Object is the decoded form of any stored object. Only the fields of its
// kind are set.
type Object struct {
	Hash    object.Hash `json:"hash"`
	Kind    object.Kind `json:"kind"`
	Content []byte      `json:"content,omitempty"`
	Entries []TreeEntry `json:"entries,omitempty"`
	Commit  *Commit     `json:"commit,omitempty"`
}

type DiffResponse struct {
	Patch     string `json:"patch"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

func toSignature(s object.Signature) Signature {
	return Signature{Name: s.Name, Email: s.Email, When: s.When}
}

func toCommit(h object.Hash, c *object.Commit) Commit {
	return Commit{
		Hash:      h,
		Tree:      c.Tree,
		Parent:    c.Parent,
		Author:    toSignature(c.Author),
		Committer: toSignature(c.Committer),
		Message:   c.Message,
	}
}

func toTreeEntries(entries []object.TreeEntry) []TreeEntry {
	out := make([]TreeEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, TreeEntry{Mode: e.Mode, Name: e.Name, Hash: e.Hash})
	}
	return out
}

func toObject(h object.Hash, o object.Object) Object {
	out := Object{Hash: h, Kind: o.Kind()}
	switch v := o.(type) {
	case *object.Blob:
		out.Content = v.Content
	case *object.Tree:
		out.Entries = toTreeEntries(v.Entries)
	case *object.Commit:
		c := toCommit(h, v)
		out.Commit = &c
	}
	return out
}

func toLog(entries []repo.LogEntry) []Commit {
	out := make([]Commit, 0, len(entries))
	for _, e := range entries {
		out = append(out, toCommit(e.Hash, e.Commit))
	}
	return out
}
