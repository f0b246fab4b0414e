package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant of a stored object.
type Kind string

const (
	KindBlob   Kind = "blob"
	KindTree   Kind = "tree"
	KindCommit Kind = "commit"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBlob, KindTree, KindCommit:
		return true
	}
	return false
}

// Mode is the Git-style file mode recorded for a tree or index entry.
type Mode uint32

const (
	ModeFile       Mode = 0o100644
	ModeExecutable Mode = 0o100755
)

func (m Mode) String() string {
	return strconv.FormatUint(uint64(m), 8)
}

// ParseMode parses an octal mode string such as "100644".
func ParseMode(s string) (Mode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", s, err)
	}
	m := Mode(v)
	if m != ModeFile && m != ModeExecutable {
		return 0, fmt.Errorf("unsupported mode %q", s)
	}
	return m, nil
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Object is one of *Blob, *Tree or *Commit.
type Object interface {
	Kind() Kind
	// Payload returns the canonical payload bytes, without the envelope.
	Payload() []byte
}

// Blob holds raw file content.
type Blob struct {
	Content []byte
}

func (b *Blob) Kind() Kind { return KindBlob }

// TreeEntry is one named entry of a flat tree.
type TreeEntry struct {
	Mode Mode
	Name string
	Hash Hash
}

// Tree lists entries in a fixed order; names are unique.
type Tree struct {
	Entries []TreeEntry
}

func (t *Tree) Kind() Kind { return KindTree }

// Validate reports whether t encodes to a tree that decodes back unchanged.
func (t *Tree) Validate() error {
	seen := make(map[string]bool, len(t.Entries))
	for i, e := range t.Entries {
		if err := ValidateName(e.Name); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[e.Name] {
			return fmt.Errorf("duplicate entry %q", e.Name)
		}
		seen[e.Name] = true
		if e.Mode != ModeFile && e.Mode != ModeExecutable {
			return fmt.Errorf("entry %q: unsupported mode %s", e.Name, e.Mode)
		}
		if !e.Hash.Valid() {
			return fmt.Errorf("entry %q: invalid hash %q", e.Name, e.Hash)
		}
	}
	return nil
}

// canonicalTime reports whether t is what parsing its header encoding yields:
// whole seconds, no monotonic reading, UTC or an unnamed fixed zone.
func canonicalTime(t time.Time) bool {
	if t.Nanosecond() != 0 || t != t.Round(0) {
		return false
	}
	name, offset := t.Zone()
	if offset == 0 {
		return t.Location() == time.UTC
	}
	return name == "" && t.Location().String() == ""
}

// Find returns every entry named name, in tree order.
func (t *Tree) Find(name string) []TreeEntry {
	var out []TreeEntry
	for _, e := range t.Entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Signature identifies who made a commit and when.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Canonical truncates When to whole seconds in a fixed zone, the precision a
// commit header records.
func (s Signature) Canonical() Signature {
	_, offset := s.When.Zone()
	loc := time.UTC
	if offset != 0 {
		loc = time.FixedZone("", offset)
	}
	s.When = time.Unix(s.When.Unix(), 0).In(loc)
	return s
}

// Commit links a tree to at most one parent commit.
type Commit struct {
	Tree      Hash
	Parent    Hash // empty for a root commit
	Author    Signature
	Committer Signature
	Message   string
}

func (c *Commit) Kind() Kind { return KindCommit }

// Validate reports whether c encodes to a commit that decodes back unchanged.
func (c *Commit) Validate() error {
	if !c.Tree.Valid() {
		return fmt.Errorf("invalid tree hash %q", c.Tree)
	}
	if c.HasParent() && !c.Parent.Valid() {
		return fmt.Errorf("invalid parent hash %q", c.Parent)
	}
	for _, sig := range []struct {
		role string
		s    Signature
	}{{"author", c.Author}, {"committer", c.Committer}} {
		if err := ValidateSignature(sig.s); err != nil {
			return fmt.Errorf("invalid %s: %w", sig.role, err)
		}
		if !canonicalTime(sig.s.When) {
			return fmt.Errorf("%s time %s is not in canonical form", sig.role, sig.s.When)
		}
	}
	return nil
}

func (c *Commit) HasParent() bool {
	return c.Parent != ""
}

// Summary is the first line of the message.
func (c *Commit) Summary() string {
	line, _, _ := strings.Cut(c.Message, "\n")
	return line
}

// RawObject is a stored object whose envelope has been parsed but whose payload
// has not been decoded.
type RawObject struct {
	Hash    Hash
	Kind    Kind
	Payload []byte
}
