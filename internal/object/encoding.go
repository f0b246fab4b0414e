package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clumsy/internal/errors"
)

// Encode returns the canonical bytes of o: "kind len\0payload".
func Encode(o Object) []byte {
	payload := o.Payload()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %d\x00", o.Kind(), len(payload))
	buf.Write(payload)
	return buf.Bytes()
}

// HashOf returns the hash o is stored under.
func HashOf(o Object) Hash {
	return HashObject(o.Kind(), o.Payload())
}

func (b *Blob) Payload() []byte {
	return b.Content
}

// Payload encodes each entry as "mode name\0<raw hash>", in entry order.
func (t *Tree) Payload() []byte {
	var buf bytes.Buffer
	for _, e := range t.Entries {
		fmt.Fprintf(&buf, "%s %s\x00", e.Mode, e.Name)
		buf.Write(e.Hash.raw())
	}
	return buf.Bytes()
}

// Payload encodes a text header followed by a blank line and the message:
//
//	tree H
//	parent H      (root commits omit this line)
//	author N <E> unix +zone
//	committer N <E> unix +zone
//
//	message
func (c *Commit) Payload() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	if c.HasParent() {
		fmt.Fprintf(&buf, "parent %s\n", c.Parent)
	}
	fmt.Fprintf(&buf, "author %s\n", formatSignature(c.Author))
	fmt.Fprintf(&buf, "committer %s\n", formatSignature(c.Committer))
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

func formatSignature(s Signature) string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format("-0700"))
}

// Parse splits stored bytes into envelope and payload. It does not decode the
// payload.
func Parse(h Hash, data []byte) (*RawObject, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return nil, errors.Encoding("object "+h.String(), "missing header terminator")
	}
	kind, size, ok := strings.Cut(string(data[:nul]), " ")
	if !ok {
		return nil, errors.Encoding("object "+h.String(), "invalid header %q", data[:nul])
	}
	n, err := strconv.Atoi(size)
	if err != nil || n < 0 {
		return nil, errors.Encoding("object "+h.String(), "invalid length %q", size)
	}
	payload := data[nul+1:]
	if len(payload) != n {
		return nil, errors.Encoding("object "+h.String(), "length mismatch (header=%d, actual=%d)", n, len(payload))
	}
	return &RawObject{Hash: h, Kind: Kind(kind), Payload: payload}, nil
}

// Decode classifies raw by its kind tag and parses the payload.
func Decode(raw *RawObject) (Object, error) {
	switch raw.Kind {
	case KindBlob:
		content := make([]byte, len(raw.Payload))
		copy(content, raw.Payload)
		return &Blob{Content: content}, nil
	case KindTree:
		return decodeTree(raw)
	case KindCommit:
		return decodeCommit(raw)
	default:
		return nil, errors.Encoding("object "+raw.Hash.String(), "unknown kind %q", raw.Kind)
	}
}

func decodeTree(raw *RawObject) (*Tree, error) {
	subject := "tree " + raw.Hash.String()
	t := &Tree{}
	seen := make(map[string]bool)
	data := raw.Payload
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, errors.Encoding(subject, "entry %d: missing mode", len(t.Entries))
		}
		mode, err := ParseMode(string(data[:sp]))
		if err != nil {
			return nil, errors.Encoding(subject, "entry %d: %v", len(t.Entries), err)
		}
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, errors.Encoding(subject, "entry %d: missing name terminator", len(t.Entries))
		}
		name := string(data[:nul])
		if err := ValidateName(name); err != nil {
			return nil, errors.Encoding(subject, "entry %d: %v", len(t.Entries), err)
		}
		if seen[name] {
			return nil, errors.Encoding(subject, "duplicate entry %q", name)
		}
		seen[name] = true
		data = data[nul+1:]

		if len(data) < HashSize {
			return nil, errors.Encoding(subject, "entry %q: truncated hash", name)
		}
		t.Entries = append(t.Entries, TreeEntry{
			Mode: mode,
			Name: name,
			Hash: Hash(fmt.Sprintf("%x", data[:HashSize])),
		})
		data = data[HashSize:]
	}
	return t, nil
}

func decodeCommit(raw *RawObject) (*Commit, error) {
	subject := "commit " + raw.Hash.String()
	idx := bytes.Index(raw.Payload, []byte("\n\n"))
	if idx < 0 {
		return nil, errors.Encoding(subject, "missing header/message separator")
	}

	c := &Commit{Message: string(raw.Payload[idx+2:])}
	var haveAuthor, haveCommitter bool
	for _, line := range strings.Split(string(raw.Payload[:idx]), "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, errors.Encoding(subject, "malformed header line %q", line)
		}
		switch key {
		case "tree":
			h, err := ParseHash(val)
			if err != nil {
				return nil, errors.Encoding(subject, "tree: %v", err)
			}
			c.Tree = h
		case "parent":
			if c.HasParent() {
				return nil, errors.Encoding(subject, "more than one parent")
			}
			h, err := ParseHash(val)
			if err != nil {
				return nil, errors.Encoding(subject, "parent: %v", err)
			}
			c.Parent = h
		case "author":
			sig, err := parseSignature(val)
			if err != nil {
				return nil, errors.Encoding(subject, "author: %v", err)
			}
			c.Author, haveAuthor = sig, true
		case "committer":
			sig, err := parseSignature(val)
			if err != nil {
				return nil, errors.Encoding(subject, "committer: %v", err)
			}
			c.Committer, haveCommitter = sig, true
		default:
			return nil, errors.Encoding(subject, "unknown header key %q", key)
		}
	}
	if c.Tree == "" || !haveAuthor || !haveCommitter {
		return nil, errors.Encoding(subject, "missing tree, author or committer")
	}
	return c, nil
}

// parseSignature parses "Name <email> unix +zone".
func parseSignature(s string) (Signature, error) {
	lt := strings.LastIndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("invalid signature %q", s)
	}
	sig := Signature{
		Name:  strings.TrimSuffix(s[:lt], " "),
		Email: s[lt+1 : gt],
	}

	fields := strings.Fields(s[gt+1:])
	if len(fields) != 2 {
		return Signature{}, fmt.Errorf("invalid signature time %q", s[gt+1:])
	}
	sec, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid timestamp %q: %w", fields[0], err)
	}
	zone, err := time.Parse("-0700", fields[1])
	if err != nil {
		return Signature{}, fmt.Errorf("invalid timezone %q: %w", fields[1], err)
	}
	_, offset := zone.Zone()

	loc := time.UTC
	if offset != 0 {
		loc = time.FixedZone("", offset)
	}
	sig.When = time.Unix(sec, 0).In(loc)
	return sig, nil
}

// ValidateName reports whether name can be stored as a tree entry name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty name")
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("name %q contains '/' or NUL", name)
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	}
	return nil
}

// ValidateSignature reports whether s can be encoded in a commit header.
func ValidateSignature(s Signature) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(s.Email) == "" {
		return fmt.Errorf("email is required")
	}
	if strings.ContainsAny(s.Name, "<>\n") || strings.ContainsAny(s.Email, "<>\n") {
		return fmt.Errorf("name and email must not contain '<', '>' or newlines")
	}
	return nil
}
