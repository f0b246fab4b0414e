package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"clumsy/internal/errors"
)

// Hash is a 64-character lowercase hex SHA-256 digest of an object's canonical encoding.
type Hash string

// HashSize is the length of a raw digest in bytes.
const HashSize = sha256.Size

// HashBytes hashes already-encoded object bytes.
func HashBytes(encoded []byte) Hash {
	sum := sha256.Sum256(encoded)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the hash of the envelope "kind len\0payload" without
// materializing it.
func HashObject(kind Kind, payload []byte) Hash {
	h := sha256.New()
	fmt.Fprintf(h, "%s %d\x00", kind, len(payload))
	h.Write(payload)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// ParseHash validates s as a full object hash.
func ParseHash(s string) (Hash, error) {
	h := Hash(s)
	if !h.Valid() {
		return "", errors.Encoding("hash", "%q is not a %d-character hex digest", s, HashSize*2)
	}
	return h, nil
}

func (h Hash) Valid() bool {
	if len(h) != HashSize*2 {
		return false
	}
	for i := 0; i < len(h); i++ {
		c := h[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

// Short returns the abbreviated form used in log output.
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

func (h Hash) String() string {
	return string(h)
}

// raw decodes the hex digest. h must be valid.
func (h Hash) raw() []byte {
	b, _ := hex.DecodeString(string(h))
	return b
}

// path is where the object lives on a backend: objects/ab/cdef...
func (h Hash) path() string {
	return fmt.Sprintf("objects/%s/%s", h[:2], h[2:])
}
