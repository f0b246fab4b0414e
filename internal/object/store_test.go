package object

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"clumsy/internal/errors"
	"clumsy/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records writes so tests can observe idempotence.
type countingBackend struct {
	*storage.FSBackend
	writes map[string]int
	fail   error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{
		FSBackend: storage.NewMemoryBackend(),
		writes:    make(map[string]int),
	}
}

func (b *countingBackend) WriteBytes(path string, data []byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.writes[path]++
	return b.FSBackend.WriteBytes(path, data)
}

func (b *countingBackend) ReadBytes(path string) ([]byte, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	return b.FSBackend.ReadBytes(path)
}

func setupStore(t *testing.T) (*Store, *countingBackend) {
	backend := newCountingBackend()
	store, err := NewStore(backend, Options{CacheSize: 16})
	require.NoError(t, err)
	return store, backend
}

func TestStore(t *testing.T) {
	store, backend := setupStore(t)

	t.Run("WriteRead", func(t *testing.T) {
		h, err := store.Write(&Blob{Content: []byte("hello")})
		require.NoError(t, err)
		assert.Equal(t, helloHash, h)

		stored, err := backend.FSBackend.ReadBytes(fmt.Sprintf("objects/%s/%s", h[:2], h[2:]))
		require.NoError(t, err)
		assert.Equal(t, "blob 5\x00hello", string(stored))

		blob, err := store.ReadBlob(h)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), blob.Content)
	})

	t.Run("IdempotentWrite", func(t *testing.T) {
		tree := &Tree{Entries: []TreeEntry{{Mode: ModeFile, Name: "a.txt", Hash: helloHash}}}
		h1, err := store.Write(tree)
		require.NoError(t, err)
		before, err := backend.FSBackend.ReadBytes(h1.path())
		require.NoError(t, err)

		h2, err := store.Write(tree)
		require.NoError(t, err)
		after, err := backend.FSBackend.ReadBytes(h1.path())
		require.NoError(t, err)

		assert.Equal(t, h1, h2)
		assert.Equal(t, before, after)
		assert.Equal(t, 1, backend.writes[h1.path()])
	})

	t.Run("RoundTripThroughFreshStore", func(t *testing.T) {
		commit := &Commit{
			Tree:      helloHash,
			Author:    testSignature("Alice", 1700000000),
			Committer: testSignature("Alice", 1700000000),
			Message:   "init",
		}
		h, err := store.Write(commit)
		require.NoError(t, err)

		fresh, err := NewStore(backend, Options{})
		require.NoError(t, err)
		got, err := fresh.ReadCommit(h)
		require.NoError(t, err)
		assert.Equal(t, commit, got)
	})

	t.Run("ObjectNotFound", func(t *testing.T) {
		_, err := store.Read(HashOf(&Blob{Content: []byte("never written")}))
		assert.True(t, stderrors.Is(err, errors.ErrObjectNotFound))

		ok, err := store.Has(HashOf(&Blob{Content: []byte("never written")}))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InvalidHash", func(t *testing.T) {
		_, err := store.Read("not-a-hash")
		assert.True(t, stderrors.Is(err, errors.ErrEncoding))
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		_, err := store.ReadCommit(helloHash)
		assert.True(t, stderrors.Is(err, errors.ErrTypeMismatch))

		_, err = store.ReadTree(helloHash)
		assert.True(t, stderrors.Is(err, errors.ErrTypeMismatch))
	})
}

func TestStoreRejectsNonCanonical(t *testing.T) {
	store, backend := setupStore(t)

	trees := map[string]*Tree{
		"duplicate name": {Entries: []TreeEntry{
			{Mode: ModeFile, Name: "a.txt", Hash: helloHash},
			{Mode: ModeFile, Name: "a.txt", Hash: helloHash},
		}},
		"slash in name": {Entries: []TreeEntry{{Mode: ModeFile, Name: "dir/a.txt", Hash: helloHash}}},
		"short hash":    {Entries: []TreeEntry{{Mode: ModeFile, Name: "a.txt", Hash: "abc"}}},
		"zero mode":     {Entries: []TreeEntry{{Name: "a.txt", Hash: helloHash}}},
	}
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			_, err := store.Write(tree)
			assert.True(t, stderrors.Is(err, errors.ErrValidation), "got %v", err)
			assert.Empty(t, backend.writes[HashOf(tree).path()])
		})
	}

	eastern := time.FixedZone("EST", -5*3600)
	subSecond := time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC)

	times := map[string]time.Time{
		"sub-second":    subSecond,
		"named zone":    time.Unix(1700000000, 0).In(eastern),
		"local":         time.Unix(1700000000, 0).In(time.Local),
		"monotonic now": time.Now(),
	}
	for name, when := range times {
		t.Run(name, func(t *testing.T) {
			sig := Signature{Name: "Alice", Email: "alice@example.com", When: when}
			_, err := store.Write(&Commit{Tree: helloHash, Author: sig, Committer: testSignature("Bob", 1)})
			assert.True(t, stderrors.Is(err, errors.ErrValidation), "got %v", err)
		})
	}

	t.Run("CanonicalRoundTrips", func(t *testing.T) {
		when := time.Date(2024, 3, 1, 12, 0, 0, 500, eastern)
		sig := Signature{Name: "Alice", Email: "alice@example.com", When: when}.Canonical()
		assert.Equal(t, when.Unix(), sig.When.Unix())
		assert.Zero(t, sig.When.Nanosecond())

		commit := &Commit{Tree: helloHash, Author: sig, Committer: sig, Message: "m"}
		h, err := store.Write(commit)
		require.NoError(t, err)

		fresh, err := NewStore(backend, Options{})
		require.NoError(t, err)
		got, err := fresh.ReadCommit(h)
		require.NoError(t, err)
		assert.Equal(t, commit, got)
	})
}

func TestStoreCorruption(t *testing.T) {
	store, backend := setupStore(t)
	h := HashOf(&Blob{Content: []byte("hello")})

	t.Run("HashMismatch", func(t *testing.T) {
		require.NoError(t, backend.FSBackend.WriteBytes(h.path(), []byte("blob 5\x00HELLO")))
		_, err := store.Read(h)
		assert.True(t, stderrors.Is(err, errors.ErrEncoding))
	})

	t.Run("MalformedHeader", func(t *testing.T) {
		garbage := []byte("garbage without header")
		gh := HashBytes(garbage)
		require.NoError(t, backend.FSBackend.WriteBytes(gh.path(), garbage))
		_, err := store.Read(gh)
		assert.True(t, stderrors.Is(err, errors.ErrEncoding))
	})

	t.Run("UnknownKind", func(t *testing.T) {
		data := []byte("tag 3\x00abc")
		th := HashBytes(data)
		require.NoError(t, backend.FSBackend.WriteBytes(th.path(), data))

		raw, err := store.Read(th)
		require.NoError(t, err)
		_, err = Decode(raw)
		assert.True(t, stderrors.Is(err, errors.ErrEncoding))
	})
}

func TestStoreIOError(t *testing.T) {
	store, backend := setupStore(t)
	backend.fail = fs.ErrPermission

	_, err := store.Write(&Blob{Content: []byte("x")})
	assert.True(t, stderrors.Is(err, errors.ErrIO))
	assert.True(t, stderrors.Is(err, fs.ErrPermission))

	_, err = store.Read(helloHash)
	assert.True(t, stderrors.Is(err, errors.ErrIO))
}
