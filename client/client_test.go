package client

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clumsy/internal/api"
	"clumsy/internal/errors"
	"clumsy/internal/logging"
	"clumsy/internal/object"
	"clumsy/internal/repo"
	"clumsy/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupServer(t *testing.T) *Client {
	r, err := repo.New(repo.Options{
		Store:    storage.NewMemoryBackend(),
		Worktree: storage.NewMemoryBackend(),
		Identity: object.Signature{Name: "Client", Email: "client@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, r.Init())

	mux := http.NewServeMux()
	api.NewRepoHandler(r, logging.Wrap(zap.NewNop())).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestClient(t *testing.T) {
	c := setupServer(t)

	require.NoError(t, c.WriteFile("a.txt", []byte("hello")))
	blob, err := c.Stage("a.txt")
	require.NoError(t, err)
	first, err := c.Commit("c1")
	require.NoError(t, err)

	require.NoError(t, c.WriteFile("a.txt", []byte("world")))
	_, err = c.Stage("a.txt")
	require.NoError(t, err)
	second, err := c.Commit("c2")
	require.NoError(t, err)

	log, err := c.Log()
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, second, log[0].Hash)
	assert.Equal(t, first, log[1].Hash)

	require.NoError(t, c.Restore(first, "a.txt"))
	content, err := c.ReadFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	o, err := c.CatFile(blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(o.Content))

	err = c.Restore(first, "missing.txt")
	assert.True(t, stderrors.Is(err, errors.ErrPathNotFound))

	_, err = c.ReadFile("missing.txt")
	assert.True(t, stderrors.Is(err, errors.ErrIO))
}
