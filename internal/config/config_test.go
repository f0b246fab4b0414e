package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		path := writeFile(t, "config.json", `{
			"server": {"host": "0.0.0.0", "port": 9000},
			"storage": {"backend": "badger", "path": "/var/lib/clumsy", "compress": true},
			"log_level": "debug"
		}`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
		assert.Equal(t, BackendBadger, cfg.Storage.Backend)
		assert.True(t, cfg.Storage.Compress)
		assert.Equal(t, "debug", cfg.LogLevel)
		// Unset fields keep their defaults.
		assert.Equal(t, 256, cfg.Storage.CacheSize)
		assert.Equal(t, "master", cfg.Branch)
	})

	t.Run("TOML", func(t *testing.T) {
		path := writeFile(t, "clumsy.toml", `
branch = "main"

[storage]
backend = "memory"

[author]
name = "Ada"
email = "ada@example.com"
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "main", cfg.Branch)
		assert.Equal(t, BackendMemory, cfg.Storage.Backend)
		assert.Equal(t, "Ada", cfg.Author.Name)
		assert.Equal(t, "ada@example.com", cfg.Author.Email)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		path := writeFile(t, "config.json", `{"storage": {"backend": "s3"}}`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "unknown storage backend")
	})

	t.Run("Malformed", func(t *testing.T) {
		path := writeFile(t, "config.toml", "branch = ")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.True(t, os.IsNotExist(err))

		cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
}

func TestPath(t *testing.T) {
	t.Setenv("CLUMSY_ENV", "")
	assert.Equal(t, "config/config.development.json", Path())

	t.Setenv("CLUMSY_ENV", "production")
	assert.Equal(t, "config/config.production.json", Path())
}

func TestOpenStorage(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		b, err := Storage{Backend: BackendMemory, Compress: true}.Open()
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, b.Store.WriteBytes("HEAD", []byte("ref: refs/heads/master\n")))
		data, err := b.Store.ReadBytes("HEAD")
		require.NoError(t, err)
		assert.Equal(t, "ref: refs/heads/master\n", string(data))
	})

	t.Run("Badger", func(t *testing.T) {
		dir := t.TempDir()
		b, err := Storage{
			Backend:  BackendBadger,
			Path:     filepath.Join(dir, "db"),
			Worktree: filepath.Join(dir, "work"),
		}.Open()
		require.NoError(t, err)

		require.NoError(t, b.Worktree.WriteBytes("a.txt", []byte("hello")))
		_, err = os.Stat(filepath.Join(dir, "work", "a.txt"))
		assert.NoError(t, err)
		require.NoError(t, b.Close())
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Storage{Backend: "tape"}.Open()
		assert.Error(t, err)
	})
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".clumsy"), 0755))

	found, err := FindRoot(nested, ".clumsy")
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = FindRoot(nested, ".does-not-exist")
	assert.ErrorIs(t, err, ErrNoRoot)

	s := Default().Storage
	s.Anchor("/repo")
	assert.Equal(t, "/repo/.clumsy", s.Path)
	assert.Equal(t, "/repo", s.Worktree)
}
