package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clumsy/internal/object"
	"clumsy/internal/repo"
	"clumsy/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherStagesWrites(t *testing.T) {
	dir := t.TempDir()
	worktree, err := storage.NewDiskBackend(dir)
	require.NoError(t, err)

	r, err := repo.New(repo.Options{Store: storage.NewMemoryBackend(), Worktree: worktree})
	require.NoError(t, err)
	require.NoError(t, r.Init())

	w, err := New(dir, r, nil)
	require.NoError(t, err)
	defer w.Close()

	events := make(chan Event, 16)
	w.OnEvent = func(e Event) { events <- e }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))

	want := object.HashOf(&object.Blob{Content: []byte("hello")})
	deadline := time.After(5 * time.Second)
	for staged := false; !staged; {
		select {
		case e := <-events:
			require.NoError(t, e.Err)
			require.Equal(t, "a.txt", e.Path)
			// A create can be observed before the content lands.
			staged = e.Hash == want
		case <-deadline:
			t.Fatal("file was not staged")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	entries := r.Index()
	require.Len(t, entries, 1)
	assert.Equal(t, want, entries[0].Hash)
}

func TestShouldIgnore(t *testing.T) {
	w := &Watcher{ignore: map[string]bool{".clumsy": true}}

	tests := map[string]bool{
		"a.txt":       false,
		".clumsy":     true,
		"sub/file.go": true,
		"notes.txt~":  true,
		".a.txt.swp":  true,
		".#lock":      true,
		"":            true,
		"Makefile":    false,
	}
	for name, want := range tests {
		assert.Equal(t, want, w.ShouldIgnore(name), name)
	}
}
