package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clumsy/internal/errors"
	"clumsy/internal/logging"
	"clumsy/internal/object"
	"clumsy/internal/repo"
	"clumsy/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupHandler(t *testing.T) http.Handler {
	r, err := repo.New(repo.Options{
		Store:    storage.NewMemoryBackend(),
		Worktree: storage.NewMemoryBackend(),
		Identity: object.Signature{Name: "API", Email: "api@example.com"},
		Clock:    func() time.Time { return time.Unix(1700000000, 0).UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, r.Init())

	mux := http.NewServeMux()
	NewRepoHandler(r, logging.Wrap(zap.NewNop())).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}

	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func commit(t *testing.T, h http.Handler, path, content, message string) object.Hash {
	t.Helper()
	rec := do(t, h, "PUT", "/api/files/"+path, content)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, "POST", "/api/index", StageRequest{Path: path})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "POST", "/api/commits", CommitRequest{Message: message})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode[HashResponse](t, rec).Hash
}

func TestRepoHandler_CommitAndLog(t *testing.T) {
	h := setupHandler(t)
	c1 := commit(t, h, "a.txt", "hello", "c1")
	c2 := commit(t, h, "a.txt", "world", "c2")

	rec := do(t, h, "GET", "/api/log", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	log := decode[[]Commit](t, rec)
	require.Len(t, log, 2)
	assert.Equal(t, c2, log[0].Hash)
	assert.Equal(t, c1, log[0].Parent)
	assert.Equal(t, "c1", log[1].Message)
	assert.Empty(t, log[1].Parent)

	rec = do(t, h, "GET", "/api/head", nil)
	head := decode[HeadResponse](t, rec)
	assert.Equal(t, "refs/heads/master", head.Ref)
	assert.Equal(t, c2, head.Hash)
}

func TestRepoHandler_Restore(t *testing.T) {
	h := setupHandler(t)
	c1 := commit(t, h, "a.txt", "hello", "c1")
	commit(t, h, "a.txt", "world", "c2")

	tests := []struct {
		name       string
		req        RestoreRequest
		wantStatus int
		wantType   errors.ErrorType
	}{
		{
			name:       "existing path",
			req:        RestoreRequest{Commit: c1, Path: "a.txt"},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "missing path",
			req:        RestoreRequest{Commit: c1, Path: "missing.txt"},
			wantStatus: http.StatusNotFound,
			wantType:   errors.ErrorTypePathNotFound,
		},
		{
			name:       "unknown commit",
			req:        RestoreRequest{Commit: object.HashOf(&object.Blob{}), Path: "a.txt"},
			wantStatus: http.StatusNotFound,
			wantType:   errors.ErrorTypeObjectNotFound,
		},
		{
			name:       "malformed hash",
			req:        RestoreRequest{Commit: "abc", Path: "a.txt"},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   errors.ErrorTypeEncoding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/restore", tt.req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				body := decode[errors.Error](t, rec)
				assert.Equal(t, tt.wantType, body.Type)
				assert.Equal(t, tt.wantStatus, body.Code)
			}
		})
	}

	rec := do(t, h, "GET", "/api/files/a.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestRepoHandler_Plumbing(t *testing.T) {
	h := setupHandler(t)
	c := commit(t, h, "a.txt", "one\ntwo\n", "init")

	rec := do(t, h, "GET", "/api/commits/"+c.String()+"/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]TreeEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, object.ModeFile, entries[0].Mode)

	rec = do(t, h, "GET", "/api/objects/"+entries[0].Hash.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blob := decode[Object](t, rec)
	assert.Equal(t, object.KindBlob, blob.Kind)
	assert.Equal(t, "one\ntwo\n", string(blob.Content))

	rec = do(t, h, "GET", "/api/objects/"+c.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	obj := decode[Object](t, rec)
	require.NotNil(t, obj.Commit)
	assert.Equal(t, "init", obj.Commit.Message)

	do(t, h, "PUT", "/api/files/a.txt", "one\n2\n")
	rec = do(t, h, "GET", "/api/commits/"+c.String()+"/diff/a.txt?context=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[DiffResponse](t, rec)
	assert.Equal(t, 1, d.Additions)
	assert.Equal(t, 1, d.Deletions)
	assert.True(t, strings.HasPrefix(d.Patch, "@@ -2,1 +2,1 @@"))

	rec = do(t, h, "GET", "/api/commits/"+c.String()+"/diff/a.txt?context=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRepoHandler_BadRequests(t *testing.T) {
	h := setupHandler(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       any
		wantStatus int
	}{
		{"stage missing file", "POST", "/api/index", StageRequest{Path: "nope.txt"}, http.StatusInternalServerError},
		{"stage bad mode", "POST", "/api/index", `{"path": "a.txt", "mode": "120000"}`, http.StatusBadRequest},
		{"commit without message", "POST", "/api/commits", CommitRequest{}, http.StatusBadRequest},
		{"commit bad author", "POST", "/api/commits", CommitRequest{Message: "m", Author: &Signature{Name: "x"}}, http.StatusBadRequest},
		{"invalid json", "POST", "/api/restore", "{", http.StatusBadRequest},
		{"unknown object", "GET", "/api/objects/" + object.HashOf(&object.Blob{}).String(), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestNewServer(t *testing.T) {
	r, err := repo.New(repo.Options{Store: storage.NewMemoryBackend(), Worktree: storage.NewMemoryBackend()})
	require.NoError(t, err)
	srv := NewServer(r, logging.Wrap(zap.NewNop()))

	rec := do(t, srv, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// HEAD is unset until Init.
	rec = do(t, srv, "GET", "/api/head", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRepoHandler_PanicReleasesLock(t *testing.T) {
	// A nil repository panics inside every locked section.
	srv := NewServer(nil, logging.Wrap(zap.NewNop()))

	done := make(chan []int)
	go func() {
		var codes []int
		for range 3 {
			codes = append(codes, do(t, srv, "GET", "/api/head", nil).Code)
		}
		done <- codes
	}()

	select {
	case codes := <-done:
		assert.Equal(t, []int{500, 500, 500}, codes)
	case <-time.After(5 * time.Second):
		t.Fatal("handler deadlocked after a recovered panic")
	}
}
